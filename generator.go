package backupcodes

import (
	"crypto/rand"
	"errors"
	"math/big"
	"strings"
)

// CodeAlphabet is an exported constant or variable used by the backup code manager.
//
// The set omits visually ambiguous symbols (0/O, 1/I/L) so codes survive
// being read aloud or transcribed from paper.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// NewCode describes the new code operation and its observable behavior.
//
// NewCode may return an error when input validation, dependency calls, or security checks fail.
// NewCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewCode(length int, alphabet string, randomIndex func(int) (int, error)) (string, error) {
	if length <= 0 {
		return "", errors.New("code length must be > 0")
	}
	if alphabet == "" {
		alphabet = CodeAlphabet
	}
	if randomIndex == nil {
		randomIndex = cryptoRandomIndex
	}
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		n, err := randomIndex(len(alphabet))
		if err != nil {
			return "", err
		}
		b.WriteByte(alphabet[n])
	}
	return b.String(), nil
}

// GenerateCodes describes the generate codes operation and its observable behavior.
//
// GenerateCodes may return an error when input validation, dependency calls, or security checks fail.
// GenerateCodes does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func GenerateCodes(count, length int, alphabet string, randomIndex func(int) (int, error)) ([]string, error) {
	if count <= 0 {
		return nil, errors.New("code count must be > 0")
	}
	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		code, err := NewCode(length, alphabet, randomIndex)
		if err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, nil
}

// FormatCode describes the format code operation and its observable behavior.
//
// FormatCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func FormatCode(code string) string {
	n := len(code)
	if n < 8 {
		return code
	}
	mid := n / 2
	return code[:mid] + "-" + code[mid:]
}

// CanonicalizeCode describes the canonicalize code operation and its observable behavior.
//
// CanonicalizeCode does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func CanonicalizeCode(code string) string {
	s := strings.ToUpper(strings.TrimSpace(code))
	s = strings.ReplaceAll(s, "-", "")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

func cryptoRandomIndex(max int) (int, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
