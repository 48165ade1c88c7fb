package backupcodes

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"
)

// Encoder defines a public type used by backupcodes APIs.
//
// Encoder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
//
// Hash and Verify operate on canonicalized codes. Encrypt and Decrypt serve
// only the recoverable admin display path and are no-ops when no encryption
// key was configured.
type Encoder struct {
	hashCost int
	aead     cipher.AEAD
}

// NewEncoder describes the new encoder operation and its observable behavior.
//
// NewEncoder may return an error when input validation, dependency calls, or security checks fail.
// NewEncoder does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewEncoder(cfg CryptoConfig) (*Encoder, error) {
	cost := cfg.HashCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d out of range", ErrCryptoFailed, cost)
	}

	enc := &Encoder{hashCost: cost}
	if len(cfg.EncryptionKey) > 0 {
		switch len(cfg.EncryptionKey) {
		case 16, 24, 32:
		default:
			return nil, ErrEncryptionKeySize
		}
		block, err := aes.NewCipher(cfg.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
		}
		enc.aead = aead
	}
	return enc, nil
}

// Recoverable reports whether the encoder can produce and open encrypted
// copies, that is, whether an encryption key was configured.
func (e *Encoder) Recoverable() bool {
	return e.aead != nil
}

// Hash describes the hash operation and its observable behavior.
//
// Hash may return an error when input validation, dependency calls, or security checks fail.
// Hash does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Encoder) Hash(canonical string) ([]byte, error) {
	if canonical == "" {
		return nil, fmt.Errorf("%w: empty code", ErrCryptoFailed)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(canonical), e.hashCost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}
	return hash, nil
}

// Verify describes the verify operation and its observable behavior.
//
// Verify does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Encoder) Verify(canonical string, hash []byte) bool {
	if canonical == "" || len(hash) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(canonical)) == nil
}

// Encrypt describes the encrypt operation and its observable behavior.
//
// The nonce is generated per call and prepended to the ciphertext.
// Encrypt may return an error when input validation, dependency calls, or security checks fail.
// Encrypt does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Encoder) Encrypt(plaintext string) ([]byte, error) {
	if e.aead == nil {
		return nil, nil
	}
	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}
	return e.aead.Seal(nonce, nonce, []byte(plaintext), nil), nil
}

// Decrypt describes the decrypt operation and its observable behavior.
//
// Decrypt may return an error when input validation, dependency calls, or security checks fail.
// Decrypt does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (e *Encoder) Decrypt(ciphertext []byte) (string, error) {
	if e.aead == nil {
		return "", ErrNoRecoverableCodes
	}
	if len(ciphertext) < e.aead.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrCryptoFailed)
	}
	nonce, sealed := ciphertext[:e.aead.NonceSize()], ciphertext[e.aead.NonceSize():]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCryptoFailed, err)
	}
	return string(plaintext), nil
}
