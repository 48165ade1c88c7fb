package backupcodes

import (
	"strings"
	"testing"
)

func TestNewCodeUsesAlphabetAndLength(t *testing.T) {
	code, err := NewCode(10, CodeAlphabet, nil)
	if err != nil {
		t.Fatalf("NewCode failed: %v", err)
	}
	if len(code) != 10 {
		t.Fatalf("expected 10 symbols, got %d", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			t.Fatalf("symbol %q outside alphabet", r)
		}
	}
}

func TestNewCodeRejectsZeroLength(t *testing.T) {
	if _, err := NewCode(0, CodeAlphabet, nil); err == nil {
		t.Fatal("expected error for zero length")
	}
}

func TestNewCodeEmptyAlphabetFallsBackToDefault(t *testing.T) {
	code, err := NewCode(8, "", nil)
	if err != nil {
		t.Fatalf("NewCode failed: %v", err)
	}
	for _, r := range code {
		if !strings.ContainsRune(CodeAlphabet, r) {
			t.Fatalf("symbol %q outside default alphabet", r)
		}
	}
}

func TestNewCodeInjectableRandomness(t *testing.T) {
	code, err := NewCode(4, "AB", func(int) (int, error) { return 1, nil })
	if err != nil {
		t.Fatalf("NewCode failed: %v", err)
	}
	if code != "BBBB" {
		t.Fatalf("expected deterministic BBBB, got %s", code)
	}
}

func TestGenerateCodesAreUnique(t *testing.T) {
	codes, err := GenerateCodes(50, 8, CodeAlphabet, nil)
	if err != nil {
		t.Fatalf("GenerateCodes failed: %v", err)
	}
	seen := make(map[string]struct{}, len(codes))
	for _, code := range codes {
		if _, dup := seen[code]; dup {
			t.Fatalf("duplicate code in batch: %s", code)
		}
		seen[code] = struct{}{}
	}
}

func TestAlphabetOmitsAmbiguousSymbols(t *testing.T) {
	for _, r := range "01OIL" {
		if strings.ContainsRune(CodeAlphabet, r) {
			t.Fatalf("alphabet must not contain ambiguous symbol %q", r)
		}
	}
}

func TestFormatCodeInsertsMidDash(t *testing.T) {
	if got := FormatCode("ABCDEFGH"); got != "ABCD-EFGH" {
		t.Fatalf("expected ABCD-EFGH, got %s", got)
	}
	if got := FormatCode("ABC"); got != "ABC" {
		t.Fatalf("expected short code unchanged, got %s", got)
	}
}

func TestCanonicalizeCodeVariants(t *testing.T) {
	cases := []string{
		"ABCD-EFGH",
		"abcd-efgh",
		" abcd efgh ",
		"AbCd-EfGh",
	}
	for _, in := range cases {
		if got := CanonicalizeCode(in); got != "ABCDEFGH" {
			t.Fatalf("CanonicalizeCode(%q) = %q, expected ABCDEFGH", in, got)
		}
	}
}
