package room

import (
	"context"
	"crypto/rand"
	"strings"
)

// Codes avoid 0/O and 1/I so they can be read aloud.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const CodeLength = 6

// GenerateCode draws one random room code. 256 is a multiple of the
// alphabet size, so the modulo does not skew the distribution.
func GenerateCode() (string, error) {
	b := make([]byte, CodeLength)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	code := make([]byte, CodeLength)
	for i := range code {
		code[i] = codeAlphabet[int(b[i])%len(codeAlphabet)]
	}
	return string(code), nil
}

// AllocateCode returns the first generated code that exists reports free.
// After attempts collisions it returns the last candidate anyway.
func AllocateCode(ctx context.Context, generate func() (string, error), exists func(ctx context.Context, code string) (bool, error), attempts int) (string, error) {
	if attempts < 1 {
		attempts = 1
	}

	var code string
	for i := 0; i < attempts; i++ {
		candidate, err := generate()
		if err != nil {
			return "", err
		}
		code = candidate

		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}
	return code, nil
}

// ValidCode reports whether s could have been produced by GenerateCode.
func ValidCode(s string) bool {
	if len(s) != CodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(codeAlphabet, s[i]) < 0 {
			return false
		}
	}
	return true
}
