package credentials

import (
	"crypto/rand"
	"math/big"
)

// JoinCodeLength is the number of characters in a family join code
const JoinCodeLength = 32

// joinCodeAlphabet is [A-Za-z0-9]
const joinCodeAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateJoinCode returns a random family join code. Anyone holding the code
// can join the family, so it is drawn from crypto/rand.
func GenerateJoinCode() (string, error) {
	return randomString(JoinCodeLength)
}

// IsJoinCode reports whether s has the shape of a join code
func IsJoinCode(s string) bool {
	if len(s) != JoinCodeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if !isAlphanumeric(s[i]) {
			return false
		}
	}
	return true
}

// randomString draws n characters uniformly from joinCodeAlphabet
func randomString(n int) (string, error) {
	max := big.NewInt(int64(len(joinCodeAlphabet)))
	code := make([]byte, n)

	for i := 0; i < n; i++ {
		num, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = joinCodeAlphabet[num.Int64()]
	}

	return string(code), nil
}

func isAlphanumeric(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}
