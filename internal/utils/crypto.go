// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"math/big"
)

const sessionKeyLength = 32

func GenerateRandomString(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, length)

	for i := range b {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[n.Int64()]
	}

	return string(b), nil
}

func GenerateSessionKey() (string, error) {
	return GenerateRandomString(sessionKeyLength)
}
