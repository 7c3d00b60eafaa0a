package utils

import (
	"crypto/rand"
)

const tempPasswordCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789!@#$%^&*"

// GenerateTempPassword returns a random password of the given length for a
// newly created staff account.
func GenerateTempPassword(length int) (string, error) {
	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := range code {
		code[i] = tempPasswordCharset[int(code[i])%len(tempPasswordCharset)]
	}

	return string(code), nil
}
