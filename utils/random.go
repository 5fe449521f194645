package utils

import (
	"crypto/rand"
)

const base36Charset = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateBase36 returns length random characters from [0-9a-z].
func GenerateBase36(length int) (string, error) {
	code := make([]byte, length)
	if _, err := rand.Read(code); err != nil {
		return "", err
	}

	for i := 0; i < length; i++ {
		code[i] = base36Charset[int(code[i])%len(base36Charset)]
	}

	return string(code), nil
}
