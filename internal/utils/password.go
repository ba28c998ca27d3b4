package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// passwordAlphabet omits look-alike characters (0/O, 1/l/I)
const passwordAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789!@#$"

// AccountPasswordLength is the length of passwords generated for guest account creation
const AccountPasswordLength = 12

// GeneratePassword returns a random password of the given length
func GeneratePassword(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("password length must be positive, got %d", length)
	}

	max := big.NewInt(int64(len(passwordAlphabet)))
	password := make([]byte, length)
	for i := range password {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		password[i] = passwordAlphabet[n.Int64()]
	}

	return string(password), nil
}
