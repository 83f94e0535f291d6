package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/mr-tron/base58"
)

// GenerateWalletAddress generates a new opaque wallet address: "mp" followed
// by the base58 encoding of 20 random bytes.
func GenerateWalletAddress() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "mp" + base58.Encode(b), nil
}

// GenerateRandomCode generates a random hex code of the given length
func GenerateRandomCode(length int) (string, error) {
	bytes := make([]byte, (length+1)/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes)[:length], nil
}
