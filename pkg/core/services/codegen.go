package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomCodeGenerator draws codes uniformly from the 62-character
// alphanumeric alphabet using crypto/rand. Codes double as access
// tokens for anonymous links, so the source must not be predictable.
type RandomCodeGenerator struct{}

func NewRandomCodeGenerator() *RandomCodeGenerator {
	return &RandomCodeGenerator{}
}

func (g *RandomCodeGenerator) Generate(length int) (string, error) {
	if length < 1 {
		return "", fmt.Errorf("generate: length must be at least 1, got %d", length)
	}
	b := make([]byte, length)
	for i := range b {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		b[i] = charset[num.Int64()]
	}
	return string(b), nil
}
