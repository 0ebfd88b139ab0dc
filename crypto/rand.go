package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

const AlphanumericAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// OpaqueTokenBytes is the entropy of verification and reset tokens.
const OpaqueTokenBytes = 32

// RandomString returns a string of length n drawn uniformly from alphabet
// using crypto/rand. It panics on an empty alphabet or if the system
// random source fails.
func RandomString(n int, alphabet string) string {
	if alphabet == "" {
		panic("crypto: empty alphabet")
	}

	max := big.NewInt(int64(len(alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(fmt.Sprintf("crypto: random source failed: %v", err))
		}
		b[i] = alphabet[idx.Int64()]
	}
	return string(b)
}

// NewOpaqueToken returns a hex encoded random token for the user and the
// hash to persist. Only the hash is stored.
func NewOpaqueToken() (token string, hash string, err error) {
	b := make([]byte, OpaqueTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", "", fmt.Errorf("crypto: generating token: %w", err)
	}
	token = hex.EncodeToString(b)
	return token, HashToken(token), nil
}

// HashToken is the lookup form of an opaque token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
