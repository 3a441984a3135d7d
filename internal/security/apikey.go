package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// HashAPIKey returns the hex HMAC-SHA256 of rawKey under pepper. Clients are
// stored with this hash, never the raw key, and looked up by it on request auth.
// An empty pepper degrades to an unkeyed hash; config rejects that in production.
func HashAPIKey(pepper, rawKey string) string {
	if pepper == "" {
		h := sha256.Sum256([]byte(rawKey))
		return hex.EncodeToString(h[:])
	}
	mac := hmac.New(sha256.New, []byte(pepper))
	mac.Write([]byte(rawKey))
	return hex.EncodeToString(mac.Sum(nil))
}

// APIKeyHashEqual performs constant-time comparison of the provided key's hash
// with the stored hash. Returns true only if they match.
func APIKeyHashEqual(pepper, rawKey, storedHash string) bool {
	providedHash := HashAPIKey(pepper, rawKey)
	return subtle.ConstantTimeCompare([]byte(providedHash), []byte(storedHash)) == 1
}

// RandomHex returns n random bytes from crypto/rand, hex-encoded.
// Used for session ids, puzzle seeds, and token jti values.
func RandomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

const base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// RandomBase62 returns a random base62 string of length n, suitable for
// site keys and raw API keys handed to clients.
func RandomBase62(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	out := make([]byte, n)
	for i := range b {
		out[i] = base62Alphabet[int(b[i])%len(base62Alphabet)]
	}
	return string(out), nil
}
