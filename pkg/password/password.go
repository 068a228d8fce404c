package password

import (
	"crypto/rand"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"io"
)

// saltSize is the number of random bytes drawn for a new salt.
const saltSize = 64

// randReader is swapped out in tests to get reproducible output.
var randReader io.Reader = rand.Reader

// Hash returns the hex SHA-512 digest of password concatenated with salt.
// Same inputs always produce the same digest.
func Hash(password, salt string) string {
	h := sha512.New()
	h.Write([]byte(password))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}

// Change generates a fresh random salt and derives the digest for password.
// The salt is returned std-base64 encoded, ready for storage next to the digest.
func Change(password string) (salt, digest string) {
	raw := make([]byte, saltSize)
	if _, err := io.ReadFull(randReader, raw); err != nil {
		// RNG exhaustion is not recoverable
		panic("password: rng failure: " + err.Error())
	}
	salt = base64.StdEncoding.EncodeToString(raw)
	return salt, Hash(password, salt)
}

// GenerateToken returns size random bytes encoded raw URL-safe base64,
// suitable for use in cookies and links without further escaping.
func GenerateToken(size int) string {
	b := make([]byte, size)
	if _, err := io.ReadFull(randReader, b); err != nil {
		panic("password: rng failure: " + err.Error())
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
