package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// ShortCodeLength is the length of generated tracking short codes
const ShortCodeLength = 8

// GenerateShortCode derives a short code from the link ID, the current time
// and a random salt. Uniqueness is not guaranteed by the hash alone; callers
// must retry on a store uniqueness violation with a fresh salt.
func GenerateShortCode(linkID string) (string, error) {
	salt := make([]byte, 8)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("error generating salt: %w", err)
	}

	seed := fmt.Sprintf("%s:%d:%s", linkID, time.Now().UnixNano(), hex.EncodeToString(salt))
	sum := sha256.Sum256([]byte(seed))

	code := hex.EncodeToString(sum[:])[:ShortCodeLength]
	return strings.ToUpper(code), nil
}
