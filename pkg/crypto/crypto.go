package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// TrackingIDLength is the length of the opaque IDs embedded in tracking URLs.
const TrackingIDLength = 24

// idAlphabet is the URL-safe alphabet used for opaque identifiers.
const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Sha256Hex returns the lowercase hex SHA-256 digest of str.
// API keys are stored and looked up by this digest.
func Sha256Hex(str string) string {
	hash := sha256.Sum256([]byte(str))
	return hex.EncodeToString(hash[:])
}

func ComputeHMAC256(toSign []byte, secretKey string) string {
	h := hmac.New(sha256.New, []byte(secretKey))
	h.Write(toSign)
	return fmt.Sprintf("%x", h.Sum(nil))
}

// VerifyHMAC256 performs a constant-time comparison of the expected
// signature of toSign against providedSign.
func VerifyHMAC256(secretKey string, toSign []byte, providedSign string) bool {
	signed := ComputeHMAC256(toSign, secretKey)
	return hmac.Equal([]byte(signed), []byte(providedSign))
}

// NewID returns a random opaque identifier of the given length drawn from
// a URL-safe alphabet. It panics only if the OS entropy source fails.
func NewID(length int) string {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto: entropy source unavailable: %v", err))
	}
	id := make([]byte, length)
	for i, b := range buf {
		id[i] = idAlphabet[int(b)%len(idAlphabet)]
	}
	return string(id)
}

// NewTrackingID returns a 24-character opaque tracking identifier.
func NewTrackingID() string {
	return NewID(TrackingIDLength)
}

// NewEventID returns a time-sortable identifier: the millisecond timestamp
// hex-encoded to a fixed width, followed by 16 random hex characters. IDs
// generated later sort lexicographically after earlier ones.
func NewEventID() string {
	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		panic(fmt.Sprintf("crypto: entropy source unavailable: %v", err))
	}
	return fmt.Sprintf("%012x%s", time.Now().UnixMilli(), hex.EncodeToString(suffix))
}
