package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
)

const (
	sessionIDBytes            = 32
	errGenerateRandomBytesFmt = "failed to generate random bytes: %w"
	errByteLengthPositiveFmt  = "byteLength must be positive"
)

var sessionIDPattern = regexp.MustCompile("^[a-f0-9]{64}$")

func GenerateHex(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf(errByteLengthPositiveFmt)
	}

	bytes := make([]byte, byteLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf(errGenerateRandomBytesFmt, err)
	}

	return hex.EncodeToString(bytes), nil
}

// GenerateSessionID returns an opaque identifier for an anonymous share
// visitor. Password verifications are remembered against it.
func GenerateSessionID() (string, error) {
	return GenerateHex(sessionIDBytes)
}

func IsValidSessionID(id string) bool {
	return sessionIDPattern.MatchString(id)
}
