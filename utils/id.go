package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ChallengeIDBytes gives 128 bits of entropy, enough that the id alone
// can gate both payment claims and report access.
const ChallengeIDBytes = 16

// NewChallengeID returns a hex-encoded random challenge id.
func NewChallengeID() (string, error) {
	buf := make([]byte, ChallengeIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read randomness: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
