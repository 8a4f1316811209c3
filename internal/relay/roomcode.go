package relay

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// RoomAlphabet excludes the ambiguous glyphs I, O, 0 and 1.
const RoomAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// RoomCodeLength is the number of characters in a room code.
const RoomCodeLength = 4

// GenerateRoomCode returns a random room code.
func GenerateRoomCode() string {
	b := make([]byte, RoomCodeLength)
	if _, err := rand.Read(b); err != nil {
		panic(fmt.Sprintf("relay: crypto/rand failed: %v", err))
	}
	for i := range b {
		// The alphabet has 32 symbols, so the modulo is unbiased.
		b[i] = RoomAlphabet[int(b[i])%len(RoomAlphabet)]
	}
	return string(b)
}

// NormalizeRoomCode upper-cases and validates user input.
func NormalizeRoomCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != RoomCodeLength {
		return "", fmt.Errorf("%w: %q must be %d characters", ErrInvalidRoomCode, code, RoomCodeLength)
	}
	for _, r := range code {
		if !strings.ContainsRune(RoomAlphabet, r) {
			return "", fmt.Errorf("%w: %q contains %q", ErrInvalidRoomCode, code, r)
		}
	}
	return code, nil
}
