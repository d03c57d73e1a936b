package domain

import (
	"math/rand"
	"strings"

	"github.com/google/uuid"
)

const codeAlphabet = "abcdefghijklmnopqrstuvwxyz"

// maxCodeAttempts bounds collision retries before falling back to a uuid.
const maxCodeAttempts = 10

// NewRoomCode returns a shareable code of three lowercase triplets joined by
// hyphens. The caller supplies the existence check; after maxCodeAttempts
// collisions the code falls back to a uuid, which cannot collide.
func NewRoomCode(exists func(RoomID) bool) RoomID {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		id := RoomID(randomCode())
		if !exists(id) {
			return id
		}
	}
	return RoomID(uuid.NewString())
}

func randomCode() string {
	var b strings.Builder
	for seg := 0; seg < 3; seg++ {
		if seg > 0 {
			b.WriteByte('-')
		}
		for i := 0; i < 3; i++ {
			b.WriteByte(codeAlphabet[rand.Intn(len(codeAlphabet))])
		}
	}
	return b.String()
}
