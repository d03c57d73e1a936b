package domain

import (
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var codeShape = regexp.MustCompile(`^[a-z]{3}-[a-z]{3}-[a-z]{3}$`)

func TestRoomCodeShape(t *testing.T) {
	never := func(RoomID) bool { return false }
	for i := 0; i < 100; i++ {
		code := NewRoomCode(never)
		assert.Regexp(t, codeShape, string(code))
	}
}

func TestRoomCodeAvoidsActiveCodes(t *testing.T) {
	seen := make(map[RoomID]bool)
	exists := func(id RoomID) bool { return seen[id] }

	for i := 0; i < 200; i++ {
		code := NewRoomCode(exists)
		require.False(t, seen[code], "generator returned an active code")
		seen[code] = true
	}
}

func TestRoomCodeFallsBackToUUID(t *testing.T) {
	always := func(RoomID) bool { return true }
	code := NewRoomCode(always)

	_, err := uuid.Parse(string(code))
	require.NoError(t, err, "exhausted retries should yield a uuid")
}

func TestFallbackName(t *testing.T) {
	assert.Equal(t, "User-abcd", FallbackName("abcdef-123"))
	assert.Equal(t, "User-ab", FallbackName("ab"))
}

func TestNewMemberDefaults(t *testing.T) {
	m := NewMember("conn-1234", "")
	assert.Equal(t, "User-conn", m.Name)
	assert.True(t, m.Video)
	assert.True(t, m.Audio)
	assert.False(t, m.Screen)

	named := NewMember("conn-1234", "Sam")
	assert.Equal(t, "Sam", named.Name)
}
