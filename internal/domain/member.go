// Package domain contains entities without logic, just meta-data.
package domain

// ConnID identifies one live client connection. It is generated by the
// gateway at connect time and stays stable for the connection's lifetime.
type ConnID string

// MediaState mirrors the last-announced local media toggles of a member.
type MediaState struct {
	Video  bool `json:"video"`
	Audio  bool `json:"audio"`
	Screen bool `json:"screen"`
}

// Member is one connection's participation meta inside a room.
// No transport or lifecycle logic here.
type Member struct {
	ID     ConnID `json:"id"`
	Name   string `json:"name"`
	Video  bool   `json:"video"`
	Audio  bool   `json:"audio"`
	Screen bool   `json:"screen"`
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
// Camera and mic start on, screen share off.
func NewMember(id ConnID, name string) *Member {
	if name == "" {
		name = FallbackName(id)
	}
	return &Member{ID: id, Name: name, Video: true, Audio: true}
}

// FallbackName derives a short display tag from the connection id.
func FallbackName(id ConnID) string {
	tag := string(id)
	if len(tag) > 4 {
		tag = tag[:4]
	}
	return "User-" + tag
}
