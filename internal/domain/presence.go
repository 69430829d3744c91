package domain

// Presence is the ephemeral per-connection record broadcast over the sync
// channel's presence layer. It is keyed by connection id, overwritten on every
// update, and vanishes when the owning connection disconnects.
type Presence struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Picture string  `json:"picture,omitempty"`
	MouseX  float64 `json:"mouseX"`
	MouseY  float64 `json:"mouseY"`
}

// Participant identifies a trip member for edit-permission checks and author
// resolution in notes and reports.
type Participant struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role"`
}

// Roles understood by the permission model. Owners and editors may mutate the
// tree; viewers get a read-only graph without placeholders.
const (
	RoleOwner  = "owner"
	RoleEditor = "editor"
	RoleViewer = "viewer"
)

// CanEdit reports whether the participant's role allows tree mutations.
func (p Participant) CanEdit() bool {
	return p.Role == RoleOwner || p.Role == RoleEditor
}
