package domain

import "time"

// User is one person reachable through the messaging channel. Users are
// created on the first inbound message from an unseen address and never
// destroyed by the core.
type User struct {
	ID string

	// Phone is the channel address: E.164-style digits without the plus.
	Phone string

	// Name is the display name pulled from the channel profile, if known.
	Name string

	// Profile holds free-form attributes.
	Profile map[string]string

	CreatedAt time.Time
}

// HasName reports whether the channel ever supplied a display name.
func (u *User) HasName() bool {
	return u.Name != ""
}
