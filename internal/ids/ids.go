// Package ids mints the opaque 128-bit identifiers used for Notes and
// recording sessions.
package ids

import "github.com/google/uuid"

// New returns a fresh 128-bit identifier in canonical string form.
func New() string {
	return uuid.NewString()
}
