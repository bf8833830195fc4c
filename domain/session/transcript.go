// Package session holds the session-state model: transcript entries,
// worker statuses and the derived prompt values the presentation layer
// reads.
package session

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript entry.
type Role string

const (
	RoleUser   Role = "user"
	RolePart   Role = "part"
	RoleSystem Role = "system"
)

// Entry is one line of the session transcript. The transcript is
// append-only; entries are never edited or removed during a session.
type Entry struct {
	ID        string
	Role      Role
	Content   string
	At        time.Time
	Part      string
	PartName  string
	PartColor string
}

// NewUserEntry creates the optimistic local entry for a user utterance.
func NewUserEntry(content string, at time.Time) Entry {
	return Entry{
		ID:      uuid.New().String(),
		Role:    RoleUser,
		Content: content,
		At:      at,
	}
}

// NewPartEntry creates the entry for a reply spoken by a named part.
func NewPartEntry(part, name, color, content string, at time.Time) Entry {
	return Entry{
		ID:        uuid.New().String(),
		Role:      RolePart,
		Content:   content,
		At:        at,
		Part:      part,
		PartName:  name,
		PartColor: color,
	}
}

// NewSystemEntry creates an unattributed system entry.
func NewSystemEntry(content string, at time.Time) Entry {
	return Entry{
		ID:      uuid.New().String(),
		Role:    RoleSystem,
		Content: content,
		At:      at,
	}
}
