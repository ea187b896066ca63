package domain

import "time"

// Category groups tests under a localized display name. Categories are
// administered outside the voting core; the core only resolves them for
// listings and notification payloads.
type Category struct {
	ID        string        `json:"id"`
	Name      LocalizedText `json:"name"`
	Slug      string        `json:"slug"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
}
