package component

import (
	"crypto/sha256"
	"encoding/hex"
)

// Component statuses.
const (
	StatusActive     = "active"
	StatusDraft      = "draft"
	StatusDeprecated = "deprecated"
)

// Component is a named, versioned custom-element source artifact.
// Name is the addressing key and the blob key prefix.
type Component struct {
	// ID is a ULID that uniquely identifies this component
	ID string `json:"id"`

	// Name is the normalized custom-element tag name (e.g. "foo-bar")
	Name string `json:"name"`

	// Slug is the registry key; defaults to Name
	Slug string `json:"slug"`

	Description string   `json:"description"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`

	// CurrentVersion is the version_number of the most recently committed Version
	CurrentVersion int `json:"current_version"`

	Status string `json:"status"`

	// AliasPath is the blob key holding the mutable "current" copy
	AliasPath string `json:"alias_path"`

	// CreatedAt is the Unix timestamp when the component was created
	CreatedAt int64 `json:"created_at"`

	// UpdatedAt is the Unix timestamp of the last commit
	UpdatedAt int64 `json:"updated_at"`
}

// Version is an immutable, sequentially numbered snapshot of a component's source.
type Version struct {
	ComponentID       string `json:"component_id"`
	VersionNumber     int    `json:"version_number"`
	BlobPath          string `json:"blob_path"`
	ChangeDescription string `json:"change_description"`
	ChangedBy         string `json:"changed_by"`
	GeneratorModel    string `json:"generator_model,omitempty"`
	GeneratorPrompt   string `json:"generator_prompt,omitempty"`
	ContentHash       string `json:"content_hash"`
	CreatedAt         int64  `json:"created_at"`
}

// Transcript records the conversation behind one edit. Advisory only.
type Transcript struct {
	ID             string `json:"id"`
	ComponentID    string `json:"component_id"`
	TargetVersion  int    `json:"target_version"`
	UserRequest    string `json:"user_request"`
	ChangesSummary string `json:"changes_summary"`
	GeneratorModel string `json:"generator_model"`
	CreatedAt      int64  `json:"created_at"`
}

// ContentHash returns the hex SHA-256 of content.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
