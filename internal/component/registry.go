package component

// CapabilityComponent is the registry capability_type for UI components.
const CapabilityComponent = "component"

// RegistryEntry is the discovery-registry projection of a Component.
// The registry schema is owned by the discovery service; this mirrors the
// columns sync writes.
type RegistryEntry struct {
	ID             string   `json:"id"`
	Slug           string   `json:"slug"`
	CapabilityType string   `json:"capability_type"`
	Name           string   `json:"name"`
	Description    string   `json:"description"`
	Category       string   `json:"category"`
	Tags           []string `json:"tags"`
	ContentURL     string   `json:"content_url"`
	DocsURL        string   `json:"docs_url"`
	ExampleUsage   string   `json:"example_usage"`
	Version        int      `json:"version"`
	CreatedAt      int64    `json:"created_at"`
	UpdatedAt      int64    `json:"updated_at"`
}
