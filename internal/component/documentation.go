package component

// Documentation is the derived, versioned description of one component version.
type Documentation struct {
	Component     string      `json:"component"`
	Version       int         `json:"version"`
	Description   string      `json:"description"`
	Attributes    []Attribute `json:"attributes"`
	Events        []Event     `json:"events"`
	Methods       []Method    `json:"methods"`
	Dependencies  []string    `json:"dependencies"`
	UsageExamples []string    `json:"usage_examples"`
	Generated     bool        `json:"generated"`
	GeneratedAt   string      `json:"generated_at"`
}

// Attribute is an observed HTML attribute.
type Attribute struct {
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Default     string `json:"default,omitempty"`
	Description string `json:"description,omitempty"`
}

// Event is a dispatched DOM event.
type Event struct {
	Name        string `json:"name"`
	Detail      string `json:"detail,omitempty"`
	Description string `json:"description,omitempty"`
}

// Method is a public instance method.
type Method struct {
	Name        string `json:"name"`
	Signature   string `json:"signature,omitempty"`
	Description string `json:"description,omitempty"`
}
