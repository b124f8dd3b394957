package codapmeta

// ToolManifest is the session metadata document served by the relay.
// Immutable once returned; the client never mutates or caches one.
type ToolManifest struct {
	APIVersion string           `json:"apiVersion"`
	Tools      []ToolDescriptor `json:"tools"`
}

// ToolDescriptor describes one tool exposed by the session. Names are
// unique within a manifest.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"inputSchema,omitempty"`
}

// ToolSummary is the name/description pair returned by listing calls.
type ToolSummary struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Tool returns the named descriptor when the manifest contains it.
func (m *ToolManifest) Tool(name string) (ToolDescriptor, bool) {
	if m == nil {
		return ToolDescriptor{}, false
	}
	for _, desc := range m.Tools {
		if desc.Name == name {
			return desc, true
		}
	}
	return ToolDescriptor{}, false
}

// Summaries returns name/description pairs in manifest order.
// The result is never nil.
func (m *ToolManifest) Summaries() []ToolSummary {
	if m == nil {
		return []ToolSummary{}
	}
	summaries := make([]ToolSummary, 0, len(m.Tools))
	for _, desc := range m.Tools {
		summaries = append(summaries, ToolSummary{
			Name:        desc.Name,
			Description: desc.Description,
		})
	}
	return summaries
}
