package codapmeta

import "context"

// IsToolAvailable reports whether the session currently exposes toolName.
// Every fetch error is swallowed and reported as false: absence and
// failure are indistinguishable here on purpose. Callers that need the
// distinction use GetToolManifest.
func (c *Client) IsToolAvailable(ctx context.Context, toolName string) bool {
	manifest, err := c.GetToolManifest(ctx, "")
	if err != nil {
		c.logger.Debug("tool availability check failed", "tool", toolName, "error", err)
		return false
	}
	_, ok := manifest.Tool(toolName)
	return ok
}

// GetToolSchema returns the input schema for toolName. A fetch error, an
// unknown tool, and a tool without a schema all collapse into nil.
func (c *Client) GetToolSchema(ctx context.Context, toolName string) map[string]any {
	manifest, err := c.GetToolManifest(ctx, "")
	if err != nil {
		c.logger.Debug("tool schema lookup failed", "tool", toolName, "error", err)
		return nil
	}
	desc, ok := manifest.Tool(toolName)
	if !ok {
		return nil
	}
	return desc.InputSchema
}

// ListAvailableTools returns name/description pairs in manifest order.
// On any fetch error the result is empty, never nil.
func (c *Client) ListAvailableTools(ctx context.Context) []ToolSummary {
	manifest, err := c.GetToolManifest(ctx, "")
	if err != nil {
		c.logger.Debug("tool listing failed", "error", err)
		return []ToolSummary{}
	}
	return manifest.Summaries()
}
