package codapmeta

import (
	"context"
	"time"
)

// ProbeStatus summarizes one reachability check of the metadata endpoint.
type ProbeStatus string

const (
	ProbeOK              ProbeStatus = "ok"
	ProbeUnauthorized    ProbeStatus = "unauthorized"
	ProbeExpired         ProbeStatus = "expired"
	ProbeVersionMismatch ProbeStatus = "version_mismatch"
	ProbeServerError     ProbeStatus = "server_error"
	ProbeUnreachable     ProbeStatus = "unreachable"
	ProbeDegraded        ProbeStatus = "degraded"
)

// ProbeResult is a normalized health snapshot of the metadata endpoint.
type ProbeResult struct {
	Status     ProbeStatus `json:"status"`
	CheckedAt  time.Time   `json:"checked_at"`
	LatencyMS  int64       `json:"latency_ms"`
	APIVersion string      `json:"api_version,omitempty"`
	ToolCount  int         `json:"tool_count"`
	Message    string      `json:"message,omitempty"`
}

// Probe performs one metadata fetch and maps the outcome onto a status.
// It never returns an error; the status is the result.
func (c *Client) Probe(ctx context.Context, apiVersion string) ProbeResult {
	start := time.Now()
	manifest, err := c.GetToolManifest(ctx, apiVersion)
	latencyMS := time.Since(start).Milliseconds()
	checkedAt := time.Now().UTC()

	if err == nil {
		return ProbeResult{
			Status:     ProbeOK,
			CheckedAt:  checkedAt,
			LatencyMS:  latencyMS,
			APIVersion: manifest.APIVersion,
			ToolCount:  len(manifest.Tools),
		}
	}

	result := ProbeResult{
		CheckedAt: checkedAt,
		LatencyMS: latencyMS,
		Message:   err.Error(),
	}
	clientErr, ok := AsClientError(err)
	if !ok {
		result.Status = ProbeDegraded
		return result
	}

	switch clientErr.Kind {
	case KindAuthenticationFailed:
		result.Status = ProbeUnauthorized
	case KindSessionExpired:
		result.Status = ProbeExpired
	case KindVersionNotSupported:
		result.Status = ProbeVersionMismatch
	case KindServerError:
		result.Status = ProbeServerError
	case KindTransport:
		result.Status = ProbeUnreachable
	default:
		result.Status = ProbeDegraded
	}
	return result
}
