package codapmeta

import "context"

// NegotiationOutcome reports whether the relay accepted a requested API
// version. On success Version and Manifest are set; on rejection
// RequestedVersion, SupportedVersions, and Reason are set. Never both.
type NegotiationOutcome struct {
	Supported         bool          `json:"supported"`
	Version           string        `json:"version,omitempty"`
	RequestedVersion  string        `json:"requestedVersion,omitempty"`
	SupportedVersions []string      `json:"supportedVersions,omitempty"`
	Reason            string        `json:"reason,omitempty"`
	Manifest          *ToolManifest `json:"-"`
}

// TestVersionNegotiation probes the relay with apiVersion and folds a
// version rejection into the outcome value. Only KindVersionNotSupported
// is absorbed; every other failure propagates untouched, because
// negotiation answers the version question and must not mask
// infrastructure trouble.
func (c *Client) TestVersionNegotiation(ctx context.Context, apiVersion string) (NegotiationOutcome, error) {
	manifest, err := c.GetToolManifest(ctx, apiVersion)
	if err != nil {
		clientErr, ok := AsClientError(err)
		if !ok || clientErr.Kind != KindVersionNotSupported {
			return NegotiationOutcome{}, err
		}
		return NegotiationOutcome{
			RequestedVersion:  clientErr.RequestedVersion,
			SupportedVersions: clientErr.SupportedVersions,
			Reason:            clientErr.Message,
		}, nil
	}

	return NegotiationOutcome{
		Supported:        true,
		Version:          manifest.APIVersion,
		RequestedVersion: apiVersion,
		Manifest:         manifest,
	}, nil
}
