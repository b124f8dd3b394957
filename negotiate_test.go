package codapmeta

import (
	"context"
	"net/http"
	"testing"
)

func TestTestVersionNegotiationSuccess(t *testing.T) {
	client := manifestClient(t, http.StatusOK, `{"apiVersion":"1.1.0","tools":[{"name":"create_graph"}]}`)

	outcome, err := client.TestVersionNegotiation(context.Background(), "1.1.0")
	if err != nil {
		t.Fatalf("TestVersionNegotiation() error = %v", err)
	}
	if !outcome.Supported {
		t.Fatal("Supported = false, want true")
	}
	if outcome.Version != "1.1.0" {
		t.Fatalf("Version = %q, want 1.1.0", outcome.Version)
	}
	if outcome.RequestedVersion != "1.1.0" {
		t.Fatalf("RequestedVersion = %q, want 1.1.0", outcome.RequestedVersion)
	}
	if outcome.Manifest == nil || len(outcome.Manifest.Tools) != 1 {
		t.Fatalf("Manifest = %+v, want one tool", outcome.Manifest)
	}
	if outcome.Reason != "" {
		t.Fatalf("Reason = %q, want empty on success", outcome.Reason)
	}
}

func TestTestVersionNegotiationRejected(t *testing.T) {
	body := `{"error":"API version not supported","requestedVersion":"2.0.0","supportedVersions":["1.0.0","1.1.0"]}`
	client := manifestClient(t, http.StatusNotAcceptable, body)

	outcome, err := client.TestVersionNegotiation(context.Background(), "2.0.0")
	if err != nil {
		t.Fatalf("TestVersionNegotiation() error = %v, want nil for version rejection", err)
	}
	if outcome.Supported {
		t.Fatal("Supported = true, want false")
	}
	if outcome.RequestedVersion != "2.0.0" {
		t.Fatalf("RequestedVersion = %q, want 2.0.0", outcome.RequestedVersion)
	}
	if len(outcome.SupportedVersions) != 2 {
		t.Fatalf("SupportedVersions = %v, want two entries", outcome.SupportedVersions)
	}
	if outcome.Reason != "Unsupported version: 2.0.0" {
		t.Fatalf("Reason = %q, want %q", outcome.Reason, "Unsupported version: 2.0.0")
	}
	if outcome.Manifest != nil {
		t.Fatal("Manifest != nil on rejection, want nil")
	}
}

// Only a version rejection folds into the outcome; every other failure is
// infrastructure trouble and must keep propagating.
func TestTestVersionNegotiationPropagatesOtherErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind ErrorKind
	}{
		{"auth failure", http.StatusUnauthorized, `{"error":"bad token"}`, KindAuthenticationFailed},
		{"expired session", http.StatusForbidden, `{"error":"expired"}`, KindSessionExpired},
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, KindServerError},
		{"malformed success body", http.StatusOK, "not json", KindMalformedResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := manifestClient(t, tt.status, tt.body)

			outcome, err := client.TestVersionNegotiation(context.Background(), "1.0.0")
			if err == nil {
				t.Fatal("TestVersionNegotiation() error = nil, want propagated failure")
			}
			if !IsKind(err, tt.wantKind) {
				t.Fatalf("kind = %v, want %v", err, tt.wantKind)
			}
			if outcome.Supported || outcome.Manifest != nil {
				t.Fatalf("outcome = %+v, want zero value alongside error", outcome)
			}
		})
	}
}
