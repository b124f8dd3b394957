package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// executeCommand runs a cobra command with the given args and captures stdout/stderr.
func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var outBuf, errBuf bytes.Buffer
	root.SetOut(&outBuf)
	root.SetErr(&errBuf)
	root.SetArgs(args)
	err = root.Execute()
	return outBuf.String(), errBuf.String(), err
}

// clearConfigEnv neutralizes ambient configuration so tests only see
// their own flags. HOME is redirected so ~/.codapmeta is never read.
func clearConfigEnv(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, key := range []string{
		"CODAPMETA_BASE_URL",
		"CODAPMETA_SESSION",
		"CODAPMETA_API_VERSION",
		"CODAPMETA_TIMEOUT",
		"CODAPMETA_SNAPSHOT_PATH",
		"CODAPMETA_OTLP_ENDPOINT",
		"CODAPMETA_WATCH_SCHEDULE",
	} {
		t.Setenv(key, "")
	}
}

const testManifestJSON = `{
  "apiVersion": "1.0.0",
  "tools": [
    {"name": "create_graph", "description": "Create a graph component", "inputSchema": {"type": "object"}},
    {"name": "get_data", "description": "Fetch a data context"}
  ]
}`

func newManifestServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(testManifestJSON))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStatusServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func sessionArgs(baseURL string, args ...string) []string {
	return append(args, "--base-url", baseURL, "--session", "ABC123")
}

func requireExitCode(t *testing.T, err error, want int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected ExitError with code %d, got nil", want)
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		t.Fatalf("expected ExitError, got %T: %v", err, err)
	}
	if exitErr.Code != want {
		t.Fatalf("exit code = %d, want %d (message: %s)", exitErr.Code, want, exitErr.Message)
	}
}

// --- Manifest command tests ---

func TestManifest_TableOutput(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "manifest")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "API version: 1.0.0") {
		t.Errorf("expected API version line, got: %q", stdout)
	}
	if !strings.Contains(stdout, "create_graph") || !strings.Contains(stdout, "Create a graph component") {
		t.Errorf("expected tool rows, got: %q", stdout)
	}
}

func TestManifest_JSONOutput(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "manifest", "--json")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	var decoded struct {
		APIVersion string `json:"apiVersion"`
		Tools      []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	if err := json.Unmarshal([]byte(stdout), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if decoded.APIVersion != "1.0.0" || len(decoded.Tools) != 2 {
		t.Fatalf("decoded manifest = %+v, want 2 tools at 1.0.0", decoded)
	}
}

func TestManifest_EndpointFailure(t *testing.T) {
	clearConfigEnv(t)
	srv := newStatusServer(t, http.StatusInternalServerError, `{"error":"relay crashed"}`)

	_, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "manifest")...)
	requireExitCode(t, err, exitEndpoint)
	if !strings.Contains(err.Error(), "Internal Server Error: relay crashed") {
		t.Errorf("error should carry the classified message, got: %q", err.Error())
	}
}

func TestManifest_RequiresBaseURL(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := executeCommand(NewRootCmd(), "manifest", "--session", "ABC123")
	requireExitCode(t, err, exitUsage)
}

func TestManifest_RequiresSession(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	_, _, err := executeCommand(NewRootCmd(), "manifest", "--base-url", srv.URL)
	requireExitCode(t, err, exitUsage)
}

// --- Tools command tests ---

func TestToolsList_NamesOnly(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "list")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if stdout != "create_graph\nget_data\n" {
		t.Errorf("tools list output = %q, want names one per line", stdout)
	}
}

func TestToolsList_JSON(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "list", "--json")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	var summaries []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal([]byte(stdout), &summaries); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if len(summaries) != 2 || summaries[0].Name != "create_graph" {
		t.Fatalf("summaries = %+v, want create_graph first of 2", summaries)
	}
}

func TestToolsSchema_Found(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "schema", "create_graph")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, `"type": "object"`) {
		t.Errorf("expected schema JSON, got: %q", stdout)
	}
}

func TestToolsSchema_NoSchemaDeclared(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "schema", "get_data")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "declares no input schema") {
		t.Errorf("expected no-schema notice, got: %q", stdout)
	}
}

func TestToolsSchema_Missing(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	_, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "schema", "delete_graph")...)
	requireExitCode(t, err, exitToolMissing)
}

func TestToolsCheck_Available(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "check", "get_data")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if strings.TrimSpace(stdout) != "available" {
		t.Errorf("stdout = %q, want available", stdout)
	}
}

func TestToolsCheck_Unavailable(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "tools", "check", "delete_graph")...)
	requireExitCode(t, err, exitToolMissing)
	if strings.TrimSpace(stdout) != "unavailable" {
		t.Errorf("stdout = %q, want unavailable", stdout)
	}
}

// --- Negotiate command tests ---

func newVersionedServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		requested := r.Header.Get("Accept-Version")
		if requested == "" || requested == "1.0.0" {
			_, _ = w.Write([]byte(testManifestJSON))
			return
		}
		w.WriteHeader(http.StatusNotAcceptable)
		_, _ = w.Write([]byte(`{"error":"unsupported","requestedVersion":"` + requested + `","supportedVersions":["1.0.0"]}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNegotiate_AllSupported(t *testing.T) {
	clearConfigEnv(t)
	srv := newVersionedServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "negotiate", "1.0.0")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "yes") || !strings.Contains(stdout, "negotiated 1.0.0") {
		t.Errorf("expected supported row, got: %q", stdout)
	}
}

func TestNegotiate_MixedSupport(t *testing.T) {
	clearConfigEnv(t)
	srv := newVersionedServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "negotiate", "1.0.0", "2.0.0")...)
	requireExitCode(t, err, exitUnsupported)
	if !strings.Contains(stdout, "Unsupported version: 2.0.0") {
		t.Errorf("expected rejection reason in table, got: %q", stdout)
	}
	if !strings.Contains(stdout, "supported: 1.0.0") {
		t.Errorf("expected supported versions detail, got: %q", stdout)
	}
}

func TestNegotiate_InfrastructureFailurePropagates(t *testing.T) {
	clearConfigEnv(t)
	srv := newStatusServer(t, http.StatusForbidden, `{"error":"Session expired"}`)

	_, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "negotiate", "1.0.0")...)
	requireExitCode(t, err, exitEndpoint)
}

// --- Probe command tests ---

func TestProbe_OK(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "probe")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "Status: ok") || !strings.Contains(stdout, "Tools: 2") {
		t.Errorf("probe output = %q", stdout)
	}
}

func TestProbe_ExpiredSession(t *testing.T) {
	clearConfigEnv(t)
	srv := newStatusServer(t, http.StatusForbidden, `{"error":"Session expired"}`)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "probe")...)
	requireExitCode(t, err, exitProbeFailed)
	if !strings.Contains(stdout, "Status: expired") {
		t.Errorf("probe output = %q, want expired status", stdout)
	}
}

func TestProbe_JSON(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	stdout, _, err := executeCommand(NewRootCmd(), sessionArgs(srv.URL, "probe", "--json")...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	var result struct {
		Status     string `json:"status"`
		APIVersion string `json:"api_version"`
	}
	if err := json.Unmarshal([]byte(stdout), &result); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, stdout)
	}
	if result.Status != "ok" || result.APIVersion != "1.0.0" {
		t.Fatalf("probe result = %+v", result)
	}
}

// --- Watch and history command tests ---

func TestWatch_OnceRecordsSnapshot(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)
	historyPath := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := executeCommand(NewRootCmd(),
		sessionArgs(srv.URL, "watch", "--once", "--history", historyPath)...)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "Recorded snapshot for session ABC123") {
		t.Errorf("watch --once output = %q", stdout)
	}

	histOut, _, err := executeCommand(NewRootCmd(),
		"history", "--history", historyPath, "--session", "ABC123")
	if err != nil {
		t.Fatalf("history error: %v", err)
	}
	if !strings.Contains(histOut, "1.0.0") {
		t.Errorf("history output = %q, want recorded snapshot row", histOut)
	}
}

func TestWatch_OnceEndpointFailure(t *testing.T) {
	clearConfigEnv(t)
	srv := newStatusServer(t, http.StatusUnauthorized, `{"error":"Invalid token"}`)

	_, _, err := executeCommand(NewRootCmd(),
		sessionArgs(srv.URL, "watch", "--once", "--no-history")...)
	requireExitCode(t, err, exitEndpoint)
}

func TestWatch_RejectsBadSchedule(t *testing.T) {
	clearConfigEnv(t)
	srv := newManifestServer(t)

	_, _, err := executeCommand(NewRootCmd(),
		sessionArgs(srv.URL, "watch", "--once", "--no-history", "--schedule", "CRON_TZ=UTC * * * * *")...)
	requireExitCode(t, err, exitUsage)
}

func TestHistory_EmptyStore(t *testing.T) {
	clearConfigEnv(t)
	historyPath := filepath.Join(t.TempDir(), "history.db")

	stdout, _, err := executeCommand(NewRootCmd(),
		"history", "--history", historyPath, "--session", "ABC123")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "No snapshots recorded") {
		t.Errorf("history output = %q", stdout)
	}
}

func TestHistory_RequiresSession(t *testing.T) {
	clearConfigEnv(t)

	_, _, err := executeCommand(NewRootCmd(), "history")
	requireExitCode(t, err, exitUsage)
}

// --- Root command tests ---

func TestRoot_Help(t *testing.T) {
	clearConfigEnv(t)

	stdout, _, err := executeCommand(NewRootCmd(), "--help")
	if err != nil {
		t.Fatalf("--help should not error, got: %v", err)
	}
	for _, name := range []string{"manifest", "tools", "negotiate", "probe", "watch", "history"} {
		if !strings.Contains(stdout, name) {
			t.Errorf("help should list %q command", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	clearConfigEnv(t)

	stdout, _, err := executeCommand(NewRootCmd(), "version")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if !strings.Contains(stdout, "codapmeta version") {
		t.Errorf("version output = %q", stdout)
	}
}
