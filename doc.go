// Package codapmeta is a typed HTTP client for the CODAP MCP relay's
// session-metadata endpoint.
//
// The package is intentionally split by concern:
//   - client: request construction and the single wire operation
//   - classify: HTTP status and body mapping into typed errors
//   - facade: convenience lookups with deliberate error swallowing
//   - negotiate: Accept-Version negotiation probing
//   - probe: one-shot endpoint reachability checks
//   - observability: per-exchange observer hook
//
// The client is intentionally thin: one request per call, no retries, no
// caching. Protocol evolution is handled through version negotiation
// rather than client-side recovery.
package codapmeta
