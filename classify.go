package codapmeta

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// errorBody is the normalized view of a non-200 response body. Defaults
// mirror the relay contract: a missing error field reads "HTTP {status}
// error", a missing requestedVersion reads "unknown", and a missing
// supportedVersions list is empty, never nil.
type errorBody struct {
	message           string
	requestedVersion  string
	supportedVersions []string
}

// classify maps a completed non-200 response onto exactly one ClientError.
// Dispatch is on the numeric status alone; advisory headers never
// influence it.
func classify(statusCode int, body []byte) *ClientError {
	doc := parseErrorBody(statusCode, body)

	switch statusCode {
	case http.StatusBadRequest:
		return newClientError(KindBadRequest, ErrorCodeBadRequest,
			fmt.Sprintf("Bad Request: %s", doc.message), statusCode, nil)
	case http.StatusUnauthorized:
		return newClientError(KindAuthenticationFailed, ErrorCodeAuthenticationFailed,
			fmt.Sprintf("Unauthorized: %s", doc.message), statusCode, nil)
	case http.StatusForbidden:
		return newClientError(KindSessionExpired, ErrorCodeSessionExpired,
			fmt.Sprintf("Forbidden: %s", doc.message), statusCode, nil)
	case http.StatusMethodNotAllowed:
		return newClientError(KindMethodNotAllowed, ErrorCodeMethodNotAllowed,
			fmt.Sprintf("Method Not Allowed: %s", doc.message), statusCode, nil)
	case http.StatusNotAcceptable:
		clientErr := newClientError(KindVersionNotSupported, ErrorCodeVersionNotSupported,
			fmt.Sprintf("Unsupported version: %s", doc.requestedVersion), statusCode, nil)
		clientErr.RequestedVersion = doc.requestedVersion
		clientErr.SupportedVersions = doc.supportedVersions
		return clientErr
	case http.StatusInternalServerError:
		return newClientError(KindServerError, ErrorCodeServerError,
			fmt.Sprintf("Internal Server Error: %s", doc.message), statusCode, nil)
	default:
		return newClientError(KindUnknownHTTP, ErrorCodeUnknownHTTP,
			fmt.Sprintf("HTTP %d: %s", statusCode, doc.message), statusCode, nil)
	}
}

// parseErrorBody never fails: a body that is not a JSON object is folded
// into the message, and a blank body reads "Unknown error".
func parseErrorBody(statusCode int, body []byte) errorBody {
	parsed := errorBody{
		message:           fmt.Sprintf("HTTP %d error", statusCode),
		requestedVersion:  "unknown",
		supportedVersions: []string{},
	}

	var doc map[string]any
	if err := json.Unmarshal(body, &doc); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			text = "Unknown error"
		}
		parsed.message = text
		return parsed
	}

	if msg, ok := doc["error"].(string); ok {
		parsed.message = msg
	}
	if version, ok := doc["requestedVersion"].(string); ok {
		parsed.requestedVersion = version
	}
	if raw, ok := doc["supportedVersions"].([]any); ok {
		versions := make([]string, 0, len(raw))
		for _, entry := range raw {
			if version, ok := entry.(string); ok {
				versions = append(versions, version)
			}
		}
		parsed.supportedVersions = versions
	}
	return parsed
}

// decodeManifest parses a 200 body. Decode failures are typed so callers
// can tell a broken body apart from a broken connection.
func decodeManifest(body []byte) (*ToolManifest, *ClientError) {
	var manifest ToolManifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, newClientError(KindMalformedResponse, ErrorCodeDecodeFailure,
			fmt.Sprintf("decode tool manifest: %v", err), http.StatusOK, err)
	}
	return &manifest, nil
}
