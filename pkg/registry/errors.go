package registry

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/glennswest/ociclient/pkg/schema"
)

// ProtocolError reports a non-2xx HTTP response from a required registry
// operation (manifest GET, blob PUT, manifest PUT, DELETE, …). The core
// never retries it silently; callers decide. Errors parses the response
// body's `{"errors": [...]}` envelope when the registry sent one.
type ProtocolError struct {
	Op         string
	URL        string
	StatusCode int
	Body       []byte
	Errors     []schema.RegistryError
}

func (e *ProtocolError) Error() string {
	if len(e.Errors) > 0 {
		return fmt.Sprintf("registry: %s %s: %s", e.Op, e.URL, e.Errors[0].Error())
	}
	return fmt.Sprintf("registry: %s %s: unexpected status %d: %s", e.Op, e.URL, e.StatusCode, truncate(e.Body, 512))
}

// Code returns the first registry error code in the response, or "" if the
// body didn't carry a recognized `{"errors": [...]}` envelope.
func (e *ProtocolError) Code() schema.RegistryErrorCode {
	if len(e.Errors) == 0 {
		return ""
	}
	return e.Errors[0].Code
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "…"
}

func protocolErrorFromResponse(op string, resp *http.Response, body []byte) *ProtocolError {
	pe := &ProtocolError{Op: op, URL: resp.Request.URL.String(), StatusCode: resp.StatusCode, Body: body}
	var envelope schema.RegistryErrorBody
	if json.Unmarshal(body, &envelope) == nil {
		for i := range envelope.Errors {
			envelope.Errors[i].HTTPStatus = resp.StatusCode
		}
		pe.Errors = envelope.Errors
	}
	return pe
}

// FormatError reports a malformed or internally inconsistent registry
// response: an unparseable manifest or config document, an unknown
// manifest version, a diff_ids/layers length mismatch, or a layer blob
// that fails to decompress. Fatal to the current operation. A digest
// mismatch on a verified download is reported as *image.IntegrityError.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string { return "registry: format error: " + e.Reason }

func formatErrorf(format string, args ...any) *FormatError {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}

// DaemonError reports a failure shelling out to a local container engine
// (load or tag) via DaemonLoader.
type DaemonError struct {
	Op     string
	Err    error
	Output []byte
}

func (e *DaemonError) Error() string {
	return fmt.Sprintf("daemon %s: %v: %s", e.Op, e.Err, truncate(e.Output, 512))
}

func (e *DaemonError) Unwrap() error { return e.Err }
