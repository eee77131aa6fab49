package schema

import "fmt"

// RegistryErrorCode enumerates the OCI distribution error codes this
// client understands. Unrecognized codes from a registry are still
// surfaced, carried verbatim as the code string.
type RegistryErrorCode string

// Registry error codes, per the OCI distribution specification's error code table.
const (
	ErrNameUnknown     RegistryErrorCode = "NAME_UNKNOWN"
	ErrBlobUnknown     RegistryErrorCode = "BLOB_UNKNOWN"
	ErrManifestUnknown RegistryErrorCode = "MANIFEST_UNKNOWN"
	ErrUnauthorized    RegistryErrorCode = "UNAUTHORIZED"
	ErrUnsupported     RegistryErrorCode = "UNSUPPORTED"
	ErrDenied          RegistryErrorCode = "DENIED"
)

// RegistryError is one entry of a registry's `{"errors": [...]}` response
// body, as defined by the OCI distribution spec.
type RegistryError struct {
	Code       RegistryErrorCode `json:"code"`
	Message    string            `json:"message"`
	Detail     any               `json:"detail,omitempty"`
	HTTPStatus int               `json:"-"`
}

func (e RegistryError) Error() string {
	return fmt.Sprintf("registry error %s (http %d): %s", e.Code, e.HTTPStatus, e.Message)
}

// RegistryErrorBody is the envelope a v2 registry returns on 4xx/5xx.
type RegistryErrorBody struct {
	Errors []RegistryError `json:"errors"`
}
