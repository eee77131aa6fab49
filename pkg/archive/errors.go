package archive

import "fmt"

// FormatError reports a malformed or incomplete v1 archive: bad JSON in
// manifest.json or a layer's json sidecar, a missing manifest.json,
// config, layer.tar or json file, or (on write) an image without a
// config document or a layer without an id.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("archive format error: %s", e.Reason)
}

func formatErrorf(format string, args ...any) error {
	return &FormatError{Reason: fmt.Sprintf(format, args...)}
}
