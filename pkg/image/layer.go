package image

import (
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sync"

	digest "github.com/opencontainers/go-digest"

	"github.com/glennswest/ociclient/pkg/image/content"
	"github.com/glennswest/ociclient/pkg/schema"
)

// Layer is the fundamental content-addressed unit of an Image: raw
// ("diff") tar bytes and their gzip-compressed ("blob") form, each with
// its own SHA-256 identity, plus the metadata carried alongside a v1
// archive layer entry.
//
// Content is a variant (see package content): either bytes already in
// hand, or a thunk resolved on first access. Checksums and sizes may be
// known up front (e.g. from a registry manifest, without having fetched
// anything) or computed lazily from content the first time they're asked
// for. Either way each value is computed at most once and memoized.
type Layer struct {
	ID     string
	Parent string

	Architecture string
	OS           string
	Created      string
	Author       string
	Config       schema.ConfigConfig

	mu                 sync.Mutex
	content            content.Source
	compressedContent  content.Source
	checksum           string
	compressedChecksum string
	size               int64
	compressedSize     int64
}

const sizeUnknown = -1

// NewLayerFromContent builds a Layer whose uncompressed content is
// already in memory. Size is known at once; checksum, compressed form,
// and compressed size are computed lazily on first access.
func NewLayerFromContent(raw []byte) *Layer {
	return &Layer{
		content:        content.FromBytes(raw),
		size:           int64(len(raw)),
		compressedSize: sizeUnknown,
	}
}

// NewLazyLayer builds a Layer for a pulled-but-not-yet-downloaded blob:
// checksum (diffID) and compressedChecksum/compressedSize are already
// known from the manifest/config without fetching anything; content is a
// thunk that decompresses the blob on first real access.
func NewLazyLayer(fetchAndGunzip content.Thunk, checksum, compressedChecksum string, compressedSize int64) *Layer {
	return &Layer{
		content:            content.FromThunk(fetchAndGunzip),
		checksum:           checksum,
		compressedChecksum: compressedChecksum,
		size:               sizeUnknown,
		compressedSize:     compressedSize,
	}
}

// Content forces and returns the uncompressed tar bytes.
func (l *Layer) Content() ([]byte, error) {
	l.mu.Lock()
	src := l.content
	compressedSrc := l.compressedContent
	l.mu.Unlock()

	if src != nil {
		return src.Bytes()
	}
	if compressedSrc == nil {
		return nil, fmt.Errorf("layer %s: no content available", l.ID)
	}

	gz, err := compressedSrc.Bytes()
	if err != nil {
		return nil, err
	}
	raw, err := gunzip(gz)
	if err != nil {
		return nil, fmt.Errorf("layer %s: decompressing content: %w", l.ID, err)
	}

	l.mu.Lock()
	l.content = content.FromBytes(raw)
	l.mu.Unlock()
	return raw, nil
}

// CompressedContent forces and returns the gzip-compressed blob bytes,
// compressing the uncompressed content (mtime forced to 0 for bit-
// reproducibility) if no compressed form has been attached directly.
func (l *Layer) CompressedContent() ([]byte, error) {
	l.mu.Lock()
	compressedSrc := l.compressedContent
	src := l.content
	l.mu.Unlock()

	if compressedSrc != nil {
		return compressedSrc.Bytes()
	}
	if src == nil {
		return nil, fmt.Errorf("layer %s: no content available", l.ID)
	}

	raw, err := src.Bytes()
	if err != nil {
		return nil, err
	}
	gz, err := gzipReproducible(raw)
	if err != nil {
		return nil, fmt.Errorf("layer %s: compressing content: %w", l.ID, err)
	}

	l.mu.Lock()
	l.compressedContent = content.FromBytes(gz)
	l.mu.Unlock()
	return gz, nil
}

// ContentResolved reports whether the layer's content has already been
// forced: true means reading Content()/CompressedContent() returns
// cached bytes, false means it would trigger a real fetch (registry
// download, disk read). Tests use it to check that a thunk has not run.
func (l *Layer) ContentResolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.content != nil {
		return l.content.Resolved()
	}
	if l.compressedContent != nil {
		return l.compressedContent.Resolved()
	}
	return false
}

// Checksum returns the SHA-256 hex digest of the uncompressed content
// (the "diffID"), computing it from Content() on first call if not
// already known.
func (l *Layer) Checksum() (string, error) {
	l.mu.Lock()
	cached := l.checksum
	l.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	raw, err := l.Content()
	if err != nil {
		return "", err
	}
	sum := sha256Hex(raw)

	l.mu.Lock()
	l.checksum = sum
	l.mu.Unlock()
	return sum, nil
}

// CompressedChecksum returns the SHA-256 hex digest of the gzip-compressed
// content (the registry "blob digest"), computing it from
// CompressedContent() on first call if not already known.
func (l *Layer) CompressedChecksum() (string, error) {
	l.mu.Lock()
	cached := l.compressedChecksum
	l.mu.Unlock()
	if cached != "" {
		return cached, nil
	}

	gz, err := l.CompressedContent()
	if err != nil {
		return "", err
	}
	sum := sha256Hex(gz)

	l.mu.Lock()
	l.compressedChecksum = sum
	l.mu.Unlock()
	return sum, nil
}

// Size returns len(content), computing it on first call if not already
// known (e.g. from a v1 archive tar header or registry config diff_ids
// entry, neither of which carries an uncompressed size up front).
func (l *Layer) Size() (int64, error) {
	l.mu.Lock()
	cached := l.size
	l.mu.Unlock()
	if cached != sizeUnknown && cached != 0 {
		return cached, nil
	}

	raw, err := l.Content()
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.size = int64(len(raw))
	l.mu.Unlock()
	return int64(len(raw)), nil
}

// CompressedSize returns len(compressed_content), computing it on first
// call if not already known.
func (l *Layer) CompressedSize() (int64, error) {
	l.mu.Lock()
	cached := l.compressedSize
	l.mu.Unlock()
	if cached != sizeUnknown && cached != 0 {
		return cached, nil
	}

	gz, err := l.CompressedContent()
	if err != nil {
		return 0, err
	}

	l.mu.Lock()
	l.compressedSize = int64(len(gz))
	l.mu.Unlock()
	return int64(len(gz)), nil
}

// VerifyChecksum forces Content() and compares its SHA-256 against want,
// the digest a caller announced (e.g. a registry manifest's diffID).
// Returns *IntegrityError on mismatch; the layer must not be admitted to
// an Image in that case.
func (l *Layer) VerifyChecksum(want string) error {
	raw, err := l.Content()
	if err != nil {
		return err
	}
	got := sha256Hex(raw)
	if got != want {
		return &IntegrityError{Want: want, Got: got}
	}
	return nil
}

// sha256Hex returns the hex-encoded digest (no "sha256:" prefix), the
// form used internally for layer checksums and ManifestV2Bundle digests.
func sha256Hex(b []byte) string {
	return digest.FromBytes(b).Encoded()
}

// digestString returns the "sha256:<hex>" form used on the wire: manifest
// v2 descriptors, config rootfs diff_ids, and registry blob digests.
func digestString(b []byte) string {
	return digest.FromBytes(b).String()
}

// gzipReproducible compresses raw with the gzip mtime field forced to 0,
// so that repeated compression of identical content always produces
// identical bytes — required by a layer's blob digest to be stable
// across pushes.
func gzipReproducible(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	zw.Header.ModTime = epoch
	if _, err := zw.Write(raw); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gunzip(gz []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
