// Package image holds the in-memory Image/Layer model: an ordered chain
// of content-addressed layers plus a (name, tag), built by appending
// layers, loaded from a v1 tar archive, or pulled from a registry. The
// same Image can be written back to a tar file or pushed to a registry.
package image

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/glennswest/ociclient/pkg/schema"
)

// epoch is reused by gzip compression (layer.go) for reproducible blobs.
var epoch = time.Unix(0, 0).UTC()

// Image is an ordered sequence of Layers plus (Name, Tag). Layer order is
// top-first: index 0 is the newest layer, the last element is the base.
// Layers are added exclusively via AddLayer*/RemoveLayer; the slice itself
// is otherwise treated as immutable — mutating a layer's content would
// invalidate its checksum identity.
type Image struct {
	Name   string
	Tag    string
	Layers []*Layer // top-first
}

// New returns an empty Image for the given name and tag.
func New(name, tag string) *Image {
	return &Image{Name: name, Tag: tag}
}

// LayersBaseFirst returns Layers in base-first order (the order the wire
// format — v1 archive layer list, manifest v2 layers, config diff_ids —
// always demands), without mutating the Image.
func (img *Image) LayersBaseFirst() []*Layer {
	n := len(img.Layers)
	out := make([]*Layer, n)
	for i, l := range img.Layers {
		out[n-1-i] = l
	}
	return out
}

// LayersTopFirst returns a copy of Layers in the Image's own top-first
// order, for callers that want a stable snapshot.
func (img *Image) LayersTopFirst() []*Layer {
	out := make([]*Layer, len(img.Layers))
	copy(out, img.Layers)
	return out
}

// topID returns the id of the current top layer, or "" if the Image has
// no layers yet.
func (img *Image) topID() string {
	if len(img.Layers) == 0 {
		return ""
	}
	return img.Layers[0].ID
}

// AddLayerContents builds a new layer from in-memory file contents (see
// archive.WriteTarFromContents), assigns it an id (random unless baseID is
// supplied), sets its parent to the current top layer, and inserts it at
// index 0.
func (img *Image) AddLayerContents(contents map[string][]byte, baseID string) (*Layer, error) {
	raw, err := writeTarFromContents(contents)
	if err != nil {
		return nil, err
	}
	return img.addLayer(raw, baseID)
}

// AddLayerPath builds a new layer by walking a single filesystem path into
// an archive-rooted tar (see archive.WriteTarFromPath).
func (img *Image) AddLayerPath(src, arc string, recursive bool, baseID string) (*Layer, error) {
	raw, err := writeTarFromPath(src, arc, recursive)
	if err != nil {
		return nil, err
	}
	return img.addLayer(raw, baseID)
}

// AddLayerPaths builds a new layer from multiple (src, arc) roots (see
// archive.WriteTarFromPaths). Directories under each root are always
// walked recursively; the recursive argument is not consulted.
func (img *Image) AddLayerPaths(mappings []PathMapping, recursive bool, baseID string) (*Layer, error) {
	raw, err := writeTarFromPaths(mappings)
	if err != nil {
		return nil, err
	}
	return img.addLayer(raw, baseID)
}

// PathMapping mirrors archive.PathMapping at the image-model boundary, so
// callers of this package never need to import archive directly for the
// builder operations.
type PathMapping struct {
	Src string
	Arc string
}

func (img *Image) addLayer(raw []byte, baseID string) (*Layer, error) {
	l := NewLayerFromContent(raw)
	l.Parent = img.topID()

	if baseID != "" {
		l.ID = baseID
	} else {
		id, err := randomHexID()
		if err != nil {
			return nil, err
		}
		l.ID = id
	}

	img.Layers = append([]*Layer{l}, img.Layers...)
	return l, nil
}

// RemoveLayer pops the current top layer (index 0). It is a no-op on an
// empty Image.
func (img *Image) RemoveLayer() {
	if len(img.Layers) == 0 {
		return
	}
	img.Layers = img.Layers[1:]
}

// randomHexID generates a 32-byte (64 hex character) random layer id, the
// way new non-deterministic layers are identified in a v1 archive chain.
// Two uuid.NewRandom draws are concatenated to reach the full 32 bytes a
// v1 layer id requires. Callers on deterministic paths (pulled layers,
// archives round-tripping an existing id) must never go through this —
// they pass an explicit id or baseID instead.
func randomHexID() (string, error) {
	a, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	b, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString(strings.ReplaceAll(a.String(), "-", ""))
	sb.WriteString(strings.ReplaceAll(b.String(), "-", ""))
	return sb.String(), nil
}

// defaultConfigConfig supplies the config and container_config documents
// that ManifestV2Bundle writes into the image configuration.
func defaultConfigConfig() schema.ConfigConfig {
	return schema.DefaultConfigConfig()
}
