package image

import (
	"fmt"

	digest "github.com/opencontainers/go-digest"

	"github.com/glennswest/ociclient/pkg/schema"
)

// ManifestV2Bundle is the assembled (manifest, config) pair ready to push
// to a registry: the exact bytes hashed are the exact bytes transmitted.
type ManifestV2Bundle struct {
	ManifestBytes  []byte
	ManifestDigest string // hex, no "sha256:" prefix
	ConfigBytes    []byte
	ConfigDigest   string // hex, no "sha256:" prefix
}

// ManifestV2Bundle builds the manifest v2 + config document pair for img:
// walk layers base-first, append a diffID/history entry per layer to the
// config, a size/digest descriptor per layer to the manifest, then
// canonically serialize both and hash the exact bytes produced.
func (img *Image) ManifestV2Bundle() (*ManifestV2Bundle, error) {
	layersBaseFirst := img.LayersBaseFirst()

	arch, os := "amd64", "linux"
	if len(img.Layers) > 0 {
		if img.Layers[0].Architecture != "" {
			arch = img.Layers[0].Architecture
		}
		if img.Layers[0].OS != "" {
			os = img.Layers[0].OS
		}
	}

	cfg := schema.Config{
		Architecture:    arch,
		OS:              os,
		Config:          defaultConfigConfig(),
		ContainerConfig: defaultConfigConfig(),
		RootFS:          schema.NewConfigRootFS(),
	}

	manifest := schema.NewManifestV2()
	manifest.Layers = make([]schema.ManifestV2Layer, 0, len(layersBaseFirst))

	for _, l := range layersBaseFirst {
		checksum, err := l.Checksum()
		if err != nil {
			return nil, fmt.Errorf("layer %s: checksum: %w", l.ID, err)
		}
		compressedChecksum, err := l.CompressedChecksum()
		if err != nil {
			return nil, fmt.Errorf("layer %s: compressed checksum: %w", l.ID, err)
		}
		compressedSize, err := l.CompressedSize()
		if err != nil {
			return nil, fmt.Errorf("layer %s: compressed size: %w", l.ID, err)
		}

		cfg.History = append(cfg.History, schema.ConfigHistory{Created: l.Created})
		cfg.RootFS.DiffIDs = append(cfg.RootFS.DiffIDs, digest.NewDigestFromEncoded(digest.SHA256, checksum).String())

		manifest.Layers = append(manifest.Layers, schema.ManifestV2Layer{
			MediaType: schema.MediaTypeLayerGzip,
			Size:      compressedSize,
			Digest:    digest.NewDigestFromEncoded(digest.SHA256, compressedChecksum).String(),
		})
	}

	configBytes, err := schema.CanonicalJSON(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	configDigest := sha256Hex(configBytes)

	manifest.Config = schema.ManifestV2Config{
		MediaType: schema.MediaTypeConfig,
		Size:      int64(len(configBytes)),
		Digest:    digestString(configBytes),
	}

	manifestBytes, err := schema.CanonicalJSON(manifest)
	if err != nil {
		return nil, fmt.Errorf("marshaling manifest: %w", err)
	}
	manifestDigest := sha256Hex(manifestBytes)

	return &ManifestV2Bundle{
		ManifestBytes:  manifestBytes,
		ManifestDigest: manifestDigest,
		ConfigBytes:    configBytes,
		ConfigDigest:   configDigest,
	}, nil
}
