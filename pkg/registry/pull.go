package registry

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"

	gdigest "github.com/opencontainers/go-digest"

	"github.com/glennswest/ociclient/pkg/image"
	"github.com/glennswest/ociclient/pkg/image/content"
	"github.com/glennswest/ociclient/pkg/schema"
)

// PullImage fetches the v2 manifest and config for (repo, tag) and
// reconstructs an image.Image, top-first. diff_ids and manifest layers
// are base-first on the wire; walking them forward and prepending each
// onto img.Layers reverses that into top-first order, with the base
// layer last and parent=="". In lazy mode, layer content is attached as
// an unforced thunk: nothing is downloaded until a caller actually reads
// it.
func (c *Client) PullImage(ctx context.Context, repo, tag string, lazy bool) (*image.Image, error) {
	manifest, err := c.GetManifest(ctx, repo, tag, "v2")
	if err != nil {
		return nil, err
	}
	cfgBytes, err := c.GetBlob(ctx, repo, manifest.V2.Config.Digest)
	if err != nil {
		return nil, err
	}
	var cfg schema.Config
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		return nil, formatErrorf("parsing config blob: %v", err)
	}

	if len(cfg.RootFS.DiffIDs) != len(manifest.V2.Layers) {
		return nil, formatErrorf("pull %s:%s: %d diff_ids but %d manifest layers", repo, tag, len(cfg.RootFS.DiffIDs), len(manifest.V2.Layers))
	}

	img := image.New(repo, tag)

	parent := ""
	for i := 0; i < len(manifest.V2.Layers); i++ {
		diffID := cfg.RootFS.DiffIDs[i]
		mlayer := manifest.V2.Layers[i]

		checksum := stripDigestPrefix(diffID)
		compressedChecksum := stripDigestPrefix(mlayer.Digest)

		var created, author string
		if i < len(cfg.History) {
			created = cfg.History[i].Created
		}

		var layer *image.Layer
		if lazy {
			blobDigest := mlayer.Digest
			layer = image.NewLazyLayer(content.Thunk(func() ([]byte, error) {
				return c.fetchAndGunzip(ctx, repo, blobDigest)
			}), checksum, compressedChecksum, mlayer.Size)
		} else {
			raw, err := c.fetchAndGunzip(ctx, repo, mlayer.Digest)
			if err != nil {
				return nil, err
			}
			layer = image.NewLayerFromContent(raw)
			if err := layer.VerifyChecksum(checksum); err != nil {
				return nil, err
			}
		}

		layer.ID = checksum
		layer.Parent = parent
		layer.Architecture = cfg.Architecture
		layer.OS = cfg.OS
		layer.Created = created
		layer.Author = author
		layer.Config = cfg.Config

		img.Layers = append([]*image.Layer{layer}, img.Layers...)
		parent = layer.ID
	}

	c.log.Infow("pulled image", "repo", repo, "tag", tag, "layers", len(img.Layers), "lazy", lazy)
	return img, nil
}

func (c *Client) fetchAndGunzip(ctx context.Context, repo, digest string) ([]byte, error) {
	gz, err := c.GetBlob(ctx, repo, digest)
	if err != nil {
		return nil, err
	}
	raw, err := gunzipBlob(gz)
	if err != nil {
		return nil, formatErrorf("decompressing blob %s: %v", digest, err)
	}
	return raw, nil
}

func gunzipBlob(gz []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(gz))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}

func stripDigestPrefix(d string) string {
	if dg, err := gdigest.Parse(d); err == nil {
		return dg.Encoded()
	}
	return d
}
