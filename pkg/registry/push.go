package registry

import (
	"context"

	digest "github.com/opencontainers/go-digest"
	"golang.org/x/sync/errgroup"

	"github.com/glennswest/ociclient/pkg/image"
)

// maxConcurrentUploads bounds how many layer blobs PushImage uploads at
// once. Layers may be uploaded in parallel as long as every upload
// completes before the manifest PUT; this keeps a push from opening one
// connection per layer on a large image.
const maxConcurrentUploads = 4

// PushImage uploads every layer img needs (skipping any the registry
// already has) and then the manifest. Existence-probing before each
// upload is what preserves laziness end-to-end: a pulled-lazy layer
// whose blob the destination already has is never decompressed or read.
func (c *Client) PushImage(ctx context.Context, img *image.Image) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)

	for _, l := range img.LayersBaseFirst() {
		l := l
		g.Go(func() error {
			return c.pushLayer(gctx, img.Name, l)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	bundle, err := img.ManifestV2Bundle()
	if err != nil {
		return err
	}
	c.log.Infow("pushing manifest", "repo", img.Name, "tag", img.Tag, "digest", bundle.ManifestDigest)
	return c.UploadManifest(ctx, img.Name, img.Tag, bundle)
}

func (c *Client) pushLayer(ctx context.Context, repo string, l *image.Layer) error {
	compressedChecksum, err := l.CompressedChecksum()
	if err != nil {
		return err
	}

	has, err := c.CheckBlob(ctx, repo, digest.NewDigestFromEncoded(digest.SHA256, compressedChecksum).String())
	if err != nil {
		return err
	}
	if has {
		c.log.Debugw("skipping layer already present", "repo", repo, "digest", compressedChecksum)
		return nil
	}

	data, err := l.CompressedContent()
	if err != nil {
		return err
	}

	location, err := c.BeginUpload(ctx, repo)
	if err != nil {
		return err
	}
	return c.UploadBlob(ctx, repo, location, data, compressedChecksum)
}
