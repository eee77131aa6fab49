package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	digest "github.com/opencontainers/go-digest"

	"github.com/glennswest/ociclient/pkg/image"
	"github.com/glennswest/ociclient/pkg/schema"
)

// Manifest is the result of GetManifest: exactly one of V1/V2 is set,
// matching whichever version was requested and successfully parsed.
type Manifest struct {
	V1 *schema.ManifestV1
	V2 *schema.ManifestV2
}

// Authenticated reports whether a GET /v2/ against the host succeeds
// without a 401. It never raises — auth failures and network errors both
// report false, since the caller's only question is "can I proceed".
func (c *Client) Authenticated(ctx context.Context) bool {
	resp, _, err := c.request(ctx, http.MethodGet, "/v2/", nil, nil, "", "")
	if err != nil {
		return false
	}
	return resp.StatusCode != http.StatusUnauthorized
}

// GetManifest fetches the manifest for (image, tag), requesting version
// "v1" or "v2" via the appropriate Accept header.
func (c *Client) GetManifest(ctx context.Context, repo, tag, version string) (*Manifest, error) {
	var mediaType string
	switch version {
	case "v1":
		mediaType = schema.MediaTypeManifestV1
	case "v2":
		mediaType = schema.MediaTypeManifestV2
	default:
		return nil, formatErrorf("get manifest: unsupported version %q", version)
	}

	headers := http.Header{"Accept": []string{mediaType}}
	path := fmt.Sprintf("/v2/%s/manifests/%s", repo, tag)
	resp, body, err := c.request(ctx, http.MethodGet, path, headers, nil, repo, "pull")
	if err != nil {
		return nil, err
	}
	if !statusOK(resp, http.StatusOK) {
		return nil, protocolErrorFromResponse("get_manifest", resp, body)
	}

	m := &Manifest{}
	switch version {
	case "v1":
		m.V1 = &schema.ManifestV1{}
		if err := json.Unmarshal(body, m.V1); err != nil {
			return nil, formatErrorf("parsing manifest v1: %v", err)
		}
	case "v2":
		m.V2 = &schema.ManifestV2{}
		if err := json.Unmarshal(body, m.V2); err != nil {
			return nil, formatErrorf("parsing manifest v2: %v", err)
		}
	}
	return m, nil
}

// GetManifestDigest returns the Docker-Content-Digest header for (image,
// tag) via a HEAD request, without fetching the manifest body.
func (c *Client) GetManifestDigest(ctx context.Context, repo, tag string) (string, error) {
	headers := http.Header{"Accept": []string{schema.MediaTypeManifestV2}}
	path := fmt.Sprintf("/v2/%s/manifests/%s", repo, tag)
	resp, body, err := c.request(ctx, http.MethodHead, path, headers, nil, repo, "pull")
	if err != nil {
		return "", err
	}
	if !statusOK(resp, http.StatusOK) {
		return "", protocolErrorFromResponse("get_manifest_digest", resp, body)
	}
	return resp.Header.Get("Docker-Content-Digest"), nil
}

// GetManifestConfiguration fetches the v2 manifest for (image, tag) and
// then its config blob, returning the parsed Config document.
func (c *Client) GetManifestConfiguration(ctx context.Context, repo, tag string) (*schema.Config, error) {
	m, err := c.GetManifest(ctx, repo, tag, "v2")
	if err != nil {
		return nil, err
	}
	cfgBytes, err := c.GetBlob(ctx, repo, m.V2.Config.Digest)
	if err != nil {
		return nil, err
	}
	var cfg schema.Config
	if err := json.Unmarshal(cfgBytes, &cfg); err != nil {
		return nil, formatErrorf("parsing config blob: %v", err)
	}
	return &cfg, nil
}

// CheckBlob reports whether blobsum (a full "sha256:<hex>" digest)
// exists in repo, via HEAD.
func (c *Client) CheckBlob(ctx context.Context, repo, blobsum string) (bool, error) {
	path := fmt.Sprintf("/v2/%s/blobs/%s", repo, blobsum)
	resp, _, err := c.request(ctx, http.MethodHead, path, nil, nil, repo, "pull")
	if err != nil {
		return false, err
	}
	return resp.StatusCode == http.StatusOK, nil
}

// GetBlob fetches the raw (still gzip-compressed, for layers) bytes of
// blobsum.
func (c *Client) GetBlob(ctx context.Context, repo, blobsum string) ([]byte, error) {
	path := fmt.Sprintf("/v2/%s/blobs/%s", repo, blobsum)
	resp, body, err := c.request(ctx, http.MethodGet, path, nil, nil, repo, "pull")
	if err != nil {
		return nil, err
	}
	if !statusOK(resp, http.StatusOK) {
		return nil, protocolErrorFromResponse("get_blob", resp, body)
	}
	return body, nil
}

// BeginUpload starts a blob upload session for repo, returning the
// Location the blob (or its digest-qualified PUT) should be sent to.
func (c *Client) BeginUpload(ctx context.Context, repo string) (string, error) {
	path := fmt.Sprintf("/v2/%s/blobs/uploads/", repo)
	resp, body, err := c.request(ctx, http.MethodPost, path, nil, nil, repo, "push")
	if err != nil {
		return "", err
	}
	if !statusOK(resp, http.StatusAccepted) {
		return "", protocolErrorFromResponse("begin_upload", resp, body)
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return "", fmt.Errorf("begin_upload: response carried no Location header")
	}
	return location, nil
}

// UploadBlob completes a monolithic blob upload at location (as returned
// by BeginUpload) with the given raw bytes and checksum (hex, no
// "sha256:" prefix).
func (c *Client) UploadBlob(ctx context.Context, repo, location string, data []byte, checksum string) error {
	u, err := url.Parse(location)
	if err != nil {
		return fmt.Errorf("upload_blob: parsing location: %w", err)
	}
	q := u.Query()
	q.Set("digest", digest.NewDigestFromEncoded(digest.SHA256, checksum).String())
	u.RawQuery = q.Encode()

	headers := http.Header{"Content-Type": []string{schema.MediaTypeOctetStream}}
	resp, body, err := c.request(ctx, http.MethodPut, u.String(), headers, bytesReader(data), repo, "push")
	if err != nil {
		return err
	}
	if !statusOK(resp, http.StatusCreated) {
		return protocolErrorFromResponse("upload_blob", resp, body)
	}
	return nil
}

// UploadManifest uploads bundle's config blob (if the registry doesn't
// already have it) and then the manifest itself, tagging it as tag.
func (c *Client) UploadManifest(ctx context.Context, repo, tag string, bundle *image.ManifestV2Bundle) error {
	has, err := c.CheckBlob(ctx, repo, digest.NewDigestFromEncoded(digest.SHA256, bundle.ConfigDigest).String())
	if err != nil {
		return err
	}
	if !has {
		location, err := c.BeginUpload(ctx, repo)
		if err != nil {
			return err
		}
		if err := c.UploadBlob(ctx, repo, location, bundle.ConfigBytes, bundle.ConfigDigest); err != nil {
			return err
		}
	}

	path := fmt.Sprintf("/v2/%s/manifests/%s", repo, tag)
	headers := http.Header{"Content-Type": []string{schema.MediaTypeManifestV2}}
	resp, body, err := c.request(ctx, http.MethodPut, path, headers, bytesReader(bundle.ManifestBytes), repo, "push")
	if err != nil {
		return err
	}
	if !statusOK(resp, http.StatusCreated) {
		return protocolErrorFromResponse("upload_manifest", resp, body)
	}
	return nil
}

// ListImages returns the registry catalog's repository names.
func (c *Client) ListImages(ctx context.Context, n int, last string) ([]string, error) {
	path := "/v2/_catalog" + pagingQuery(n, last)
	resp, body, err := c.request(ctx, http.MethodGet, path, nil, nil, "", "")
	if err != nil {
		return nil, err
	}
	if !statusOK(resp, http.StatusOK) {
		return nil, protocolErrorFromResponse("list_images", resp, body)
	}
	var out struct {
		Repositories []string `json:"repositories"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing catalog response: %w", err)
	}
	return out.Repositories, nil
}

// ListImageTags returns the tags known for repo. The result may be nil
// if the registry reports none.
func (c *Client) ListImageTags(ctx context.Context, repo string, n int, last string) ([]string, error) {
	path := fmt.Sprintf("/v2/%s/tags/list%s", repo, pagingQuery(n, last))
	resp, body, err := c.request(ctx, http.MethodGet, path, nil, nil, repo, "pull")
	if err != nil {
		return nil, err
	}
	if !statusOK(resp, http.StatusOK) {
		return nil, protocolErrorFromResponse("list_image_tags", resp, body)
	}
	var out struct {
		Tags []string `json:"tags"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("parsing tags response: %w", err)
	}
	return out.Tags, nil
}

// DeleteImage resolves tag to a digest and deletes the manifest by
// digest, as the v2 spec requires (DELETE by tag is not guaranteed to be
// supported by registries).
func (c *Client) DeleteImage(ctx context.Context, repo, tag string) error {
	digest, err := c.GetManifestDigest(ctx, repo, tag)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/v2/%s/manifests/%s", repo, digest)
	resp, body, err := c.request(ctx, http.MethodDelete, path, nil, nil, repo, "push")
	if err != nil {
		return err
	}
	if !statusOK(resp, http.StatusAccepted) {
		return protocolErrorFromResponse("delete_image", resp, body)
	}
	return nil
}

func pagingQuery(n int, last string) string {
	if n <= 0 && last == "" {
		return ""
	}
	q := url.Values{}
	if n > 0 {
		q.Set("n", strconv.Itoa(n))
	}
	if last != "" {
		q.Set("last", last)
	}
	return "?" + q.Encode()
}

func bytesReader(b []byte) *bytes.Reader {
	return bytes.NewReader(b)
}
