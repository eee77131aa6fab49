// Package archive implements the legacy "docker save" v1 tar archive codec:
// reading and writing the manifest.json/repositories index, per-layer
// VERSION/json sidecars and layer.tar streams, and the top-level image
// config document. It knows nothing about the in-memory Image model in
// package image — image.FromFilename/WriteFilename adapt to/from the
// archive.Image shape defined here, which keeps this package leaf-level
// and import-cycle free.
package archive

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"

	"github.com/glennswest/ociclient/pkg/schema"
)

// Layer is one layer entry inside a v1 archive, top-first order within an
// Image's Layers slice.
type Layer struct {
	ID      string
	Parent  string
	Content []byte // uncompressed layer tar bytes

	Architecture string
	OS           string
	Created      string
	Author       string
	Config       schema.ConfigConfig
}

// Image is one entry of a v1 archive's manifest.json, reconstructed
// top-first.
type Image struct {
	Name   string
	Tag    string
	Layers []*Layer // top-first

	// ConfigDocument is the raw bytes of the top-level image config JSON
	// (the file manifest.json's "Config" field points at). On Read it is
	// populated verbatim from the archive; on Write the caller must set it
	// (image.Image.ManifestV2Bundle's config_bytes is the natural source).
	ConfigDocument []byte
}

type manifestDescriptor struct {
	Config   string   `json:"Config"`
	RepoTags []string `json:"RepoTags"`
	Layers   []string `json:"Layers"`
}

type repositoriesDescriptor map[string]map[string]string

type v1LayerJSON struct {
	ID           string              `json:"id"`
	Parent       string              `json:"parent,omitempty"`
	Created      string              `json:"created,omitempty"`
	Author       string              `json:"author,omitempty"`
	Architecture string              `json:"architecture,omitempty"`
	OS           string              `json:"os,omitempty"`
	Config       schema.ConfigConfig `json:"config"`
}

// ReadV1 parses a v1 "docker save" tar archive into one Image per
// manifest.json entry.
func ReadV1(r io.Reader) ([]*Image, error) {
	files, err := readAllEntries(r)
	if err != nil {
		return nil, err
	}

	manifestRaw, ok := files["manifest.json"]
	if !ok {
		return nil, formatErrorf("missing manifest.json")
	}

	var descriptors []manifestDescriptor
	if err := json.Unmarshal(manifestRaw, &descriptors); err != nil {
		return nil, formatErrorf("parsing manifest.json: %v", err)
	}

	images := make([]*Image, 0, len(descriptors))
	for _, d := range descriptors {
		img, err := buildImageFromDescriptor(d, files)
		if err != nil {
			return nil, err
		}
		images = append(images, img)
	}
	return images, nil
}

func buildImageFromDescriptor(d manifestDescriptor, files map[string][]byte) (*Image, error) {
	cfgBytes, ok := files[d.Config]
	if !ok {
		return nil, formatErrorf("config %s referenced but not present in archive", d.Config)
	}

	name, tag := "", ""
	if len(d.RepoTags) > 0 {
		name, tag = splitRepoTag(d.RepoTags[0])
	}

	// d.Layers is base-first on the wire; reconstruct top-first.
	layersBaseFirst := make([]*Layer, 0, len(d.Layers))
	for _, layerPath := range d.Layers {
		dir := layerDir(layerPath)

		tarBytes, ok := files[dir+"/layer.tar"]
		if !ok {
			return nil, formatErrorf("layer.tar missing for %s", dir)
		}
		jsonRaw, ok := files[dir+"/json"]
		if !ok {
			return nil, formatErrorf("json sidecar missing for %s", dir)
		}

		var meta v1LayerJSON
		if err := json.Unmarshal(jsonRaw, &meta); err != nil {
			return nil, formatErrorf("parsing %s/json: %v", dir, err)
		}

		layersBaseFirst = append(layersBaseFirst, &Layer{
			ID:           meta.ID,
			Parent:       meta.Parent,
			Content:      tarBytes,
			Architecture: meta.Architecture,
			OS:           meta.OS,
			Created:      meta.Created,
			Author:       meta.Author,
			Config:       meta.Config,
		})
	}

	// Present top-first: reverse the base-first wire order.
	layersTopFirst := make([]*Layer, len(layersBaseFirst))
	for i, l := range layersBaseFirst {
		layersTopFirst[len(layersBaseFirst)-1-i] = l
	}

	return &Image{
		Name:           name,
		Tag:            tag,
		Layers:         layersTopFirst,
		ConfigDocument: cfgBytes,
	}, nil
}

// WriteV1 writes images to w in the v1 "docker save" tar layout,
// deterministically: fixed mtime 0 for every entry, ids taken as given
// from each Layer.ID (never invented here), and a fixed entry order —
// per image its config file, then each layer's layer.tar, json and
// VERSION base-first, with manifest.json and repositories last.
// manifest.json lists images in the order given. Entries are not
// sorted by name.
func WriteV1(w io.Writer, images []*Image) error {
	tw := tar.NewWriter(w)

	var descriptors []manifestDescriptor
	repos := make(repositoriesDescriptor)

	for _, img := range images {
		if len(img.ConfigDocument) == 0 {
			return formatErrorf("image %s:%s has no config document set", img.Name, img.Tag)
		}

		sum := sha256.Sum256(img.ConfigDocument)
		cfgHex := hex.EncodeToString(sum[:])
		cfgFileName := cfgHex + ".json"

		if err := writeEntry(tw, cfgFileName, img.ConfigDocument); err != nil {
			return err
		}

		// Layers are top-first in Image; the wire wants base-first.
		layersBaseFirst := make([]*Layer, len(img.Layers))
		for i, l := range img.Layers {
			layersBaseFirst[len(img.Layers)-1-i] = l
		}

		layerPaths := make([]string, len(layersBaseFirst))
		for i, l := range layersBaseFirst {
			if l.ID == "" {
				return formatErrorf("layer at base-index %d has no id", i)
			}

			layerPaths[i] = l.ID + "/layer.tar"
			if err := writeEntry(tw, l.ID+"/layer.tar", l.Content); err != nil {
				return err
			}

			meta := v1LayerJSON{
				ID:           l.ID,
				Parent:       l.Parent,
				Created:      l.Created,
				Author:       l.Author,
				Architecture: l.Architecture,
				OS:           l.OS,
				Config:       l.Config,
			}
			metaBytes, err := json.Marshal(meta)
			if err != nil {
				return fmt.Errorf("marshaling layer json for %s: %w", l.ID, err)
			}
			if err := writeEntry(tw, l.ID+"/json", metaBytes); err != nil {
				return err
			}
			if err := writeEntry(tw, l.ID+"/VERSION", []byte("1.0")); err != nil {
				return err
			}
		}

		var topLayerID string
		if len(layersBaseFirst) > 0 {
			topLayerID = layersBaseFirst[len(layersBaseFirst)-1].ID
		}

		var repoTags []string
		if img.Name != "" {
			tag := img.Tag
			if tag == "" {
				tag = "latest"
			}
			repoTag := img.Name + ":" + tag
			repoTags = []string{repoTag}

			if _, ok := repos[img.Name]; !ok {
				repos[img.Name] = make(map[string]string)
			}
			repos[img.Name][tag] = topLayerID
		}

		descriptors = append(descriptors, manifestDescriptor{
			Config:   cfgFileName,
			RepoTags: repoTags,
			Layers:   layerPaths,
		})
	}

	manifestBytes, err := json.Marshal(descriptors)
	if err != nil {
		return fmt.Errorf("marshaling manifest.json: %w", err)
	}
	if err := writeEntry(tw, "manifest.json", manifestBytes); err != nil {
		return err
	}

	reposBytes, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("marshaling repositories: %w", err)
	}
	if err := writeEntry(tw, "repositories", reposBytes); err != nil {
		return err
	}

	return tw.Close()
}

func writeEntry(tw *tar.Writer, name string, data []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Typeflag: tar.TypeReg,
		Mode:     0644,
		Size:     int64(len(data)),
		ModTime:  epoch,
		Uname:    "root",
		Gname:    "root",
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", name, err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("writing content for %s: %w", name, err)
	}
	return nil
}

func readAllEntries(r io.Reader) (map[string][]byte, error) {
	files := make(map[string][]byte)
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		var buf bytes.Buffer
		if _, err := io.Copy(&buf, tr); err != nil {
			return nil, fmt.Errorf("reading %s: %w", hdr.Name, err)
		}
		files[hdr.Name] = buf.Bytes()
	}
	return files, nil
}

func layerDir(layerPath string) string {
	for i := len(layerPath) - 1; i >= 0; i-- {
		if layerPath[i] == '/' {
			return layerPath[:i]
		}
	}
	return layerPath
}

func splitRepoTag(repoTag string) (name, tag string) {
	for i := len(repoTag) - 1; i >= 0; i-- {
		if repoTag[i] == ':' {
			return repoTag[:i], repoTag[i+1:]
		}
	}
	return repoTag, ""
}
