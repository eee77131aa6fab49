package image

import (
	"bytes"
	"os"

	"github.com/glennswest/ociclient/pkg/archive"
)

// FromFilename reads a v1 "docker save" tar archive from path and returns
// one Image per entry in its manifest.json, converting archive.Image/
// archive.Layer (package archive's self-contained wire shapes) into this
// package's Image/Layer.
func FromFilename(path string) ([]*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	archiveImages, err := archive.ReadV1(f)
	if err != nil {
		return nil, err
	}

	images := make([]*Image, 0, len(archiveImages))
	for _, ai := range archiveImages {
		images = append(images, fromArchiveImage(ai))
	}
	return images, nil
}

func fromArchiveImage(ai *archive.Image) *Image {
	img := &Image{Name: ai.Name, Tag: ai.Tag}

	// ai.Layers is top-first, matching this package's own convention.
	img.Layers = make([]*Layer, len(ai.Layers))
	for i, al := range ai.Layers {
		l := NewLayerFromContent(al.Content)
		l.ID = al.ID
		l.Parent = al.Parent
		l.Architecture = al.Architecture
		l.OS = al.OS
		l.Created = al.Created
		l.Author = al.Author
		l.Config = al.Config
		img.Layers[i] = l
	}
	return img
}

// WriteFilename writes img to path as a v1 "docker save" tar archive. Only
// version "v1" is supported; any other value raises ErrUnsupportedVersion
// before any file is touched.
func (img *Image) WriteFilename(path, version string) error {
	if version != "v1" {
		return &ErrUnsupportedVersion{Version: version}
	}

	ai, err := img.toArchiveImage()
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := archive.WriteV1(&buf, []*archive.Image{ai}); err != nil {
		return err
	}

	return os.WriteFile(path, buf.Bytes(), 0644)
}

func (img *Image) toArchiveImage() (*archive.Image, error) {
	bundle, err := img.ManifestV2Bundle()
	if err != nil {
		return nil, err
	}

	ai := &archive.Image{
		Name:           img.Name,
		Tag:            img.Tag,
		ConfigDocument: bundle.ConfigBytes,
	}

	ai.Layers = make([]*archive.Layer, len(img.Layers))
	for i, l := range img.Layers {
		raw, err := l.Content()
		if err != nil {
			return nil, err
		}
		ai.Layers[i] = &archive.Layer{
			ID:           l.ID,
			Parent:       l.Parent,
			Content:      raw,
			Architecture: l.Architecture,
			OS:           l.OS,
			Created:      l.Created,
			Author:       l.Author,
			Config:       l.Config,
		}
	}
	return ai, nil
}
