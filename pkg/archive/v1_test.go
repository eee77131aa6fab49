package archive

import (
	"bytes"
	"testing"

	"github.com/glennswest/ociclient/pkg/schema"
)

func sampleImage() *Image {
	base := &Layer{
		ID:      "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		Content: []byte("base layer tar bytes"),
		Config:  schema.DefaultConfigConfig(),
	}
	top := &Layer{
		ID:      "bbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Parent:  base.ID,
		Content: []byte("top layer tar bytes"),
		Config:  schema.DefaultConfigConfig(),
	}

	return &Image{
		Name:           "library/busybox",
		Tag:            "latest",
		Layers:         []*Layer{top, base}, // top-first
		ConfigDocument: []byte(`{"architecture":"amd64","os":"linux"}`),
	}
}

func TestWriteReadV1RoundTrip(t *testing.T) {
	img := sampleImage()

	var buf bytes.Buffer
	if err := WriteV1(&buf, []*Image{img}); err != nil {
		t.Fatalf("WriteV1: %v", err)
	}

	got, err := ReadV1(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("ReadV1: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected 1 image, got %d", len(got))
	}
	gotImg := got[0]

	if gotImg.Name != img.Name || gotImg.Tag != img.Tag {
		t.Fatalf("name/tag mismatch: got %s:%s want %s:%s", gotImg.Name, gotImg.Tag, img.Name, img.Tag)
	}
	if len(gotImg.Layers) != len(img.Layers) {
		t.Fatalf("layer count mismatch: got %d want %d", len(gotImg.Layers), len(img.Layers))
	}
	for i := range img.Layers {
		if !bytes.Equal(gotImg.Layers[i].Content, img.Layers[i].Content) {
			t.Errorf("layer %d content mismatch", i)
		}
		if gotImg.Layers[i].ID != img.Layers[i].ID {
			t.Errorf("layer %d id mismatch: got %s want %s", i, gotImg.Layers[i].ID, img.Layers[i].ID)
		}
	}
	// top-first order: layers[0].Parent == layers[1].ID
	if gotImg.Layers[0].Parent != gotImg.Layers[1].ID {
		t.Errorf("parent chain broken: layers[0].Parent=%s layers[1].ID=%s", gotImg.Layers[0].Parent, gotImg.Layers[1].ID)
	}
	if gotImg.Layers[len(gotImg.Layers)-1].Parent != "" {
		t.Errorf("base layer should have empty parent, got %q", gotImg.Layers[len(gotImg.Layers)-1].Parent)
	}
}

func TestWriteV1Deterministic(t *testing.T) {
	img := sampleImage()

	var buf1, buf2 bytes.Buffer
	if err := WriteV1(&buf1, []*Image{img}); err != nil {
		t.Fatal(err)
	}
	if err := WriteV1(&buf2, []*Image{sampleImage()}); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf1.Bytes(), buf2.Bytes()) {
		t.Fatalf("WriteV1 is not deterministic across identical inputs")
	}
}

func TestReadV1MissingManifest(t *testing.T) {
	var buf bytes.Buffer
	if _, err := ReadV1(&buf); err == nil {
		t.Fatal("expected error for empty archive")
	}
}
