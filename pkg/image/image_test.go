package image

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func sampleBuiltImage(t *testing.T) *Image {
	t.Helper()
	img := New("sample/app", "v1")

	if _, err := img.AddLayerContents(map[string][]byte{"base.txt": []byte("base layer")}, "base-id-0000000000000000000000000000000000000000000000000000000000"); err != nil {
		t.Fatalf("AddLayerContents (base): %v", err)
	}
	if _, err := img.AddLayerContents(map[string][]byte{"app.txt": []byte("app layer")}, "app-id-00000000000000000000000000000000000000000000000000000000"); err != nil {
		t.Fatalf("AddLayerContents (app): %v", err)
	}
	return img
}

func TestAddLayerOrderAndParent(t *testing.T) {
	img := sampleBuiltImage(t)

	if len(img.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d", len(img.Layers))
	}
	// Top-first: index 0 is the most recently added layer.
	top := img.Layers[0]
	base := img.Layers[1]
	if top.Parent != base.ID {
		t.Errorf("top layer parent = %q, want base id %q", top.Parent, base.ID)
	}
	if base.Parent != "" {
		t.Errorf("base layer parent = %q, want empty", base.Parent)
	}
}

func TestRemoveLayer(t *testing.T) {
	img := sampleBuiltImage(t)
	img.RemoveLayer()
	if len(img.Layers) != 1 {
		t.Fatalf("expected 1 layer after RemoveLayer, got %d", len(img.Layers))
	}

	img.RemoveLayer()
	img.RemoveLayer() // no-op on empty
	if len(img.Layers) != 0 {
		t.Fatalf("expected 0 layers, got %d", len(img.Layers))
	}
}

func TestWriteFilenameRoundTrip(t *testing.T) {
	img := sampleBuiltImage(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "out.tar")
	if err := img.WriteFilename(path, "v1"); err != nil {
		t.Fatalf("WriteFilename: %v", err)
	}

	images, err := FromFilename(path)
	if err != nil {
		t.Fatalf("FromFilename: %v", err)
	}
	if len(images) != 1 {
		t.Fatalf("expected 1 image, got %d", len(images))
	}

	got := images[0]
	if got.Name != img.Name || got.Tag != img.Tag {
		t.Errorf("name/tag = %s:%s, want %s:%s", got.Name, got.Tag, img.Name, img.Tag)
	}
	if len(got.Layers) != len(img.Layers) {
		t.Fatalf("expected %d layers, got %d", len(img.Layers), len(got.Layers))
	}
	for i := range img.Layers {
		wantSum, err := img.Layers[i].Checksum()
		if err != nil {
			t.Fatal(err)
		}
		gotSum, err := got.Layers[i].Checksum()
		if err != nil {
			t.Fatal(err)
		}
		if wantSum != gotSum {
			t.Errorf("layer %d checksum = %s, want %s", i, gotSum, wantSum)
		}
	}
}

func TestWriteFilenameUnsupportedVersion(t *testing.T) {
	img := sampleBuiltImage(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "out.tar")

	err := img.WriteFilename(path, "v2")
	if err == nil {
		t.Fatal("expected error for unsupported version")
	}
	if _, ok := err.(*ErrUnsupportedVersion); !ok {
		t.Fatalf("expected *ErrUnsupportedVersion, got %T: %v", err, err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		t.Fatalf("expected no file to be written for unsupported version")
	}
}

func TestManifestV2BundleLinkage(t *testing.T) {
	img := sampleBuiltImage(t)

	bundle, err := img.ManifestV2Bundle()
	if err != nil {
		t.Fatalf("ManifestV2Bundle: %v", err)
	}

	if sha256Hex(bundle.ConfigBytes) != bundle.ConfigDigest {
		t.Errorf("config digest mismatch: sha256(config_bytes) != config_digest")
	}
	if sha256Hex(bundle.ManifestBytes) != bundle.ManifestDigest {
		t.Errorf("manifest digest mismatch: sha256(manifest_bytes) != manifest_digest")
	}

	baseFirst := img.LayersBaseFirst()
	if len(baseFirst) != 2 {
		t.Fatalf("expected 2 layers base-first, got %d", len(baseFirst))
	}
	for i, l := range baseFirst {
		sum, err := l.Checksum()
		if err != nil {
			t.Fatal(err)
		}
		if got, want := "sha256:"+sum, (mustUnmarshalDiffID(t, bundle.ConfigBytes, i)); got != want {
			t.Errorf("diff_ids[%d] = %s, want %s", i, want, got)
		}
	}
}

// mustUnmarshalDiffID is a tiny helper so the linkage test reads the
// actually-serialized config bytes instead of re-deriving the expected
// value structurally.
func mustUnmarshalDiffID(t *testing.T, configBytes []byte, i int) string {
	t.Helper()
	var parsed struct {
		RootFS struct {
			DiffIDs []string `json:"diff_ids"`
		} `json:"rootfs"`
	}
	if err := json.Unmarshal(configBytes, &parsed); err != nil {
		t.Fatalf("unmarshaling config bytes: %v", err)
	}
	if i >= len(parsed.RootFS.DiffIDs) {
		t.Fatalf("diff_ids has %d entries, want index %d", len(parsed.RootFS.DiffIDs), i)
	}
	return parsed.RootFS.DiffIDs[i]
}
