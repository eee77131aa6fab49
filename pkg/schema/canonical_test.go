package schema

import (
	"encoding/json"
	"testing"
)

func TestCanonicalJSONSortsKeys(t *testing.T) {
	in := map[string]any{
		"zeta":  1,
		"alpha": map[string]any{"delta": 1, "bravo": 2},
	}

	out, err := CanonicalJSON(in)
	if err != nil {
		t.Fatalf("CanonicalJSON: %v", err)
	}

	want := `{"alpha":{"bravo":2,"delta":1},"zeta":1}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}

func TestCanonicalJSONDeterministic(t *testing.T) {
	cfg := Config{
		Architecture: "amd64",
		OS:           "linux",
		Config:       DefaultConfigConfig(),
		RootFS:       NewConfigRootFS(),
	}
	cfg.RootFS.DiffIDs = []string{"sha256:abc", "sha256:def"}

	a, err := CanonicalJSON(cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := CanonicalJSON(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if string(a) != string(b) {
		t.Fatalf("CanonicalJSON not deterministic across calls")
	}

	var roundTrip Config
	if err := json.Unmarshal(a, &roundTrip); err != nil {
		t.Fatalf("round trip unmarshal: %v", err)
	}
	if roundTrip.Architecture != "amd64" {
		t.Fatalf("round trip lost architecture: %+v", roundTrip)
	}
}

func TestCanonicalJSONPreservesIntegers(t *testing.T) {
	in := ManifestV2Layer{MediaType: MediaTypeLayerGzip, Size: 42, Digest: "sha256:x"}
	out, err := CanonicalJSON(in)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"digest":"sha256:x","mediaType":"application/vnd.docker.image.rootfs.diff.tar.gzip","size":42}`
	if string(out) != want {
		t.Fatalf("got %s, want %s", out, want)
	}
}
