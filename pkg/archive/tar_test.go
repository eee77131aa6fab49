package archive

import (
	"archive/tar"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteTarFromContents(t *testing.T) {
	data, err := WriteTarFromContents(map[string][]byte{
		"a/b/c/d.txt": []byte("a layer"),
		"a/other.txt": []byte("other"),
	}, nil)
	if err != nil {
		t.Fatalf("WriteTarFromContents: %v", err)
	}

	tr := tar.NewReader(bytes.NewReader(data))
	seen := map[string]string{}
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(tr)
		seen[hdr.Name] = string(b)
		if !hdr.ModTime.Equal(epoch) {
			t.Errorf("entry %s has non-zero mtime %v", hdr.Name, hdr.ModTime)
		}
	}

	if seen["a/b/c/d.txt"] != "a layer" {
		t.Errorf("missing or wrong content for a/b/c/d.txt: %q", seen["a/b/c/d.txt"])
	}
}

func TestWriteTarFromContentsDeterministic(t *testing.T) {
	contents := map[string][]byte{"z.txt": []byte("z"), "a.txt": []byte("a")}

	a, err := WriteTarFromContents(contents, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := WriteTarFromContents(contents, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Fatalf("WriteTarFromContents not deterministic")
	}
}

func TestWriteTarFromContentsFilterDrops(t *testing.T) {
	data, err := WriteTarFromContents(map[string][]byte{
		"keep.txt": []byte("k"),
		"drop.txt": []byte("d"),
	}, func(h *tar.Header) *tar.Header {
		if h.Name == "drop.txt" {
			return nil
		}
		return h
	})
	if err != nil {
		t.Fatal(err)
	}

	tr := tar.NewReader(bytes.NewReader(data))
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		names = append(names, hdr.Name)
	}
	if len(names) != 1 || names[0] != "keep.txt" {
		t.Fatalf("expected only keep.txt, got %v", names)
	}
}

func TestWriteTarFromPath(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "sub", "file.txt"), []byte("hi"), 0644); err != nil {
		t.Fatal(err)
	}

	data, err := WriteTarFromPath(dir, "root", true, nil)
	if err != nil {
		t.Fatalf("WriteTarFromPath: %v", err)
	}

	tr := tar.NewReader(bytes.NewReader(data))
	found := false
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if hdr.Name == "root/sub/file.txt" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected root/sub/file.txt in tar")
	}
}
