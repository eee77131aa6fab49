package archive

import (
	"archive/tar"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// epoch is the fixed mtime stamped on every tar entry this package writes,
// so that unchanged content always produces byte-identical archives.
var epoch = time.Unix(0, 0).UTC()

// Filter rewrites or drops a tar entry before it is written. Returning nil
// drops the entry entirely.
type Filter func(*tar.Header) *tar.Header

// PathMapping is one (host source, archive destination) pair for
// WriteTarFromPaths.
type PathMapping struct {
	Src string
	Arc string
}

// WriteTarFromPath walks src in sorted order and writes its tree into a new
// uncompressed tar rooted at arc, with fixed mtimes and root-owned entries
// for bit-reproducibility. It returns the raw tar bytes, suitable for use
// as a Layer's content.
func WriteTarFromPath(src, arc string, recursive bool, filter Filter) ([]byte, error) {
	return WriteTarFromPaths([]PathMapping{{Src: src, Arc: arc}}, recursive, filter)
}

// WriteTarFromPaths is the multi-rooted form of WriteTarFromPath: every
// mapping is walked and emitted into the same tar stream, in the order
// given, each walked subtree in sorted order.
func WriteTarFromPaths(mappings []PathMapping, recursive bool, filter Filter) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	for _, m := range mappings {
		info, err := os.Lstat(m.Src)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", m.Src, err)
		}

		if !info.IsDir() {
			if err := writeFileEntry(tw, m.Src, m.Arc, info, filter); err != nil {
				return nil, err
			}
			continue
		}

		if err := writeDirTree(tw, m.Src, m.Arc, recursive, filter); err != nil {
			return nil, err
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteTarFromContents synthesizes a tar archive of regular files from
// in-memory data, keyed by archive path. Paths are emitted sorted, for
// determinism regardless of map iteration order.
func WriteTarFromContents(contents map[string][]byte, filter Filter) ([]byte, error) {
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	paths := make([]string, 0, len(contents))
	for p := range contents {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		data := contents[p]
		hdr := &tar.Header{
			Name:     p,
			Typeflag: tar.TypeReg,
			Mode:     0644,
			Size:     int64(len(data)),
		}
		applyDeterministicMeta(hdr)
		if hdr = filter.apply(hdr); hdr == nil {
			continue
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return nil, fmt.Errorf("writing header for %s: %w", p, err)
		}
		if _, err := tw.Write(data); err != nil {
			return nil, fmt.Errorf("writing content for %s: %w", p, err)
		}
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("closing tar writer: %w", err)
	}
	return buf.Bytes(), nil
}

func writeDirTree(tw *tar.Writer, src, arc string, recursive bool, filter Filter) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("reading dir %s: %w", src, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		childSrc := filepath.Join(src, e.Name())
		childArc := filepath.Join(arc, e.Name())

		info, err := e.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", childSrc, err)
		}

		if info.IsDir() {
			if err := writeDirEntry(tw, childArc, info, filter); err != nil {
				return err
			}
			if recursive {
				if err := writeDirTree(tw, childSrc, childArc, recursive, filter); err != nil {
					return err
				}
			}
			continue
		}

		if err := writeFileEntry(tw, childSrc, childArc, info, filter); err != nil {
			return err
		}
	}
	return nil
}

func writeDirEntry(tw *tar.Writer, arc string, info os.FileInfo, filter Filter) error {
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = arc + "/"
	applyDeterministicMeta(hdr)

	if hdr = filter.apply(hdr); hdr == nil {
		return nil
	}
	return tw.WriteHeader(hdr)
}

func writeFileEntry(tw *tar.Writer, src, arc string, info os.FileInfo, filter Filter) error {
	var link string
	if info.Mode()&os.ModeSymlink != 0 {
		l, err := os.Readlink(src)
		if err != nil {
			return fmt.Errorf("readlink %s: %w", src, err)
		}
		link = l
	}

	hdr, err := tar.FileInfoHeader(info, link)
	if err != nil {
		return err
	}
	hdr.Name = arc
	applyDeterministicMeta(hdr)

	if hdr = filter.apply(hdr); hdr == nil {
		return nil
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", arc, err)
	}

	if hdr.Typeflag != tar.TypeReg {
		return nil
	}

	f, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer f.Close()

	if _, err := io.Copy(tw, f); err != nil {
		return fmt.Errorf("copying %s into tar: %w", src, err)
	}
	return nil
}

// applyDeterministicMeta zeroes the mtime and assigns root ownership so
// that two writes of the same file tree produce byte-identical tar bytes.
func applyDeterministicMeta(hdr *tar.Header) {
	hdr.ModTime = epoch
	hdr.AccessTime = epoch
	hdr.ChangeTime = epoch
	hdr.Uid = 0
	hdr.Gid = 0
	hdr.Uname = "root"
	hdr.Gname = "root"
}

func (f Filter) apply(hdr *tar.Header) *tar.Header {
	if f == nil {
		return hdr
	}
	return f(hdr)
}
