package image

import "github.com/glennswest/ociclient/pkg/archive"

// These thin wrappers are the only place package image imports package
// archive's tar-construction helpers, keeping the dependency direction
// explicit: image depends on archive, never the reverse.

func writeTarFromContents(contents map[string][]byte) ([]byte, error) {
	return archive.WriteTarFromContents(contents, nil)
}

func writeTarFromPath(src, arc string, recursive bool) ([]byte, error) {
	return archive.WriteTarFromPath(src, arc, recursive, nil)
}

func writeTarFromPaths(mappings []PathMapping) ([]byte, error) {
	archiveMappings := make([]archive.PathMapping, len(mappings))
	for i, m := range mappings {
		archiveMappings[i] = archive.PathMapping{Src: m.Src, Arc: m.Arc}
	}
	return archive.WriteTarFromPaths(archiveMappings, true, nil)
}
