package ip

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/orbit-hdl/orbit/internal/orbit"
)

// GatherFiles lists the regular files under an IP root, relative with
// forward slashes and sorted lexicographically, excluding reserved files
// and VCS metadata directories. This ordering is the canonical file
// enumeration shared by the checksum and the unit indexer.
func GatherFiles(root string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if orbit.IsVCSDir(d.Name()) {
				return filepath.SkipDir
			}
			return nil
		}
		if orbit.IsReserved(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
