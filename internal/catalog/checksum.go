// Package catalog presents the storage tiers of installed IPs (cache,
// download queue, and the working copy) and owns the operations that move
// releases between them: checksum, install, and download.
package catalog

import (
	"bytes"
	"crypto/sha256"
	"os"
	"path/filepath"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// ComputeSum hashes the IP rooted at root into its content checksum.
//
// The digest covers a canonical stream: for each non-reserved regular file
// in sorted relative-path order, the forward-slash path, a 0x00 separator,
// and the file's bytes. Text contents are normalized by dropping CR bytes
// so checkouts with different line endings hash identically; files holding
// a NUL byte are treated as binary and skipped entirely.
func ComputeSum(root string) (ip.Sum, error) {
	files, err := ip.GatherFiles(root)
	if err != nil {
		return ip.Sum{}, err
	}
	h := sha256.New()
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return ip.Sum{}, err
		}
		if bytes.IndexByte(data, 0) >= 0 {
			continue
		}
		h.Write([]byte(rel))
		h.Write([]byte{0})
		h.Write(bytes.ReplaceAll(data, []byte{'\r'}, nil))
	}
	var sum ip.Sum
	copy(sum[:], h.Sum(nil))
	return sum, nil
}

// SlotName derives the cache slot directory name for one installed
// release.
func SlotName(name ip.Ident, version ip.Version, sum ip.Sum) string {
	return name.String() + "-" + version.String() + "-" + sum.Prefix()
}
