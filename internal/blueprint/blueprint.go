package blueprint

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/resolver"
)

// FileName is the blueprint written into the build output directory.
const FileName = "blueprint.tsv"

// Entry is one emitted file.
type Entry struct {
	// Fileset is the tag of the matching fileset.
	Fileset string

	// Library is the logical HDL library the file compiles into.
	Library string

	// Path is absolute.
	Path string
}

// Blueprint is the ordered file list for one build.
type Blueprint struct {
	Entries []Entry
}

// Emit walks the graph leaves-first and joins each effective release's
// file list with the filesets. Within one release, files are ordered
// lexicographically by relative path. The result is a pure function of
// its inputs: identical graphs yield byte-identical blueprints.
func Emit(graph *resolver.DepGraph, linked map[string]*resolver.LinkedIp, filesets []Fileset, scheme Scheme) (*Blueprint, error) {
	if filesets == nil {
		filesets = DefaultFilesets()
	}
	bp := &Blueprint{}
	for _, pin := range graph.TopoSort() {
		entry, ok := linked[pin.Key()]
		if !ok {
			continue
		}
		lib := entry.Ip.Man.HdlLibrary()
		files, err := ip.GatherFiles(entry.Ip.Root)
		if err != nil {
			return nil, err
		}
		for _, rel := range files {
			tag, ok := Classify(filesets, scheme, rel)
			if !ok {
				continue
			}
			abs, err := filepath.Abs(filepath.Join(entry.Ip.Root, filepath.FromSlash(rel)))
			if err != nil {
				return nil, err
			}
			bp.Entries = append(bp.Entries, Entry{Fileset: tag, Library: lib, Path: abs})
		}
	}
	return bp, nil
}

// String renders the blueprint, one tab-separated line per file.
func (b *Blueprint) String() string {
	var sb strings.Builder
	for _, e := range b.Entries {
		sb.WriteString(e.Fileset)
		sb.WriteByte('\t')
		sb.WriteString(e.Library)
		sb.WriteByte('\t')
		sb.WriteString(e.Path)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Save writes the blueprint under dir and returns the written path.
func (b *Blueprint) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", err
	}
	return path, nil
}
