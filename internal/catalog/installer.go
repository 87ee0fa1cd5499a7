package catalog

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/orbit-hdl/orbit/internal/ip"
	"github.com/orbit-hdl/orbit/internal/orbit"
)

// InstallOptions tunes a single install.
type InstallOptions struct {
	// Force tears down and reinstalls a slot whose stored checksum
	// disagrees with its contents.
	Force bool

	// Expect, when set, is the checksum the source must hash to. Installs
	// from a lockfile pass the recorded sum here.
	Expect *ip.Sum
}

// InstallResult reports where a release landed.
type InstallResult struct {
	// Slot is the cache slot directory name.
	Slot string

	// Sum is the computed content checksum.
	Sum ip.Sum

	// Installed is false when the slot already existed and validated.
	Installed bool
}

// Install moves a copy of the IP at src into its content-addressed cache
// slot.
//
// The copy is staged under a uniquely named directory inside the cache
// root and renamed into place, so a crash leaves either no slot or a
// complete one. Re-running with the same input is a no-op.
func Install(ctx *orbit.Context, src *ip.Ip, opts InstallOptions) (*InstallResult, error) {
	stage := filepath.Join(ctx.CachePath, ".stage-"+uuid.NewString())
	if err := CopyTree(src.Root, stage); err != nil {
		os.RemoveAll(stage)
		return nil, fmt.Errorf("staging %s: %w", src.Man.Name, err)
	}
	defer os.RemoveAll(stage)

	sum, err := ComputeSum(stage)
	if err != nil {
		return nil, err
	}
	if opts.Expect != nil && sum != *opts.Expect {
		return nil, &StorageError{
			Code:    ErrCodeChecksumMismatch,
			Message: "contents do not match the locked checksum",
			Name:    src.Man.Name,
			Version: src.Man.Version,
			Want:    opts.Expect.String(),
			Got:     sum.String(),
		}
	}

	slot := SlotName(src.Man.Name, src.Man.Version, sum)
	slotPath := filepath.Join(ctx.CachePath, slot)
	result := &InstallResult{Slot: slot, Sum: sum}

	if _, err := os.Stat(slotPath); err == nil {
		ok, verr := verifySlot(slotPath, sum)
		if verr != nil {
			return nil, verr
		}
		if ok {
			return result, nil
		}
		if !opts.Force {
			return nil, &StorageError{
				Code:    ErrCodeChecksumMismatch,
				Message: "cache slot is corrupt; rerun with --force to reinstall",
				Name:    src.Man.Name,
				Version: src.Man.Version,
				Want:    sum.String(),
			}
		}
		if err := os.RemoveAll(slotPath); err != nil {
			return nil, fmt.Errorf("removing corrupt slot %s: %w", slot, err)
		}
	}

	if err := CommitSlot(stage, slotPath, sum, nil); err != nil {
		if _, statErr := os.Stat(slotPath); statErr == nil {
			// a concurrent install won the race; contents are identical
			return result, nil
		}
		return nil, fmt.Errorf("committing slot %s: %w", slot, err)
	}
	result.Installed = true
	return result, nil
}

// CommitSlot finalizes a staged slot: the checksum file, and the metadata
// file for dynamic copies, are written into the stage first, so the rename
// into slotPath is the sole commit point. A crash leaves either a stray
// stage directory or a complete slot, never a half-marked one.
func CommitSlot(stage, slotPath string, sum ip.Sum, meta *ip.Metadata) error {
	if err := ip.WriteSumFile(filepath.Join(stage, orbit.SumFile), sum); err != nil {
		return err
	}
	if meta != nil {
		if err := ip.WriteMetadataFile(filepath.Join(stage, orbit.MetadataFile), meta); err != nil {
			return err
		}
	}
	return os.Rename(stage, slotPath)
}

// verifySlot reports whether an existing slot's stored checksum matches
// both the fresh digest and its own contents.
func verifySlot(slotPath string, want ip.Sum) (bool, error) {
	stored, err := ip.ReadSumFile(filepath.Join(slotPath, orbit.SumFile))
	if err != nil {
		return false, nil
	}
	if stored != want {
		return false, nil
	}
	live, err := ComputeSum(slotPath)
	if err != nil {
		return false, err
	}
	return live == want, nil
}

// CopyTree copies the non-reserved files under src into dst, creating dst
// and any intermediate directories. VCS metadata and the reserved
// checksum and metadata files are never copied.
func CopyTree(src, dst string) error {
	files, err := ip.GatherFiles(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return err
	}
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(src, filepath.FromSlash(rel)))
		if err != nil {
			return err
		}
		target := filepath.Join(dst, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o644); err != nil {
			return err
		}
	}
	return nil
}
