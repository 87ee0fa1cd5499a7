package catalog

import (
	"errors"
	"fmt"

	"github.com/orbit-hdl/orbit/internal/ip"
)

// StorageError represents a failure in the catalog's storage tiers.
//
// Storage errors include:
//   - Checksum mismatch: a slot or staged copy hashes differently than recorded
//   - Missing checksum: a queued entry carries no recorded sum to verify against
//   - Corrupt slot: a cache slot exists but its contents cannot be read back
type StorageError struct {
	// Code identifies the error category.
	Code StorageErrorCode

	// Message is a human-readable description.
	Message string

	// Name identifies the affected IP.
	Name ip.Ident

	// Version identifies the affected release.
	Version ip.Version

	// Want and Got carry the digests for mismatch errors.
	Want string
	Got  string
}

// StorageErrorCode categorizes storage errors.
type StorageErrorCode string

const (
	// ErrCodeChecksumMismatch indicates contents hash differently than recorded.
	ErrCodeChecksumMismatch StorageErrorCode = "CHECKSUM_MISMATCH"

	// ErrCodeMissingChecksum indicates a queued entry lacks a recorded sum.
	ErrCodeMissingChecksum StorageErrorCode = "MISSING_CHECKSUM"

	// ErrCodeCorruptSlot indicates an unreadable or half-formed cache slot.
	ErrCodeCorruptSlot StorageErrorCode = "CORRUPT_SLOT"
)

// Error implements the error interface.
func (e *StorageError) Error() string {
	id := ""
	if !e.Name.IsZero() {
		id = fmt.Sprintf(" (%s v%s)", e.Name, e.Version)
	}
	if e.Want != "" || e.Got != "" {
		return fmt.Sprintf("%s: %s%s: want %s, got %s", e.Code, e.Message, id, e.Want, e.Got)
	}
	return fmt.Sprintf("%s: %s%s", e.Code, e.Message, id)
}

// IsChecksumMismatch reports whether err is a checksum mismatch.
// Uses errors.As to handle wrapped errors.
func IsChecksumMismatch(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == ErrCodeChecksumMismatch
}

// IsMissingChecksum reports whether err is a missing-checksum failure.
func IsMissingChecksum(err error) bool {
	var se *StorageError
	return errors.As(err, &se) && se.Code == ErrCodeMissingChecksum
}
