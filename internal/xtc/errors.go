package xtc

import "errors"

// Sentinel errors returned by the reader. Wrapped errors carry the
// offending region or value; match with errors.Is.
var (
	// ErrNotXTC means the file does not start with the container magic.
	ErrNotXTC = errors.New("xtc: not an XTC container")
	// ErrVersion means the container revision is not one this package reads.
	ErrVersion = errors.New("xtc: unsupported container version")
	// ErrTruncated means the file ends before a region it promises.
	ErrTruncated = errors.New("xtc: truncated container")
	// ErrCorrupt means a region decodes to values that violate the format.
	ErrCorrupt = errors.New("xtc: corrupt container")
	// ErrPageRange means a requested page index is outside the container.
	ErrPageRange = errors.New("xtc: page index out of range")
)
