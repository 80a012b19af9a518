package ustar

import (
	"errors"

	"github.com/meigma/ustar/internal/header"
)

// Sentinel errors re-exported from internal/header.
var (
	// ErrCorruptedArchive is returned when a header checksum does not
	// validate, a stream is truncated mid-record or mid-body, or data
	// follows the end-of-archive marker.
	ErrCorruptedArchive = header.ErrCorruptedArchive

	// ErrUnsupportedFormat is returned when a header validates but its
	// magic field does not identify a USTar archive.
	ErrUnsupportedFormat = header.ErrUnsupportedFormat

	// ErrNameTooLong is returned when an entry path cannot be split
	// into the prefix and name fields of a USTar header.
	ErrNameTooLong = header.ErrNameTooLong
)

// Sentinel errors specific to the archive container.
var (
	// ErrInvalidPath is returned when an entry path is empty or
	// escapes the archive root after normalization.
	ErrInvalidPath = errors.New("ustar: invalid entry path")

	// ErrUnknownSize is returned when a body reader's length can
	// neither be inferred nor was given via WithSize.
	ErrUnknownSize = errors.New("ustar: reader body requires an explicit size")

	// ErrEntryExists is returned by Append when the path is already
	// present; use Replace to change an existing entry.
	ErrEntryExists = errors.New("ustar: entry already exists")

	// ErrAlreadyStreamed is returned by Stream after a previous call
	// consumed the archive's entry bodies.
	ErrAlreadyStreamed = errors.New("ustar: archive already streamed")
)
