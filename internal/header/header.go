// Package header implements the USTar 512-byte header record: field
// layout, octal numeric encoding, checksum computation and validation,
// and the prefix/name split for long paths.
//
// The package also owns the sentinel errors shared between the codec,
// the parse engine, and the public ustar package. This avoids circular
// imports between ustar and internal/parse.
package header

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// BlockSize is the fixed size of every tar header record and the
// alignment unit for entry bodies.
const BlockSize = 512

// Sentinel errors for archive codec operations.
var (
	// ErrCorruptedArchive is returned when a header checksum does not
	// validate, a stream is truncated mid-record or mid-body, or data
	// follows the end-of-archive marker.
	ErrCorruptedArchive = errors.New("ustar: corrupted archive")

	// ErrUnsupportedFormat is returned when a header validates but its
	// magic field does not identify a USTar archive.
	ErrUnsupportedFormat = errors.New("ustar: unsupported archive format")

	// ErrNameTooLong is returned when an entry path cannot be split
	// into the prefix and name fields of a USTar header.
	ErrNameTooLong = errors.New("ustar: entry path too long for ustar header")
)

// Typeflag values defined by the USTar format.
const (
	TypeFile       byte = '0'
	TypeHardlink   byte = '1'
	TypeSymlink    byte = '2'
	TypeCharDevice byte = '3'
	TypeBlockDev   byte = '4'
	TypeDir        byte = '5'
	TypeFIFO       byte = '6'
	TypeContiguous byte = '7'
)

// Field offsets and widths within a header record. Offsets are
// cumulative; the layout sums to 500 bytes plus 12 bytes of padding.
const (
	nameLen     = 100
	modeOff     = 100
	numFieldLen = 8
	uidOff      = 108
	gidOff      = 116
	sizeOff     = 124
	sizeLen     = 12
	mtimeOff    = 136
	mtimeLen    = 12
	chksumOff   = 148
	chksumLen   = 8
	typeOff     = 156
	linkOff     = 157
	linkLen     = 100
	magicOff    = 257
	magicLen    = 6
	versionOff  = 263
	unameOff    = 265
	unameLen    = 32
	gnameOff    = 297
	gnameLen    = 32
	devMajorOff = 329
	devMinorOff = 337
	prefixOff   = 345
	prefixLen   = 155
)

// magic identifies the USTar layout. Decoding only requires the
// "ustar" prefix; encoding writes the POSIX magic and version.
const magic = "ustar"

// emptyChecksum is the checksum accumulator value of an all-zero
// block: the 8 checksum bytes counted as ASCII spaces, everything
// else zero. A block whose computed checksum equals this value is the
// end-of-archive sentinel.
const emptyChecksum = 8 * int64(' ')

// Fields holds the decoded values of one header record. Name and
// Prefix are kept separate; Path joins them.
type Fields struct {
	Name     string
	Mode     int64
	UID      int64
	GID      int64
	Size     int64
	ModTime  time.Time
	Typeflag byte
	Linkname string
	UName    string
	GName    string
	DevMajor int64
	DevMinor int64
	Prefix   string
}

// Path returns the archive-relative path this header describes,
// joining the prefix and name fields.
func (f Fields) Path() string {
	if f.Prefix == "" {
		return f.Name
	}
	return f.Prefix + "/" + f.Name
}

// checksum sums all bytes of a header record with the checksum field
// counted as ASCII spaces. The accumulator therefore starts at
// emptyChecksum and skips the real checksum bytes.
func checksum(block []byte) int64 {
	sum := emptyChecksum
	for i, b := range block {
		if i >= chksumOff && i < chksumOff+chksumLen {
			continue
		}
		sum += int64(b)
	}
	return sum
}

// trimField strips trailing and leading NUL and space bytes from a
// fixed-width header field.
func trimField(b []byte) string {
	return strings.Trim(string(b), " \x00")
}

// parseOctal parses a NUL/space padded octal field. An empty field
// decodes as zero. Parsing as unsigned rejects sign characters, so a
// checksum-valid header cannot smuggle a negative size or mode into
// the parse engine.
func parseOctal(b []byte) (int64, error) {
	s := trimField(b)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(s, 8, 63)
	if err != nil {
		return 0, fmt.Errorf("%w: bad octal field %q", ErrCorruptedArchive, s)
	}
	return int64(v), nil
}

// Decode parses one 512-byte header record.
//
// It returns io.EOF for the end-of-archive sentinel (an all-zero
// block), ErrCorruptedArchive when the stored checksum does not match
// the computed one, and ErrUnsupportedFormat when the checksum is
// valid but the magic field does not begin with "ustar".
func Decode(block []byte) (Fields, error) {
	if len(block) < BlockSize {
		return Fields{}, fmt.Errorf("%w: short header record (%d bytes)", ErrCorruptedArchive, len(block))
	}
	block = block[:BlockSize]

	computed := checksum(block)
	stored, storedErr := parseOctal(block[chksumOff : chksumOff+chksumLen])
	if storedErr != nil || stored != computed {
		if computed == emptyChecksum {
			return Fields{}, io.EOF
		}
		return Fields{}, fmt.Errorf("%w: header checksum mismatch", ErrCorruptedArchive)
	}

	if !strings.HasPrefix(trimField(block[magicOff:magicOff+magicLen]), magic) {
		return Fields{}, ErrUnsupportedFormat
	}

	var f Fields
	f.Name = trimField(block[:nameLen])
	f.Typeflag = block[typeOff]
	if f.Typeflag == 0 {
		// Pre-POSIX archives use NUL for regular files.
		f.Typeflag = TypeFile
	}
	f.Linkname = trimField(block[linkOff : linkOff+linkLen])
	f.UName = trimField(block[unameOff : unameOff+unameLen])
	f.GName = trimField(block[gnameOff : gnameOff+gnameLen])
	f.Prefix = trimField(block[prefixOff : prefixOff+prefixLen])

	var err error
	if f.Mode, err = parseOctal(block[modeOff : modeOff+numFieldLen]); err != nil {
		return Fields{}, err
	}
	if f.UID, err = parseOctal(block[uidOff : uidOff+numFieldLen]); err != nil {
		return Fields{}, err
	}
	if f.GID, err = parseOctal(block[gidOff : gidOff+numFieldLen]); err != nil {
		return Fields{}, err
	}
	if f.Size, err = parseOctal(block[sizeOff : sizeOff+sizeLen]); err != nil {
		return Fields{}, err
	}
	mtime, err := parseOctal(block[mtimeOff : mtimeOff+mtimeLen])
	if err != nil {
		return Fields{}, err
	}
	if f.DevMajor, err = parseOctal(block[devMajorOff : devMajorOff+numFieldLen]); err != nil {
		return Fields{}, err
	}
	if f.DevMinor, err = parseOctal(block[devMinorOff : devMinorOff+numFieldLen]); err != nil {
		return Fields{}, err
	}
	f.ModTime = time.Unix(mtime, 0)

	return f, nil
}

// maxSize is the largest body size representable in the 12-byte octal
// size field (8^12 - 1).
const maxSize = int64(1)<<36 - 1

// Encode serializes f into a 512-byte header record.
//
// Numeric fields use octal ASCII: mode, uid, gid, devmajor, and
// devminor as six digits followed by " \x00"; mtime as eleven digits
// and a trailing space; size as eleven digits and a trailing space,
// widening to twelve digits once the value no longer fits in eleven.
// The checksum is computed and written after every other field is
// final.
func Encode(f Fields) ([]byte, error) {
	if len(f.Name) > nameLen {
		return nil, fmt.Errorf("%w: %q", ErrNameTooLong, f.Name)
	}
	if len(f.Prefix) > prefixLen {
		return nil, fmt.Errorf("%w: prefix %q", ErrNameTooLong, f.Prefix)
	}
	if len(f.Linkname) > linkLen {
		return nil, fmt.Errorf("%w: link target %q", ErrNameTooLong, f.Linkname)
	}
	if f.Size < 0 || f.Size > maxSize {
		return nil, fmt.Errorf("ustar: size %d does not fit in header size field", f.Size)
	}
	if f.ModTime.Unix() < 0 {
		return nil, fmt.Errorf("ustar: modification time %v predates the epoch", f.ModTime)
	}

	block := make([]byte, BlockSize)
	copy(block[:nameLen], f.Name)
	if err := putNumeric(block[modeOff:modeOff+numFieldLen], f.Mode, "mode"); err != nil {
		return nil, err
	}
	if err := putNumeric(block[uidOff:uidOff+numFieldLen], f.UID, "uid"); err != nil {
		return nil, err
	}
	if err := putNumeric(block[gidOff:gidOff+numFieldLen], f.GID, "gid"); err != nil {
		return nil, err
	}
	copy(block[sizeOff:sizeOff+sizeLen], formatSize(f.Size))
	copy(block[mtimeOff:mtimeOff+mtimeLen], fmt.Sprintf("%011o ", f.ModTime.Unix()))
	block[typeOff] = f.Typeflag
	copy(block[linkOff:linkOff+linkLen], f.Linkname)
	copy(block[magicOff:], magic)
	copy(block[versionOff:versionOff+2], "00")
	copy(block[unameOff:unameOff+unameLen], truncField(f.UName, unameLen))
	copy(block[gnameOff:gnameOff+gnameLen], truncField(f.GName, gnameLen))
	if err := putNumeric(block[devMajorOff:devMajorOff+numFieldLen], f.DevMajor, "devmajor"); err != nil {
		return nil, err
	}
	if err := putNumeric(block[devMinorOff:devMinorOff+numFieldLen], f.DevMinor, "devminor"); err != nil {
		return nil, err
	}
	copy(block[prefixOff:prefixOff+prefixLen], f.Prefix)

	copy(block[chksumOff:chksumOff+chksumLen], fmt.Sprintf("%06o\x00 ", checksum(block)))
	return block, nil
}

// putNumeric writes an eight-byte numeric field: six octal digits
// followed by a space and a NUL.
func putNumeric(dst []byte, v int64, field string) error {
	if v < 0 || v > 0o777777 {
		return fmt.Errorf("ustar: %s %d does not fit in header field", field, v)
	}
	copy(dst, fmt.Sprintf("%06o \x00", v))
	return nil
}

// formatSize renders the twelve-byte size field.
func formatSize(size int64) string {
	if size >= 1<<33 { // 8^11
		return fmt.Sprintf("%012o", size)
	}
	return fmt.Sprintf("%011o ", size)
}

// truncField clips a string to fit a fixed field, always leaving room
// for a terminating NUL.
func truncField(s string, width int) string {
	if len(s) >= width {
		return s[:width-1]
	}
	return s
}

// IsZeroBlock reports whether the given bytes are all zero.
func IsZeroBlock(block []byte) bool {
	return len(bytes.TrimLeft(block, "\x00")) == 0
}
