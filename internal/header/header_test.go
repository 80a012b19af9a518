package header

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFields() Fields {
	return Fields{
		Name:     "src/main.go",
		Mode:     0o644,
		UID:      1000,
		GID:      1000,
		Size:     13,
		ModTime:  time.Unix(1_234_567_890, 0),
		Typeflag: TypeFile,
		UName:    "root",
		GName:    "wheel",
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Fields)
	}{
		{"regular file", func(f *Fields) {}},
		{"zero size", func(f *Fields) { f.Size = 0 }},
		{"max 11-digit size", func(f *Fields) { f.Size = 1<<33 - 1 }},
		{"12-digit size", func(f *Fields) { f.Size = 1 << 33 }},
		{"max size", func(f *Fields) { f.Size = 1<<36 - 1 }},
		{"full mode bits", func(f *Fields) { f.Mode = 0o7777 }},
		{"zero mode", func(f *Fields) { f.Mode = 0 }},
		{"directory", func(f *Fields) { f.Typeflag = TypeDir; f.Size = 0 }},
		{"symlink", func(f *Fields) { f.Typeflag = TypeSymlink; f.Size = 0; f.Linkname = "target/else" }},
		{"device numbers", func(f *Fields) { f.Typeflag = TypeBlockDev; f.DevMajor = 8; f.DevMinor = 17 }},
		{"with prefix", func(f *Fields) { f.Prefix = "very/deep/tree"; f.Name = "leaf.txt" }},
		{"empty owner names", func(f *Fields) { f.UName = ""; f.GName = "" }},
		{"epoch mtime", func(f *Fields) { f.ModTime = time.Unix(0, 0) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			want := testFields()
			tc.mutate(&want)

			block, err := Encode(want)
			require.NoError(t, err)
			require.Len(t, block, BlockSize)

			got, err := Decode(block)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestEncodeFieldLayout(t *testing.T) {
	t.Parallel()

	f := testFields()
	f.Name = "hello.txt"
	block, err := Encode(f)
	require.NoError(t, err)

	assert.Equal(t, "hello.txt", trimField(block[0:100]))
	assert.Equal(t, "000644 \x00", string(block[100:108]))
	assert.Equal(t, "001750 \x00", string(block[108:116]))
	assert.Equal(t, "00000000015 ", string(block[124:136]))
	assert.Equal(t, "11145401322 ", string(block[136:148]))
	assert.Equal(t, byte('0'), block[156])
	assert.Equal(t, "ustar\x0000", string(block[257:265]))

	// The stored checksum must match an independent recomputation.
	stored, err := parseOctal(block[148:156])
	require.NoError(t, err)
	assert.Equal(t, checksum(block), stored)
}

func TestEncodeWideSizeField(t *testing.T) {
	t.Parallel()

	f := testFields()
	f.Size = 1 << 33 // 8^11, first value needing 12 digits
	block, err := Encode(f)
	require.NoError(t, err)
	assert.Equal(t, "100000000000", string(block[124:136]))
}

func TestEncodeRejectsOversizedValues(t *testing.T) {
	t.Parallel()

	f := testFields()
	f.Size = 1 << 36
	_, err := Encode(f)
	require.Error(t, err)

	f = testFields()
	f.UID = 0o777777 + 1
	_, err = Encode(f)
	require.Error(t, err)

	f = testFields()
	f.Name = string(make([]byte, 101))
	_, err = Encode(f)
	require.ErrorIs(t, err, ErrNameTooLong)
}

func TestDecodeEOFSentinel(t *testing.T) {
	t.Parallel()

	_, err := Decode(make([]byte, BlockSize))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDecodeChecksumMismatch(t *testing.T) {
	t.Parallel()

	block, err := Encode(testFields())
	require.NoError(t, err)
	block[0] ^= 0xff

	_, err = Decode(block)
	assert.ErrorIs(t, err, ErrCorruptedArchive)
}

func TestDecodeBadMagic(t *testing.T) {
	t.Parallel()

	block, err := Encode(testFields())
	require.NoError(t, err)
	copy(block[257:263], "arstar")
	copy(block[148:156], []byte("        "))
	copy(block[148:156], octalChecksum(checksum(block)))

	_, err = Decode(block)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func octalChecksum(sum int64) []byte {
	b := make([]byte, 8)
	copy(b, []byte("0000000\x00"))
	for i := 6; i >= 0 && sum > 0; i-- {
		b[i] = byte('0' + sum%8)
		sum /= 8
	}
	return b
}

func TestDecodeSignedNumericField(t *testing.T) {
	t.Parallel()

	// A size field of "-0000000010 " would decode to -8 and drive the
	// parse engine into a negative body length. It must be rejected
	// even when the checksum validates.
	block, err := Encode(testFields())
	require.NoError(t, err)
	copy(block[124:136], "-0000000010 ")
	copy(block[148:156], []byte("        "))
	copy(block[148:156], octalChecksum(checksum(block)))

	_, err = Decode(block)
	assert.ErrorIs(t, err, ErrCorruptedArchive)
}

func TestEncodeRejectsPreEpochModTime(t *testing.T) {
	t.Parallel()

	f := testFields()
	f.ModTime = time.Unix(-1, 0)
	_, err := Encode(f)
	require.Error(t, err)
}

func TestDecodeShortBlock(t *testing.T) {
	t.Parallel()

	_, err := Decode(make([]byte, 300))
	assert.ErrorIs(t, err, ErrCorruptedArchive)
}

func TestDecodeNULTypeflagIsFile(t *testing.T) {
	t.Parallel()

	f := testFields()
	f.Typeflag = TypeFile
	block, err := Encode(f)
	require.NoError(t, err)

	// Pre-POSIX writers leave the typeflag NUL.
	block[156] = 0
	copy(block[148:156], octalChecksum(checksum(block)))

	got, err := Decode(block)
	require.NoError(t, err)
	assert.Equal(t, TypeFile, got.Typeflag)
}
