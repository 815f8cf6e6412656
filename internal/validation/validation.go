// Package validation checks user-supplied paths and sniffs the type of
// verse files before they are imported.
package validation

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
)

const (
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096

	// sniffLen is how much of a file is inspected.
	sniffLen = 512
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character in path")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileType         = errors.New("unsupported file type")
)

// ValidatePath checks a path for length limits and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}
	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}
	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}
	return nil
}

// FileType is a sniffed file type.
type FileType string

const (
	FileTypeXZ      FileType = "xz"
	FileTypeGzip    FileType = "gzip"
	FileTypeZip     FileType = "zip"
	FileTypeSQLite  FileType = "sqlite"
	FileTypeText    FileType = "text"
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeZip, []byte{0x50, 0x4b, 0x03, 0x04}},
	{FileTypeSQLite, []byte("SQLite format 3\x00")},
}

// SniffImport peeks at r and reports whether it holds xz-compressed or
// plain text verse data. Nothing is consumed from r. Other recognized
// formats, binary data, and a ".xz" name on uncompressed content are
// rejected with ErrFileType.
func SniffImport(r *bufio.Reader, filename string) (FileType, error) {
	buf, err := r.Peek(sniffLen)
	if err != nil && err != io.EOF {
		return FileTypeUnknown, fmt.Errorf("failed to read file header: %w", err)
	}

	detected := detectFileTypeFromMagic(buf)
	wantXZ := strings.HasSuffix(strings.ToLower(filename), ".xz")

	switch {
	case detected == FileTypeXZ:
		return FileTypeXZ, nil
	case detected != FileTypeUnknown:
		return detected, fmt.Errorf("%w: %s is %s data", ErrFileType, filename, detected)
	case wantXZ:
		return FileTypeUnknown, fmt.Errorf("%w: %s is not xz-compressed", ErrFileType, filename)
	case len(buf) == 0 || isLikelyText(buf):
		return FileTypeText, nil
	default:
		return FileTypeUnknown, fmt.Errorf("%w: %s does not look like text", ErrFileType, filename)
	}
}

// detectFileTypeFromMagic detects file type from magic bytes.
func detectFileTypeFromMagic(buf []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(buf, sig.magic) {
			return sig.fileType
		}
	}
	return FileTypeUnknown
}

// isLikelyText reports whether buf looks like UTF-8 or ASCII text: no NUL
// bytes and at most 5% control characters.
func isLikelyText(buf []byte) bool {
	if bytes.IndexByte(buf, 0) != -1 {
		return false
	}

	printable, control := 0, 0
	for _, b := range buf {
		switch {
		case b == '\t' || b == '\n' || b == '\r' || b >= 0x20 && b <= 0x7e:
			printable++
		case b < 0x20:
			control++
		}
		// Bytes >= 0x7f are UTF-8 sequences and count as neither
	}
	return printable > 0 && float64(printable)/float64(printable+control) > 0.95
}
