package pkgfile

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"

	"github.com/h2non/filetype"

	"pkgsort/hasher"
)

// Magic is the PKG header magic, bytes 7F 50 4B 47 read big-endian.
const Magic uint32 = 0x7F504B47

const (
	headerSize      = 96
	contentIDOffset = 48
	contentIDSize   = 36
	sniffSize       = 261
)

// pkgType is registered with filetype so PKG headers are recognized by the
// same magic-byte sniffing used for every other format.
var pkgType = filetype.NewType("pkg", "application/x-ps-package")

func init() {
	filetype.AddMatcher(pkgType, func(buf []byte) bool {
		return len(buf) >= 4 && binary.BigEndian.Uint32(buf[:4]) == Magic
	})
}

// nameRe extracts (content id, title id, patch version) from a canonical
// package filename such as UP1234-ABCD12345_00-GAME.pkg or
// UP1234-ABCD12345_00-GAME_patch_1.02.pkg.
var nameRe = regexp.MustCompile(`(?i)^([A-Z]{2}\d{4}-([A-Z]{4}\d{5})_00-.*?)(?:_patch_(.*?))?\.pkg$`)

// NameFields are the identifying fields a canonical filename carries.
type NameFields struct {
	ContentID string
	TitleID   string
	Patch     string
}

// ParseName extracts NameFields from a package base filename. Returns false
// when the name does not follow the canonical shape.
func ParseName(base string) (NameFields, bool) {
	m := nameRe.FindStringSubmatch(base)
	if m == nil {
		return NameFields{}, false
	}
	return NameFields{ContentID: m[1], TitleID: m[2], Patch: m[3]}, true
}

// IsPackage reports whether the file at path starts with the PKG magic.
// Short or empty files are simply not packages, not errors.
func IsPackage(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	buf := make([]byte, sniffSize)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false, err
	}
	return filetype.IsType(buf[:n], pkgType), nil
}

// header is the fixed-layout block at the start of every package file.
// Multi-byte integers are big-endian.
type header struct {
	Revision  uint16
	Type      uint16
	ContentID string
}

// File is one on-disk package. Header fields, size, and hash are computed on
// first use and memoized; File is not safe for concurrent use.
type File struct {
	Path string

	hdr     *header
	hdrErr  error
	hdrDone bool

	size     int64
	sizeErr  error
	sizeDone bool

	sha     string
	shaErr  error
	shaDone bool
}

func New(path string) *File {
	return &File{Path: path}
}

// NameFields parses the base filename; ok is false for non-canonical names.
func (f *File) NameFields() (NameFields, bool) {
	return ParseName(filepath.Base(f.Path))
}

// HeaderContentID returns the content id embedded in the binary header.
func (f *File) HeaderContentID() (string, error) {
	hdr, err := f.readHeader()
	if err != nil {
		return "", err
	}
	return hdr.ContentID, nil
}

// Size returns the file's size in bytes.
func (f *File) Size() (int64, error) {
	if !f.sizeDone {
		f.sizeDone = true
		info, err := os.Stat(f.Path)
		if err != nil {
			f.sizeErr = err
		} else {
			f.size = info.Size()
		}
	}
	return f.size, f.sizeErr
}

// SHA256 returns the hex SHA-256 of the full file content.
func (f *File) SHA256() (string, error) {
	if !f.shaDone {
		f.shaDone = true
		f.sha, f.shaErr = hasher.SHA256(f.Path)
	}
	return f.sha, f.shaErr
}

func (f *File) readHeader() (*header, error) {
	if f.hdrDone {
		return f.hdr, f.hdrErr
	}
	f.hdrDone = true
	f.hdr, f.hdrErr = parseHeader(f.Path)
	return f.hdr, f.hdrErr
}

func parseHeader(path string) (*header, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	buf := make([]byte, headerSize)
	if _, err := io.ReadFull(file, buf); err != nil {
		return nil, fmt.Errorf("could not read package header of %s: %w", path, err)
	}
	if binary.BigEndian.Uint32(buf[:4]) != Magic {
		return nil, fmt.Errorf("%s is not a package file", path)
	}

	contentID, err := decodeContentID(buf[contentIDOffset : contentIDOffset+contentIDSize])
	if err != nil {
		return nil, fmt.Errorf("could not decode content id of %s: %w", path, err)
	}
	return &header{
		Revision:  binary.BigEndian.Uint16(buf[4:6]),
		Type:      binary.BigEndian.Uint16(buf[6:8]),
		ContentID: contentID,
	}, nil
}

// decodeContentID validates the NUL-padded 36-byte field as printable ASCII.
func decodeContentID(raw []byte) (string, error) {
	trimmed := bytes.TrimRight(raw, "\x00")
	for _, b := range trimmed {
		if b < 0x20 || b > 0x7E {
			return "", fmt.Errorf("invalid byte 0x%02X in content id field", b)
		}
	}
	return string(trimmed), nil
}
