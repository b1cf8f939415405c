package pkgfile

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// writePackage builds a minimal package file: valid header plus body bytes.
func writePackage(t *testing.T, dir, name, contentID string, body []byte) string {
	t.Helper()
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint16(buf[4:6], 1)
	binary.BigEndian.PutUint16(buf[6:8], 1)
	copy(buf[contentIDOffset:contentIDOffset+contentIDSize], contentID)
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, append(buf, body...), 0o644); err != nil {
		t.Fatalf("write package: %v", err)
	}
	return path
}

func TestParseName(t *testing.T) {
	fields, ok := ParseName("UP1234-ABCD12345_00-TESTGAME.pkg")
	if !ok {
		t.Fatal("expected canonical name to parse")
	}
	if fields.ContentID != "UP1234-ABCD12345_00-TESTGAME" {
		t.Fatalf("unexpected content id: %s", fields.ContentID)
	}
	if fields.TitleID != "ABCD12345" {
		t.Fatalf("unexpected title id: %s", fields.TitleID)
	}
	if fields.Patch != "" {
		t.Fatalf("unexpected patch: %s", fields.Patch)
	}
}

func TestParseNamePatch(t *testing.T) {
	fields, ok := ParseName("UP1234-ABCD12345_00-TESTGAME_patch_1.02.pkg")
	if !ok {
		t.Fatal("expected patch name to parse")
	}
	if fields.ContentID != "UP1234-ABCD12345_00-TESTGAME" {
		t.Fatalf("unexpected content id: %s", fields.ContentID)
	}
	if fields.Patch != "1.02" {
		t.Fatalf("unexpected patch: %s", fields.Patch)
	}
}

func TestParseNameCaseInsensitive(t *testing.T) {
	if _, ok := ParseName("up1234-abcd12345_00-testgame.PKG"); !ok {
		t.Fatal("expected case-insensitive parse")
	}
}

func TestParseNameRejectsRenamed(t *testing.T) {
	for _, name := range []string{"random.pkg", "Test Game [ABCD12345].pkg", "UP1234.pkg", "UP1234-ABCD12345_00-GAME.zip"} {
		if _, ok := ParseName(name); ok {
			t.Fatalf("expected %s to be rejected", name)
		}
	}
}

func TestIsPackage(t *testing.T) {
	dir := t.TempDir()
	good := writePackage(t, dir, "good.pkg", "UP1234-ABCD12345_00-TESTGAME", nil)
	ok, err := IsPackage(good)
	if err != nil {
		t.Fatalf("is package: %v", err)
	}
	if !ok {
		t.Fatal("expected valid magic to be recognized")
	}

	bad := filepath.Join(dir, "bad.pkg")
	if err := os.WriteFile(bad, []byte("not a package at all"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = IsPackage(bad)
	if err != nil {
		t.Fatalf("is package: %v", err)
	}
	if ok {
		t.Fatal("expected invalid magic to be rejected")
	}

	empty := filepath.Join(dir, "empty.pkg")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, err = IsPackage(empty)
	if err != nil {
		t.Fatalf("is package: %v", err)
	}
	if ok {
		t.Fatal("expected empty file to be rejected")
	}
}

func TestHeaderContentID(t *testing.T) {
	dir := t.TempDir()
	path := writePackage(t, dir, "renamed.pkg", "UP1234-ABCD12345_00-TESTGAME", []byte("body"))
	f := New(path)
	cid, err := f.HeaderContentID()
	if err != nil {
		t.Fatalf("header: %v", err)
	}
	if cid != "UP1234-ABCD12345_00-TESTGAME" {
		t.Fatalf("unexpected content id: %s", cid)
	}
	// Memoized second call.
	cid2, err := f.HeaderContentID()
	if err != nil || cid2 != cid {
		t.Fatalf("memoized call mismatch: %s %v", cid2, err)
	}
}

func TestHeaderContentIDDecodeError(t *testing.T) {
	dir := t.TempDir()
	buf := make([]byte, headerSize)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	buf[contentIDOffset] = 0xFF // not ASCII
	path := filepath.Join(dir, "corrupt.pkg")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).HeaderContentID(); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestHeaderTruncated(t *testing.T) {
	dir := t.TempDir()
	buf := make([]byte, 10)
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	path := filepath.Join(dir, "short.pkg")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).HeaderContentID(); err == nil {
		t.Fatal("expected error for truncated header")
	}
}

func TestSizeAndSHA256(t *testing.T) {
	dir := t.TempDir()
	path := writePackage(t, dir, "sized.pkg", "UP1234-ABCD12345_00-TESTGAME", []byte("0123456789"))
	f := New(path)
	size, err := f.Size()
	if err != nil {
		t.Fatalf("size: %v", err)
	}
	if size != headerSize+10 {
		t.Fatalf("unexpected size: %d", size)
	}
	sum, err := f.SHA256()
	if err != nil {
		t.Fatalf("sha256: %v", err)
	}
	if len(sum) != 64 {
		t.Fatalf("unexpected digest: %s", sum)
	}
	sum2, _ := f.SHA256()
	if sum2 != sum {
		t.Fatal("memoized hash mismatch")
	}
}
