package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"pkgsort/logger"
)

func init() {
	logger.Init("error")
}

func writeCatalog(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "PS3_GAMES.tsv",
		"Title ID\tRegion\tName\tContent ID\tApp Version\tUpdate Version\tFile Size\tSHA256\n"+
			"ABCD12345\tUS\tTest Game\tUP1234-ABCD12345_00-TESTGAME\t01.00\t\t1024\tABCDEF\n")
	writeCatalog(t, dir, "PSP_GAMES.tsv",
		"Title ID\tName\n"+
			"EFGH67890\tOther Game\n")

	records, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	// Descending filename order: PSP_GAMES.tsv before PS3_GAMES.tsv.
	if records[0].TitleID != "EFGH67890" {
		t.Fatalf("unexpected first record: %+v", records[0])
	}
	if records[0].Category.Platform != "PSP" || records[0].Category.ContentType != "game" {
		t.Fatalf("unexpected category: %+v", records[0].Category)
	}
	r := records[1]
	if r.Name != "Test Game" || r.ContentID != "UP1234-ABCD12345_00-TESTGAME" {
		t.Fatalf("unexpected record: %+v", r)
	}
	if r.FileSize != 1024 {
		t.Fatalf("unexpected size: %d", r.FileSize)
	}
	if r.SHA256 != "abcdef" {
		t.Fatalf("expected lowercased sha256, got %s", r.SHA256)
	}
}

func TestLoadMissingColumnsDefaultEmpty(t *testing.T) {
	dir := t.TempDir()
	writeCatalog(t, dir, "PSV_GAMES.tsv",
		"Title ID\tName\n"+
			"PCSE00001\tVita Game\n")

	records, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	r := records[0]
	if r.Region != "" || r.ContentID != "" || r.UpdateVersion != "" || r.SHA256 != "" {
		t.Fatalf("expected empty defaults, got %+v", r)
	}
	if r.FileSize != 0 {
		t.Fatalf("expected zero size, got %d", r.FileSize)
	}
}

func TestLoadEmptyDirFails(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error for empty catalog")
	}
	// Unrecognized files don't count either.
	writeCatalog(t, dir, "NOTES.tsv", "Title ID\tName\nX\tY\n")
	if _, err := Load(dir); err == nil {
		t.Fatal("expected error when only unrecognized files present")
	}
}

func TestParseSize(t *testing.T) {
	if parseSize("1024") != 1024 {
		t.Fatal("integer size")
	}
	if parseSize("1536.0") != 1536 {
		t.Fatal("float size")
	}
	if parseSize("") != 0 || parseSize("n/a") != 0 {
		t.Fatal("invalid sizes should be zero")
	}
}

func TestRecordFileName(t *testing.T) {
	r := &Record{TitleID: "ABCD12345", Name: "Test Game"}
	if got := r.FileName(".pkg"); got != "Test Game [ABCD12345].pkg" {
		t.Fatalf("unexpected name: %s", got)
	}
	r.UpdateVersion = "1.02"
	if got := r.FileName(".pkg"); got != "Test Game (1.02) [ABCD12345].pkg" {
		t.Fatalf("unexpected name: %s", got)
	}
}
