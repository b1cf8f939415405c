package catalog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"pkgsort/logger"
)

// Category is the platform/content-type pair a catalog file describes.
type Category struct {
	Platform    string
	ContentType string
}

// DirPath returns the relative destination directory for the category.
func (c Category) DirPath() string {
	return filepath.Join(c.Platform, c.ContentType)
}

// Record is one immutable catalog entry.
type Record struct {
	TitleID       string
	Region        string
	Name          string
	ContentID     string
	AppVersion    string
	UpdateVersion string
	FileSize      int64
	SHA256        string
	Category      Category
}

// FileName builds the canonical destination filename for the record.
func (r *Record) FileName(ext string) string {
	if r.UpdateVersion != "" {
		return fmt.Sprintf("%s (%s) [%s]%s", r.Name, r.UpdateVersion, r.TitleID, ext)
	}
	return fmt.Sprintf("%s [%s]%s", r.Name, r.TitleID, ext)
}

// categories maps recognized catalog filenames to their category. Files not
// listed here are ignored.
var categories = map[string]Category{
	"PS3_AVATARS.tsv": {"PS3", "avatar"},
	"PS3_DEMOS.tsv":   {"PS3", "demo"},
	"PS3_DLCS.tsv":    {"PS3", "dlc"},
	"PS3_GAMES.tsv":   {"PS3", "game"},
	"PS3_THEMES.tsv":  {"PS3", "theme"},
	"PSM_GAMES.tsv":   {"PSM", "game"},
	"PSP_DLCS.tsv":    {"PSP", "dlc"},
	"PSP_GAMES.tsv":   {"PSP", "game"},
	"PSP_THEMES.tsv":  {"PSP", "theme"},
	"PSP_UPDATES.tsv": {"PSP", "update"},
	"PSV_DEMOS.tsv":   {"PSV", "demo"},
	"PSV_DLCS.tsv":    {"PSV", "dlc"},
	"PSV_GAMES.tsv":   {"PSV", "game"},
	"PSV_THEMES.tsv":  {"PSV", "theme"},
	"PSV_UPDATES.tsv": {"PSV", "update"},
	"PSX_GAMES.tsv":   {"PSX", "game"},
}

// Load reads every recognized catalog file in dir, newest-sorted filenames
// first so later files shadow earlier ones under first-match resolution.
// Returns an error if the directory yields no records at all.
func Load(dir string) ([]*Record, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not read catalog directory %s: %w", dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if _, ok := categories[entry.Name()]; ok {
			names = append(names, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	var records []*Record
	for _, name := range names {
		cat := categories[name]
		recs, err := loadFile(filepath.Join(dir, name), cat)
		if err != nil {
			logger.Warnf("Failed to load catalog file %s: %v", name, err)
			continue
		}
		records = append(records, recs...)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("no catalog records loaded from %s, the .tsv files are not optional", dir)
	}
	return records, nil
}

func loadFile(path string, cat Category) ([]*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.Comma = '\t'
	rd.LazyQuotes = true
	rd.FieldsPerRecord = -1

	header, err := rd.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cols := columnIndex(header)
	var records []*Record
	for {
		row, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		records = append(records, &Record{
			TitleID:       cols.value(row, "Title ID"),
			Region:        cols.value(row, "Region"),
			Name:          cols.value(row, "Name"),
			ContentID:     cols.value(row, "Content ID"),
			AppVersion:    cols.value(row, "App Version"),
			UpdateVersion: cols.value(row, "Update Version"),
			FileSize:      parseSize(cols.value(row, "File Size")),
			SHA256:        strings.ToLower(cols.value(row, "SHA256")),
			Category:      cat,
		})
	}
	return records, nil
}

type columns map[string]int

func columnIndex(header []string) columns {
	cols := make(columns, len(header))
	for i, name := range header {
		cols[name] = i
	}
	return cols
}

// value returns the named column of row, or "" when the column is missing.
func (c columns) value(row []string, name string) string {
	idx, ok := c[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// parseSize accepts integer and floating-point size strings; anything else
// yields zero.
func parseSize(value string) int64 {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return int64(f)
	}
	return 0
}
