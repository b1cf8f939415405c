package matcher

import (
	"strings"

	"pkgsort/catalog"
	"pkgsort/logger"
	"pkgsort/pkgfile"
)

// Options controls which identification tiers are active.
type Options struct {
	// SkipHash disables the full-file SHA-256 fallback.
	SkipHash bool
}

// Resolve finds the first catalog record matching the package file, applying
// the identification tiers in priority order:
//
//  1. filename-derived fields, when the name is canonical
//  2. header content id and exact byte size, for renamed files
//  3. full-file SHA-256, unless disabled
//
// Returns (nil, nil) when no record matches. Errors are only returned for
// unreadable or undecodable headers, which abort the run.
func Resolve(records []*catalog.Record, f *pkgfile.File, opts Options) (*catalog.Record, error) {
	if fields, ok := f.NameFields(); ok {
		return matchName(records, fields), nil
	}

	contentID, err := f.HeaderContentID()
	if err != nil {
		return nil, err
	}
	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if rec := matchHeader(records, contentID, size); rec != nil {
		return rec, nil
	}

	if opts.SkipHash {
		return nil, nil
	}
	logger.Infof("Trying SHA256 for %s…", f.Path)
	sum, err := f.SHA256()
	if err != nil {
		return nil, err
	}
	return matchHash(records, sum), nil
}

// matchName scans in load order and returns the first record whose fields
// satisfy the filename predicate. A non-zero patch version matches purely on
// title id and update version; otherwise content id and title id must both
// match exactly.
func matchName(records []*catalog.Record, fields pkgfile.NameFields) *catalog.Record {
	patch := strings.TrimLeft(fields.Patch, "0")
	for _, rec := range records {
		if patch != "" {
			if rec.TitleID == fields.TitleID && rec.UpdateVersion == patch {
				return rec
			}
			continue
		}
		if rec.ContentID == fields.ContentID && rec.TitleID == fields.TitleID {
			return rec
		}
	}
	return nil
}

func matchHeader(records []*catalog.Record, contentID string, size int64) *catalog.Record {
	if contentID == "" {
		return nil
	}
	for _, rec := range records {
		if rec.ContentID == contentID && rec.FileSize == size {
			return rec
		}
	}
	return nil
}

func matchHash(records []*catalog.Record, sum string) *catalog.Record {
	if sum == "" {
		return nil
	}
	for _, rec := range records {
		if rec.SHA256 == sum {
			return rec
		}
	}
	return nil
}
