package planner

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"pkgsort/catalog"
	"pkgsort/logger"
)

// unsafeRe matches the characters no target filesystem accepts in names.
var unsafeRe = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeFileName normalizes a destination filename: Unicode composed form,
// unsafe characters replaced with underscores, surrounding whitespace
// trimmed. Idempotent.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	return strings.TrimSpace(unsafeRe.ReplaceAllString(name, "_"))
}

// Plan is one planned filesystem operation.
type Plan struct {
	Source string
	Dest   string
	// DedupIndex is non-zero when the destination collided with an earlier
	// plan and received a " (N)" suffix.
	DedupIndex int
}

// Planner computes destination paths under a fixed root and guarantees that
// no destination is allocated twice within a run. Collision detection is
// case-insensitive because target filesystems may be.
type Planner struct {
	destRoot string
	dupes    map[string]int
}

func New(destRoot string) *Planner {
	return &Planner{
		destRoot: destRoot,
		dupes:    make(map[string]int),
	}
}

// Plan derives the destination for a matched record. Returns ok=false when
// the computed destination equals the source path, meaning there is nothing
// to do for this file.
func (p *Planner) Plan(rec *catalog.Record, srcPath string) (Plan, bool) {
	destDir := filepath.Join(p.destRoot, rec.Category.DirPath())
	destFile := SanitizeFileName(rec.FileName(filepath.Ext(srcPath)))
	destPath := filepath.Join(destDir, destFile)

	plan := Plan{Source: srcPath, Dest: destPath}

	key := strings.ToLower(destPath)
	if n, seen := p.dupes[key]; seen {
		p.dupes[key] = n + 1
		ext := filepath.Ext(destFile)
		stem := strings.TrimSuffix(destFile, ext)
		plan.DedupIndex = n + 1
		plan.Dest = filepath.Join(destDir, fmt.Sprintf("%s (%d)%s", stem, plan.DedupIndex, ext))
		logger.Infof("Encountered duplicate destination file path %s, renamed to %s", destPath, filepath.Base(plan.Dest))
	} else {
		p.dupes[key] = 0
	}

	if plan.Dest == srcPath {
		return Plan{}, false
	}
	return plan, true
}
