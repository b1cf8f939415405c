package pipeline

import (
	"context"

	"pkgsort/catalog"
	"pkgsort/config"
	"pkgsort/logger"
	"pkgsort/matcher"
	"pkgsort/output"
	"pkgsort/pkgfile"
	"pkgsort/planner"
	"pkgsort/scanner"
	"pkgsort/tracing"
	"pkgsort/utils"
)

// Result holds the outcome of the matching phase: the operations to perform
// and the files nothing could be done for.
type Result struct {
	FilesFound int
	Plans      []planner.Plan
	Unhandled  []string
	// Skipped counts files excluded for failing the magic check.
	Skipped int
}

// Run identifies every collected package file against the catalog and plans
// its destination. Files with invalid magic are silently excluded; files
// without a catalog match are collected as unhandled. Header decode failures
// abort the run.
func Run(ctx context.Context, cfg *config.Config, records []*catalog.Record, w *output.Writer) (*Result, error) {
	ctx, endTask := tracing.StartTask(ctx, "match_files")
	defer endTask()

	files, err := scanner.Collect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cfg.ExportFileList != "" {
		if err := scanner.WriteList(cfg.ExportFileList, files); err != nil {
			logger.Warnf("Failed to export file list to %s: %v", cfg.ExportFileList, err)
		} else {
			logger.Infof("Exported %d path(s) to %s", len(files), cfg.ExportFileList)
		}
	}

	res := &Result{FilesFound: len(files)}
	if len(files) == 0 {
		logger.Info("No .pkg files found")
		return res, nil
	}
	logger.Infof("%d .pkg %s found", len(files), plural(len(files), "file", "files"))

	opts := matcher.Options{SkipHash: cfg.SkipHash}
	pl := planner.New(cfg.DestRoot())

	for _, path := range files {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		// Imported list files may reference paths from an earlier scan of a
		// different root; refuse to touch anything outside pkg-dir.
		if cfg.FileList != "" && !utils.IsPathWithin(path, []string{cfg.PkgDir}) {
			logger.Warnf("Skipping file outside package directory: %s", path)
			res.Skipped++
			continue
		}

		ok, err := pkgfile.IsPackage(path)
		if err != nil {
			return nil, err
		}
		if !ok {
			logger.Debugf("Skipping %s, magic mismatch", path)
			res.Skipped++
			continue
		}

		f := pkgfile.New(path)
		rec, err := matcher.Resolve(records, f, opts)
		if err != nil {
			return nil, err
		}
		if rec == nil {
			res.Unhandled = append(res.Unhandled, path)
			w.WriteEvent("unhandled", map[string]interface{}{"path": path})
			continue
		}

		plan, ok := pl.Plan(rec, path)
		if !ok {
			logger.Debugf("Skipping %s, already at its destination", path)
			continue
		}
		res.Plans = append(res.Plans, plan)
		event := map[string]interface{}{
			"source": plan.Source,
			"dest":   plan.Dest,
			"title":  rec.Name,
		}
		if plan.DedupIndex > 0 {
			event["dedup_index"] = plan.DedupIndex
		}
		w.WriteEvent("plan", event)
	}

	return res, nil
}

func plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
