package scanner

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"pkgsort/config"
	"pkgsort/logger"
	"pkgsort/utils"
)

// Collect produces the set of package files to process, either by walking
// pkg-dir recursively or by reading a previously exported list file. The
// walk is sequential and deterministic (lexical WalkDir order).
func Collect(ctx context.Context, cfg *config.Config) ([]string, error) {
	if cfg.FileList != "" {
		logger.Infof("Reading file list from %s", cfg.FileList)
		return ReadList(cfg.FileList)
	}

	matcher := utils.NewPatternMatcher(cfg.IncludePatterns, cfg.ExcludePatterns)

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Scanning for .pkg files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetVisibility(progressVisible()),
	)
	defer bar.Finish()

	var files []string
	err := filepath.WalkDir(cfg.PkgDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Warnf("Failed to access %s: %v", path, err)
			return nil
		}
		if d == nil || d.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ".pkg") {
			return nil
		}
		if !matcher.ShouldInclude(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if ioLimiter != nil {
			if err := ioLimiter.Wait(ctx); err != nil {
				return err
			}
		}
		files = append(files, path)
		_ = bar.Add(1)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// ReadList reads a scan-result list file: one path per line, blank lines and
// lines starting with '#' ignored.
func ReadList(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		files = append(files, line)
	}
	return files, nil
}

// WriteList writes the file set as a list file, one path per line.
func WriteList(path string, files []string) error {
	var b strings.Builder
	for _, file := range files {
		b.WriteString(file)
		b.WriteByte('\n')
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("PKGSORT_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
