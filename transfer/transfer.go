package transfer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/djherbis/times"
	"github.com/dustin/go-humanize"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/time/rate"

	"pkgsort/config"
	"pkgsort/logger"
	"pkgsort/output"
	"pkgsort/planner"
	"pkgsort/sysinfo"
	"pkgsort/tracing"
)

// Stats summarizes what the transfer phase actually did.
type Stats struct {
	Transferred      int
	SkippedExisting  int
	BytesTransferred int64
}

// Run carries out the planned operations in order. A destination that already
// exists with the same byte size is treated as done and skipped, which makes
// interrupted runs resumable. Any filesystem failure aborts the batch with
// the failing source and destination named.
func Run(ctx context.Context, cfg *config.Config, plans []planner.Plan, w *output.Writer) (*Stats, error) {
	ctx, endTask := tracing.StartTask(ctx, "transfer_files")
	defer endTask()

	stats := &Stats{}
	if len(plans) == 0 {
		logger.Info("There's nothing to do!")
		return stats, nil
	}

	verb, infinitive := "Moving", "move"
	if cfg.Copying() {
		verb, infinitive = "Copying", "copy"
	}

	if cfg.Copying() && !cfg.DryRun && !cfg.SkipFreeCheck {
		if err := checkFreeSpace(cfg.DestRoot(), plans); err != nil {
			return nil, err
		}
	}

	var ioLimiter *rate.Limiter
	if cfg.MaxIOPerSecond > 0 {
		ioLimiter = rate.NewLimiter(rate.Limit(cfg.MaxIOPerSecond), cfg.MaxIOPerSecond)
	}

	bar := progressbar.NewOptions(len(plans),
		progressbar.OptionSetDescription(verb+" files"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionSetVisibility(progressVisible()),
	)
	defer bar.Finish()

	start := time.Now()
	for _, plan := range plans {
		select {
		case <-ctx.Done():
			return stats, ctx.Err()
		default:
		}

		if ioLimiter != nil {
			if err := ioLimiter.Wait(ctx); err != nil {
				return stats, err
			}
		}

		srcInfo, err := os.Stat(plan.Source)
		if err != nil {
			return stats, fmt.Errorf("could not stat %s: %w", plan.Source, err)
		}

		// The same-size check runs in dry-run too so the dry-run log matches
		// what a real run would actually do.
		if destInfo, err := os.Stat(plan.Dest); err == nil && destInfo.Size() == srcInfo.Size() {
			logger.Debugf("Skipping %s, destination %s already exists with identical size", plan.Source, plan.Dest)
			w.WriteEvent("skip_existing", map[string]interface{}{"source": plan.Source, "dest": plan.Dest})
			stats.SkippedExisting++
			_ = bar.Add(1)
			continue
		}

		if cfg.DryRun {
			logger.Infof("[dry-run] Would %s %s to %s", infinitive, plan.Source, plan.Dest)
			w.WriteEvent("dry_run", map[string]interface{}{"source": plan.Source, "dest": plan.Dest})
			_ = bar.Add(1)
			continue
		}

		if err := os.MkdirAll(filepath.Dir(plan.Dest), 0o755); err != nil {
			return stats, fmt.Errorf("could not create directory for %s: %w", plan.Dest, err)
		}

		if cfg.Copying() {
			err = copyFile(cfg, plan.Source, plan.Dest)
		} else {
			err = moveFile(cfg, plan.Source, plan.Dest)
		}
		if err != nil {
			return stats, fmt.Errorf("could not transfer %s to %s: %w", plan.Source, plan.Dest, err)
		}

		w.WriteEvent("transfer", map[string]interface{}{
			"source": plan.Source,
			"dest":   plan.Dest,
			"bytes":  srcInfo.Size(),
		})
		stats.Transferred++
		stats.BytesTransferred += srcInfo.Size()
		_ = bar.Add(1)
	}

	if !cfg.DryRun && stats.Transferred > 0 {
		elapsed := time.Since(start)
		rate := float64(stats.BytesTransferred) / elapsed.Seconds()
		logger.Infof("Transferred %s in %s (%s/s)",
			humanize.Bytes(uint64(stats.BytesTransferred)),
			elapsed.Round(time.Millisecond),
			humanize.Bytes(uint64(rate)))
	}

	return stats, nil
}

// checkFreeSpace refuses a copy batch that cannot fit on the destination
// filesystem. Sizes are taken up front so the failure happens before any
// bytes move.
func checkFreeSpace(destRoot string, plans []planner.Plan) error {
	var total uint64
	for _, plan := range plans {
		info, err := os.Stat(plan.Source)
		if err != nil {
			return fmt.Errorf("could not stat %s: %w", plan.Source, err)
		}
		total += uint64(info.Size())
	}
	free, err := sysinfo.FreeBytes(destRoot)
	if err != nil {
		logger.Warnf("Could not check free space on %s: %v", destRoot, err)
		return nil
	}
	if free < total {
		return fmt.Errorf("not enough free space on %s: need %s, have %s",
			destRoot, humanize.Bytes(total), humanize.Bytes(free))
	}
	return nil
}

// moveFile renames src to dest, falling back to copy-and-remove when the
// rename crosses filesystems.
func moveFile(cfg *config.Config, src, dest string) error {
	if err := os.Rename(src, dest); err == nil {
		return nil
	}
	if err := copyFile(cfg, src, dest); err != nil {
		return err
	}
	return os.Remove(src)
}

func copyFile(cfg *config.Config, src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	srcDigest := xxhash.New()
	destDigest := xxhash.New()
	var reader io.Reader = in
	var writer io.Writer = out
	if cfg.Verify {
		reader = io.TeeReader(in, srcDigest)
		writer = io.MultiWriter(out, destDigest)
	}

	if _, err := io.Copy(writer, reader); err != nil {
		_ = os.Remove(dest)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return err
	}

	if cfg.Verify && srcDigest.Sum64() != destDigest.Sum64() {
		_ = os.Remove(dest)
		return fmt.Errorf("verification failed, digests differ after copy")
	}

	if cfg.PreserveTimes {
		preserveTimes(src, dest)
	}
	return nil
}

// preserveTimes carries the source timestamps over to the copy. Failures are
// logged, not fatal; the copied data is already safe.
func preserveTimes(src, dest string) {
	ts, err := times.Stat(src)
	if err != nil {
		logger.Warnf("Could not read timestamps of %s: %v", src, err)
		return
	}
	if err := os.Chtimes(dest, ts.AccessTime(), ts.ModTime()); err != nil {
		logger.Warnf("Could not set timestamps on %s: %v", dest, err)
	}
}

func progressVisible() bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("PKGSORT_DISABLE_PROGRESS")))
	return value != "1" && value != "true" && value != "yes" && value != "on"
}
