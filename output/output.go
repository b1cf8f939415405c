package output

import (
	"bufio"
	"encoding/json"
	"os"
	"sync"

	"pkgsort/config"
	"pkgsort/logger"
	"pkgsort/sysinfo"
	"pkgsort/version"
)

// SchemaVersion identifies the report layout for downstream consumers.
const SchemaVersion = "1.0"

// Metrics summarizes one run; written as the final report record.
type Metrics struct {
	StartTime        string `json:"start_time"`
	EndTime          string `json:"end_time"`
	FilesFound       int    `json:"files_found"`
	FilesMatched     int    `json:"files_matched"`
	FilesUnhandled   int    `json:"files_unhandled"`
	FilesSkipped     int    `json:"files_skipped"`
	Transferred      int    `json:"transferred"`
	SkippedExisting  int    `json:"skipped_existing"`
	BytesTransferred int64  `json:"bytes_transferred"`
}

// Writer emits an NDJSON run report: a header record describing the run,
// one record per event, and a closing metrics record. A nil Writer is valid
// and discards everything, so the report stays optional.
type Writer struct {
	file *os.File
	buf  *bufio.Writer
	mu   sync.Mutex
}

func New(path string, cfg *config.Config) (*Writer, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	w := &Writer{
		file: f,
		buf:  bufio.NewWriterSize(f, 64*1024),
	}
	w.writeRecord(map[string]interface{}{
		"record_type":    "run",
		"schema_version": SchemaVersion,
		"version":        version.Version,
		"host":           sysinfo.Summary(),
		"config": map[string]interface{}{
			"tsv_dir":   cfg.TSVDir,
			"pkg_dir":   cfg.PkgDir,
			"copy_dir":  cfg.CopyDir,
			"dry_run":   cfg.DryRun,
			"skip_hash": cfg.SkipHash,
			"verify":    cfg.Verify,
		},
	})
	return w, nil
}

// WriteEvent records one pipeline or transfer event.
func (w *Writer) WriteEvent(kind string, fields map[string]interface{}) {
	if w == nil {
		return
	}
	record := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		record[k] = v
	}
	record["record_type"] = kind
	w.writeRecord(record)
}

// WriteMetrics records the final run summary.
func (w *Writer) WriteMetrics(m Metrics) {
	if w == nil {
		return
	}
	w.writeRecord(map[string]interface{}{
		"record_type": "metrics",
		"metrics":     m,
	})
}

func (w *Writer) writeRecord(record map[string]interface{}) {
	data, err := json.Marshal(record)
	if err != nil {
		logger.Warnf("Failed to encode report record: %v", err)
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.buf.Write(data); err != nil {
		logger.Warnf("Failed to write report record: %v", err)
		return
	}
	if err := w.buf.WriteByte('\n'); err != nil {
		logger.Warnf("Failed to write report record: %v", err)
	}
}

func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.buf.Flush(); err != nil {
		w.file.Close()
		return err
	}
	return w.file.Close()
}
