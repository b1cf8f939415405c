package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"pkgsort/version"
)

type Config struct {
	TSVDir          string   `json:"tsv_dir"`
	PkgDir          string   `json:"pkg_dir"`
	CopyDir         string   `json:"copy_dir"`
	DryRun          bool     `json:"dry_run"`
	SkipHash        bool     `json:"skip_hash"`
	FileList        string   `json:"file_list"`
	ExportFileList  string   `json:"export_file_list"`
	IncludePatterns []string `json:"include_patterns"`
	ExcludePatterns []string `json:"exclude_patterns"`
	MaxIOPerSecond  int      `json:"max_io_per_second"`
	ReportFile      string   `json:"report_file"`
	Verify          bool     `json:"verify"`
	PreserveTimes   bool     `json:"preserve_times"`
	SkipFreeCheck   bool     `json:"skip_free_check"`
	LogLevel        string   `json:"log_level"`
	ConfigFile      string   `json:"-"`
}

// Copying reports whether files are copied to a separate destination root
// instead of being renamed in place.
func (cfg *Config) Copying() bool {
	return cfg.CopyDir != ""
}

// DestRoot returns the base directory destination paths are planned under.
func (cfg *Config) DestRoot() string {
	if cfg.Copying() {
		return cfg.CopyDir
	}
	return cfg.PkgDir
}

func Load() (*Config, error) {
	cfg := &Config{
		IncludePatterns: []string{},
		ExcludePatterns: []string{},
		PreserveTimes:   true,
		LogLevel:        "info",
	}

	tsvDir := flag.String("tsv-dir", "", "Directory containing the catalog .tsv files (required).")
	pkgDir := flag.String("pkg-dir", "", "Directory containing the .pkg files to rename (required).")
	copyDir := flag.String("copy-dir", cfg.CopyDir, "Copy renamed files under this directory instead of moving in place (default: move).")
	dryRun := flag.Bool("dry-run", cfg.DryRun, fmt.Sprintf("Plan and log without performing any move or copy operations (default: %t).", cfg.DryRun))
	skipHash := flag.Bool("skip-hash", cfg.SkipHash, fmt.Sprintf("Disable the SHA-256 fallback when matching renamed files (default: %t).", cfg.SkipHash))
	fileList := flag.String("file-list", cfg.FileList, "Read the file set from this list file instead of scanning pkg-dir (default: none).")
	exportFileList := flag.String("export-file-list", cfg.ExportFileList, "Write the scanned file set to this list file (default: none).")
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, fmt.Sprintf("Maximum file operations per second, 0 for unlimited (default: %d).", cfg.MaxIOPerSecond))
	report := flag.String("report", cfg.ReportFile, "Write an NDJSON run report to this path (default: none).")
	verify := flag.Bool("verify", cfg.Verify, fmt.Sprintf("Verify copied bytes with a checksum (default: %t).", cfg.Verify))
	preserveTimes := flag.Bool("preserve-times", cfg.PreserveTimes, fmt.Sprintf("Preserve source modification times on copied files (default: %t).", cfg.PreserveTimes))
	skipFreeCheck := flag.Bool("skip-free-check", cfg.SkipFreeCheck, fmt.Sprintf("Skip the destination free-space preflight check (default: %t).", cfg.SkipFreeCheck))
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("pkgsort version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "tsv-dir":
			cfg.TSVDir = *tsvDir
		case "pkg-dir":
			cfg.PkgDir = *pkgDir
		case "copy-dir":
			cfg.CopyDir = *copyDir
		case "dry-run":
			cfg.DryRun = *dryRun
		case "skip-hash":
			cfg.SkipHash = *skipHash
		case "file-list":
			cfg.FileList = *fileList
		case "export-file-list":
			cfg.ExportFileList = *exportFileList
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "report":
			cfg.ReportFile = *report
		case "verify":
			cfg.Verify = *verify
		case "preserve-times":
			cfg.PreserveTimes = *preserveTimes
		case "skip-free-check":
			cfg.SkipFreeCheck = *skipFreeCheck
		case "log-level":
			cfg.LogLevel = *logLevel
		}
	})

	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	cfg.TSVDir = cleanPath(cfg.TSVDir)
	cfg.PkgDir = cleanPath(cfg.PkgDir)
	cfg.CopyDir = cleanPath(cfg.CopyDir)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("pkgsort - PKG catalog renamer")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pkgsort [options]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  pkgsort --tsv-dir ./tsv --pkg-dir ./packages")
	fmt.Println("  pkgsort --tsv-dir ./tsv --pkg-dir ./packages --copy-dir /mnt/library --verify")
	fmt.Println("  pkgsort --tsv-dir ./tsv --pkg-dir ./packages --dry-run --report run.ndjson")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	if cfg.TSVDir == "" {
		return fmt.Errorf("--tsv-dir is required")
	}
	if cfg.PkgDir == "" {
		return fmt.Errorf("--pkg-dir is required")
	}
	if cfg.CopyDir != "" && cfg.CopyDir == cfg.PkgDir {
		return fmt.Errorf("--copy-dir must differ from --pkg-dir")
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

func cleanPath(path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return ""
	}
	return filepath.Clean(path)
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}
