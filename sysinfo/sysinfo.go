package sysinfo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/host"
)

// HostSummary is the short host description recorded in run reports.
type HostSummary struct {
	Hostname        string `json:"hostname"`
	OS              string `json:"os"`
	Platform        string `json:"platform"`
	PlatformVersion string `json:"platform_version,omitempty"`
	KernelVersion   string `json:"kernel_version,omitempty"`
}

// Summary gathers a best-effort host description; fields are left empty on
// failure rather than failing the run.
func Summary() HostSummary {
	info, err := host.Info()
	if err != nil {
		hostname, _ := os.Hostname()
		return HostSummary{Hostname: hostname}
	}
	return HostSummary{
		Hostname:        info.Hostname,
		OS:              info.OS,
		Platform:        info.Platform,
		PlatformVersion: info.PlatformVersion,
		KernelVersion:   info.KernelVersion,
	}
}

// FreeBytes returns the free space of the filesystem holding path. The path
// itself need not exist yet; the nearest existing ancestor is measured.
func FreeBytes(path string) (uint64, error) {
	probe, err := existingAncestor(path)
	if err != nil {
		return 0, err
	}
	usage, err := disk.Usage(probe)
	if err != nil {
		return 0, fmt.Errorf("could not determine disk usage of %s: %w", probe, err)
	}
	return usage.Free, nil
}

func existingAncestor(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(abs); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no existing ancestor for %s", path)
		}
		abs = parent
	}
}
