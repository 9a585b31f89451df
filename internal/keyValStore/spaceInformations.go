package keyValStore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/disk"
	"github.com/sirupsen/logrus"
)

// calculateDirectorySize calculates the total size of files within a directory
func calculateDirectorySize(path string) (size int64, err error) {
	err = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return
}

// getDeviceAndMountPoint picks the partition with the longest mount point containing path.
func getDeviceAndMountPoint(path string) (device, mountPoint string, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", "", err
	}

	partitions, err := disk.Partitions(true)
	if err != nil {
		return "", "", fmt.Errorf("unable to list partitions: %w", err)
	}

	for _, p := range partitions {
		if strings.HasPrefix(absPath, p.Mountpoint) && len(p.Mountpoint) > len(mountPoint) {
			device, mountPoint = p.Device, p.Mountpoint
		}
	}
	if mountPoint == "" {
		return "", "", fmt.Errorf("unable to find mount for path %s", path)
	}
	return device, mountPoint, nil
}

// DiskUsage is the space report of one store path.
type DiskUsage struct {
	Path       string
	Device     string
	MountPoint string
	Total      uint64
	Used       uint64
	Free       uint64
	UsedByDB   uint64
}

func GetDiskUsage(path string) (DiskUsage, error) {
	usage, err := disk.Usage(path)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("error retrieving disk usage stats: %w", err)
	}

	device, mountPoint, err := getDeviceAndMountPoint(path)
	if err != nil {
		return DiskUsage{}, err
	}

	pathSize, err := calculateDirectorySize(path)
	if err != nil {
		return DiskUsage{}, fmt.Errorf("error calculating directory size: %w", err)
	}

	return DiskUsage{
		Path:       path,
		Device:     device,
		MountPoint: mountPoint,
		Total:      usage.Total,
		Used:       usage.Used,
		Free:       usage.Free,
		UsedByDB:   uint64(pathSize),
	}, nil
}

// displayDiskUsage displays the disk usage information using structured logging
func displayDiskUsage(log *logrus.Logger, paths []string) error {
	for _, path := range paths {
		u, err := GetDiskUsage(path)
		if err != nil {
			log.WithFields(logrus.Fields{
				"path": path,
			}).Errorf("Error retrieving disk usage: %v", err)
			return err
		}

		log.WithFields(logrus.Fields{
			"Path":        u.Path,
			"Device":      u.Device,
			"Mount Point": u.MountPoint,
			"Total":       humanize.Bytes(u.Total),
			"Used":        humanize.Bytes(u.Used),
			"Free":        humanize.Bytes(u.Free),
			"Usage by DB": humanize.Bytes(u.UsedByDB),
		}).Debug("Disk Usage")
	}

	return nil
}
