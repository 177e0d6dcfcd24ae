package utils

import (
	"fmt"
	"os"
	"os/exec"
)

func FileExists(path string) (bool, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("expected a file, got a directory: %s", path)
	}
	return true, nil
}

var LookForFileInPath = DefaultLookForFileInPath

func DefaultLookForFileInPath(file string) (string, error) {
	absPath, err := exec.LookPath(file)
	if err != nil {
		return "", fmt.Errorf("failed to get absolute path for %s: %w", file, err)
	}
	return absPath, nil
}

func HumanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
