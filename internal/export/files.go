// Package export writes click data and session reports to disk.
package export

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// LocalDirName is the fallback export directory relative to the working directory.
const LocalDirName = "click_data"

const (
	filePrefix  = "ClickData_"
	stampLayout = "20060102_150405"
)

// ResolveDir creates preferred and returns it, falling back to a local
// click_data directory when preferred cannot be created.
func ResolveDir(preferred string, logger *slog.Logger) (string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if preferred != "" {
		err := os.MkdirAll(preferred, 0o755)
		if err == nil {
			return preferred, nil
		}
		logger.Warn("export dir unavailable, using local fallback", "dir", preferred, "err", err)
	}
	if err := os.MkdirAll(LocalDirName, 0o755); err != nil {
		return "", fmt.Errorf("create %s: %w", LocalDirName, err)
	}
	return LocalDirName, nil
}

// Files names the artifacts of one export.
type Files struct {
	CSV   string
	Stats string
	YAML  string
}

// NextFiles picks ClickData_YYYYMMDD_HHMMSS paths in dir, appending _N until
// none of the artifact names exist.
func NextFiles(dir string, at time.Time) (Files, error) {
	base := filePrefix + at.Format(stampLayout)
	for n := 0; n < 1000; n++ {
		name := base
		if n > 0 {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		files := Files{
			CSV:   filepath.Join(dir, name+".csv"),
			Stats: filepath.Join(dir, name+"_STATS.txt"),
			YAML:  filepath.Join(dir, name+".yaml"),
		}
		taken, err := anyExists(files.CSV, files.Stats, files.YAML)
		if err != nil {
			return Files{}, err
		}
		if !taken {
			return files, nil
		}
	}
	return Files{}, fmt.Errorf("no free export name for %s in %s", base, dir)
}

func anyExists(paths ...string) (bool, error) {
	for _, p := range paths {
		_, err := os.Stat(p)
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}
