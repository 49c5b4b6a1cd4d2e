package render

import (
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// defaultExportDir is created under the working directory on first export.
const defaultExportDir = ".postcarder_sent"

// exportImage writes finished JPEG bytes to the export directory with a
// second-resolution timestamped name, e.g.
// postcarder_export_2026-08-28_14-03-07_cover.jpg. Export is debug-only;
// failures are logged and swallowed.
func exportImage(data []byte, suffix, dir string) {
	if dir == "" {
		dir = defaultExportDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.Error("create image export dir", "dir", dir, "error", err)
		return
	}

	name := time.Now().UTC().Format("postcarder_export_2006-01-02_15-04-05") + "_" + suffix + ".jpg"
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		slog.Error("export image", "path", path, "error", err)
		return
	}
	slog.Info("exported image", "path", path)
}
