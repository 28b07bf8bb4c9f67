// Package savename suggests default output names for generated archives.
package savename

import (
	"path/filepath"
	"time"
)

// Ext is the archive file extension offered by the save filter.
const Ext = ".zip"

// Default returns a timestamped archive filename.
func Default(now time.Time) string {
	return "observations-" + now.Format("20060102-150405") + Ext
}

// DefaultPath joins the default filename onto an output directory.
func DefaultPath(dir string, now time.Time) string {
	return filepath.Join(dir, Default(now))
}
