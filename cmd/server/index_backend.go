package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"shipforge.ai/internal/persistence/indexdb"
)

// openIndex picks the run index backend. SF_INDEX_BACKEND selects sqlite
// (default) or none.
func openIndex(dataDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("SF_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}
	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(dataDir, "index", "runs.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported SF_INDEX_BACKEND: %s", backend)
	}
}
