package ingest

import (
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/pallet-tracker/constants"
)

func isHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func allowed(path string) bool {
	return !isHidden(path) && constants.IsAllowedExt(filepath.Ext(path))
}
