//go:build windows

package node

import (
	"path/filepath"
	"strings"
)

func isExecutable(path string) bool {
	return strings.EqualFold(filepath.Base(path), ExecutableName+".exe")
}
