package utils

import (
	"path/filepath"
	"strings"
)

// GetPathInfo resolves relPath and returns it with its parent directory,
// which is where #include directives of a source file are looked up.
func GetPathInfo(relPath string) (fullPath string, parentDir string, err error) {
	fullPath, err = filepath.Abs(relPath)
	if err != nil {
		return "", "", err
	}
	return fullPath, filepath.Dir(fullPath), nil
}

// SwapExt replaces the extension of path with ext, or appends ext when
// path has none.
func SwapExt(path, ext string) string {
	old := filepath.Ext(path)
	if old == "" {
		return path + ext
	}
	return strings.TrimSuffix(path, old) + ext
}

// IsCSource reports whether path names a C source file.
func IsCSource(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".c")
}
