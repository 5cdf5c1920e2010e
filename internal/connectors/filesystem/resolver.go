package filesystem

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// ResolvePath converts a source path to a file path under root.
// Paths that are absolute or climb out of root are rejected.
func ResolvePath(root, sourcePath string) (string, error) {
	rel, err := CleanSourcePath(sourcePath)
	if err != nil {
		return "", err
	}
	return filepath.Join(root, filepath.FromSlash(rel)), nil
}

// CleanSourcePath normalises a source path to slash-separated form
// relative to the source root.
func CleanSourcePath(sourcePath string) (string, error) {
	p := strings.ReplaceAll(sourcePath, "\\", "/")
	if p == "" || path.IsAbs(p) || filepath.IsAbs(sourcePath) {
		return "", domain.NewInvalidInput("source_path", "%q must be relative to the source root", sourcePath)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", domain.NewInvalidInput("source_path", "%q is outside the source root", sourcePath)
	}
	return p, nil
}

// RelativePath converts a file path under root to a source path.
func RelativePath(root, file string) (string, error) {
	rel, err := filepath.Rel(root, file)
	if err != nil {
		return "", domain.NewInvalidInput("source_path", "%s: %v", file, err)
	}
	return CleanSourcePath(filepath.ToSlash(rel))
}

// isHidden reports whether any element of p starts with a dot.
// "." and ".." are not hidden.
func isHidden(p string) bool {
	for _, part := range strings.Split(filepath.ToSlash(p), "/") {
		if len(part) > 1 && part[0] == '.' && part != ".." {
			return true
		}
	}
	return false
}
