// Package fsutil provides filesystem helpers shared by the segment store and
// the loopback read endpoints: path confinement and an identifier-safety
// check for anything derived from caller-supplied headers.
package fsutil

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var safeIdentifierRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// IsSafeIdentifier returns true if id is safe to use as a filesystem path
// component or URL segment — no slashes, dots, or other traversal vectors.
func IsSafeIdentifier(id string) bool {
	return id != "" && safeIdentifierRe.MatchString(id)
}

// ConfineRelPath ensures that joining root and relTarget results in a path
// physically underneath the resolved path of root, guarding against
// symlink traversal and backslash bypass. relTarget must be relative.
func ConfineRelPath(root, relTarget string) (string, error) {
	if strings.Contains(relTarget, "\\") {
		return "", fmt.Errorf("path contains backslash: %s", relTarget)
	}

	cleanRel := filepath.Clean(relTarget)
	if filepath.IsAbs(cleanRel) {
		return "", fmt.Errorf("target path must be relative: %s", relTarget)
	}
	if cleanRel == ".." || strings.HasPrefix(cleanRel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt: %s", relTarget)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root path: %w", err)
	}
	realRoot, err := filepath.EvalSymlinks(absRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return "", err
		}
		realRoot = absRoot
	}

	fullPath := filepath.Join(realRoot, cleanRel)
	return resolveAndCheck(realRoot, fullPath)
}

func resolveAndCheck(realRoot, fullPath string) (string, error) {
	var realPath string
	if _, err := os.Lstat(fullPath); err == nil {
		rp, err := filepath.EvalSymlinks(fullPath)
		if err != nil {
			return "", fmt.Errorf("failed to resolve path: %w", err)
		}
		realPath = rp
	} else {
		dir := filepath.Dir(fullPath)
		if rp, err := filepath.EvalSymlinks(dir); err == nil {
			realPath = filepath.Join(rp, filepath.Base(fullPath))
		} else {
			if _, statErr := os.Stat(dir); statErr == nil {
				return "", fmt.Errorf("failed to resolve parent path: %w", err)
			}
			realPath = fullPath
		}
	}

	rel, err := filepath.Rel(realRoot, realPath)
	if err != nil {
		return "", fmt.Errorf("rel computation failed: %w", err)
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes root via symlinks: %s", realPath)
	}
	return realPath, nil
}
