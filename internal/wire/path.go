package wire

import (
	"errors"
	"path"
	"strings"
)

var (
	ErrEmptyPath   = errors.New("path is empty")
	ErrInvalidPath = errors.New("invalid path")
)

// ValidatePath enforces the path discipline for manifest entries: forward
// slashes, relative to the folder root, no leading slash, no "." or ".."
// segments, no NUL bytes or backslashes. The input must already be in its
// cleaned form ("a//b" or "a/./b" are rejected, not normalised).
func ValidatePath(p string) error {
	if p == "" {
		return ErrEmptyPath
	}
	if strings.HasPrefix(p, "/") || strings.HasSuffix(p, "/") {
		return ErrInvalidPath
	}
	if strings.ContainsAny(p, "\x00\\") {
		return ErrInvalidPath
	}
	if path.Clean(p) != p {
		return ErrInvalidPath
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return ErrInvalidPath
		}
	}
	return nil
}

// IsHiddenPath reports whether any component of the slash-separated path
// starts with a dot. Hidden entries are never synced.
func IsHiddenPath(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		if strings.HasPrefix(seg, ".") {
			return true
		}
	}
	return false
}
