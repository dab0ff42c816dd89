// Package validate checks file system inputs before any component touches
// them: existence, size limits, extension whitelist and path traversal
// safety. Every other package composes these checks instead of
// reimplementing them.
package validate

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// Kind classifies a validation failure.
type Kind string

const (
	KindNotFound          Kind = "NotFound"
	KindNotAFile          Kind = "NotAFile"
	KindPermissionDenied  Kind = "PermissionDenied"
	KindInvalidPath       Kind = "InvalidPath"
	KindInvalidExtension  Kind = "InvalidExtension"
	KindSizeLimitExceeded Kind = "SizeLimitExceeded"
	KindUnsafePath        Kind = "UnsafePath"
	KindPathEscape        Kind = "PathEscape"
)

// MaxFileSize is the default size limit for audio files (500 MiB).
const MaxFileSize int64 = 500 * 1024 * 1024

// DefaultExtensions is the default audio extension whitelist.
var DefaultExtensions = []string{".wav", ".mp3", ".m4a", ".flac", ".ogg"}

// dangerousPatterns are rejected as literal substrings anywhere in a path.
var dangerousPatterns = []string{"..", "~", "$"}

// Error is a validation failure with a machine-readable kind.
type Error struct {
	Kind Kind
	Path string
	msg  string
}

func (e *Error) Error() string { return e.msg }

// FaultKind implements the kind lookup used by the report package.
func (e *Error) FaultKind() string { return string(e.Kind) }

func newError(kind Kind, path, format string, args ...any) *Error {
	return &Error{Kind: kind, Path: path, msg: fmt.Sprintf(format, args...)}
}

// FileExists checks that path exists, is a regular file and is readable.
func FileExists(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return newError(KindNotFound, path, "file not found: %s", path)
	}
	if info.IsDir() {
		return newError(KindNotAFile, path, "path is not a file: %s", path)
	}
	if unix.Access(path, unix.R_OK) != nil {
		return newError(KindPermissionDenied, path, "file not readable: %s", path)
	}
	return nil
}

// DirectoryExists checks that dirPath exists, is a directory and is
// writable. With create set, a missing directory (and parents) is created.
func DirectoryExists(dirPath string, create bool) error {
	info, err := os.Stat(dirPath)
	if err != nil {
		if !create {
			return newError(KindNotFound, dirPath, "directory not found: %s", dirPath)
		}
		if err := os.MkdirAll(dirPath, 0o755); err != nil {
			return newError(KindPermissionDenied, dirPath, "cannot create directory %q: %v", dirPath, err)
		}
		info, err = os.Stat(dirPath)
		if err != nil {
			return newError(KindPermissionDenied, dirPath, "cannot create directory %q: %v", dirPath, err)
		}
	}
	if !info.IsDir() {
		return newError(KindInvalidPath, dirPath, "path is not a directory: %s", dirPath)
	}
	if unix.Access(dirPath, unix.W_OK) != nil {
		return newError(KindPermissionDenied, dirPath, "directory not writable: %s", dirPath)
	}
	return nil
}

// Extension checks the file suffix against a whitelist, case-insensitively.
// A nil or empty allowed list means DefaultExtensions.
func Extension(path string, allowed []string) error {
	if len(allowed) == 0 {
		allowed = DefaultExtensions
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, a := range allowed {
		if ext == strings.ToLower(a) {
			return nil
		}
	}
	return newError(KindInvalidExtension, path,
		"invalid file extension %q, allowed: %s", ext, strings.Join(allowed, ", "))
}

// FileSize checks that the file at path does not exceed maxBytes.
// A maxBytes of 0 means MaxFileSize.
func FileSize(path string, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = MaxFileSize
	}
	info, err := os.Stat(path)
	if err != nil {
		return newError(KindNotFound, path, "file not found: %s", path)
	}
	if info.Size() > maxBytes {
		return newError(KindSizeLimitExceeded, path,
			"file size %.1fMB exceeds limit of %.1fMB: %s",
			float64(info.Size())/(1024*1024), float64(maxBytes)/(1024*1024), path)
	}
	return nil
}

// PathSafety rejects paths containing traversal patterns as literal
// substrings, and with baseDir set, paths that resolve outside it.
func PathSafety(path, baseDir string) error {
	for _, pattern := range dangerousPatterns {
		if strings.Contains(path, pattern) {
			return newError(KindUnsafePath, path,
				"path contains dangerous pattern %q: %s", pattern, path)
		}
	}
	if baseDir != "" {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return newError(KindInvalidPath, path, "cannot resolve path %q: %v", path, err)
		}
		absBase, err := filepath.Abs(baseDir)
		if err != nil {
			return newError(KindInvalidPath, baseDir, "cannot resolve base directory %q: %v", baseDir, err)
		}
		if !strings.HasPrefix(absPath, absBase) {
			return newError(KindPathEscape, path,
				"path escapes base directory %q: %s", absBase, absPath)
		}
	}
	return nil
}

// OutputPath validates a path about to be written: traversal safety plus
// parent directory existence, creating the parent when createParent is set.
func OutputPath(path, baseDir string, createParent bool) error {
	if err := PathSafety(path, baseDir); err != nil {
		return err
	}
	if parent := filepath.Dir(path); parent != "." {
		return DirectoryExists(parent, createParent)
	}
	return nil
}

// AudioFile runs the full input check set for an audio file: traversal
// safety, existence, extension whitelist and size limit.
func AudioFile(path, baseDir string) error {
	if err := PathSafety(path, baseDir); err != nil {
		return err
	}
	if err := FileExists(path); err != nil {
		return err
	}
	if err := Extension(path, nil); err != nil {
		return err
	}
	return FileSize(path, 0)
}
