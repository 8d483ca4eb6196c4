package security

import (
	"errors"
	"path/filepath"
	"strings"
)

var (
	ErrNullByteDetected     = errors.New("null byte detected in file name")
	ErrPathTraversal        = errors.New("path traversal detected")
	ErrExtensionNotAllowed  = errors.New("file type not allowed")
	ErrPathOutsideDirectory = errors.New("path escapes upload directory")
)

var traversalPatterns = []string{
	"..",
	"%2e%2e",
	"%252e%252e",
	"..%2f",
	"%2f..",
	"..\\",
}

// UploadPolicy decides which client file names are accepted.
type UploadPolicy struct {
	AllowedExtensions []string
}

// DefaultUploadPolicy accepts spreadsheets, PDFs and Word documents.
func DefaultUploadPolicy() UploadPolicy {
	return UploadPolicy{AllowedExtensions: []string{".xlsx", ".xls", ".pdf", ".doc", ".docx"}}
}

// CheckFilename validates a client-supplied file name and returns its
// lower-cased extension. Only the extension of the name is ever used on disk.
func (p UploadPolicy) CheckFilename(name string) (string, error) {
	if strings.IndexByte(name, 0) >= 0 {
		return "", ErrNullByteDetected
	}
	if containsTraversalPattern(name) {
		return "", ErrPathTraversal
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range p.AllowedExtensions {
		if ext == allowed {
			return ext, nil
		}
	}
	return "", ErrExtensionNotAllowed
}

// ContainedIn returns the cleaned absolute form of path when it lies inside
// dir.
func ContainedIn(path, dir string) (string, error) {
	absDir, err := filepath.Abs(filepath.Clean(dir))
	if err != nil {
		return "", err
	}
	absPath, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", err
	}

	rel, err := filepath.Rel(absDir, absPath)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrPathOutsideDirectory
	}
	return absPath, nil
}

func containsTraversalPattern(name string) bool {
	lower := strings.ToLower(name)
	for _, pattern := range traversalPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}
