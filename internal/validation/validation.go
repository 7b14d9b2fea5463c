// Package validation checks uploaded history documents and request parameters.
package validation

import (
	"fmt"
	"mime"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// firstHistoryYear is the year YouTube launched; nothing can be watched earlier.
const firstHistoryYear = 2005

var (
	yearRegex = regexp.MustCompile(`^[0-9]{4}$`)

	allowedExtensions = map[string]bool{
		".html": true,
		".htm":  true,
	}

	allowedContentTypes = map[string]bool{
		"text/html":                true,
		"application/xhtml+xml":    true,
		"text/plain":               true,
		"application/octet-stream": true,
	}
)

// Validator checks uploads against the configured limits.
type Validator struct {
	maxDocumentSize   int64
	validationEnabled bool
}

// New creates a Validator. A disabled validator still enforces the size limit.
func New(maxDocumentSize int64, enabled bool) *Validator {
	return &Validator{
		maxDocumentSize:   maxDocumentSize,
		validationEnabled: enabled,
	}
}

// MaxDocumentSize returns the configured size limit in bytes.
func (v *Validator) MaxDocumentSize() int64 {
	return v.maxDocumentSize
}

// ValidateUpload checks an upload's name, declared content type and size.
// Empty filename or content type and a negative size mean "unknown" and pass.
func (v *Validator) ValidateUpload(filename, contentType string, size int64) error {
	if v.maxDocumentSize > 0 && size > v.maxDocumentSize {
		return fmt.Errorf("document exceeds maximum size of %d bytes", v.maxDocumentSize)
	}
	if size == 0 {
		return fmt.Errorf("document is empty")
	}

	if !v.validationEnabled {
		return nil
	}

	if filename != "" && !IsHistoryFilename(filename) {
		return fmt.Errorf("unsupported file extension %q: expected .html or .htm", strings.ToLower(filepath.Ext(filename)))
	}

	if contentType != "" {
		mediaType, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return fmt.Errorf("invalid content type %q: %w", contentType, err)
		}
		if !allowedContentTypes[mediaType] {
			return fmt.Errorf("unsupported content type %q", mediaType)
		}
	}

	return nil
}

// ParseYear validates a four-digit calendar year between 2005 and next year.
func ParseYear(s string) (int, error) {
	if !yearRegex.MatchString(s) {
		return 0, fmt.Errorf("invalid year format: %q", s)
	}

	year, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid year format: %q", s)
	}

	if year < firstHistoryYear || year > time.Now().Year()+1 {
		return 0, fmt.Errorf("year %d is out of range", year)
	}
	return year, nil
}

// IsHistoryFilename reports whether name looks like an HTML export.
func IsHistoryFilename(name string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(name))]
}
