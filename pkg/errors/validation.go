package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// nodeNameRegex matches names a host accepts for a node: a letter or
// underscore followed by word characters. Namespaces (`ns:node`) and DAG
// paths (`|grp|node`) are accepted as separators.
var nodeNameRegex = regexp.MustCompile(`^[|:]?[A-Za-z_][\w]*([|:][A-Za-z_][\w]*)*$`)

// ValidateNodeName validates the name of a host node.
//
// The validation rules:
//   - No empty names
//   - No control characters
//   - Maximum length of 256 characters
//   - Only word characters plus `|` and `:` separators
func ValidateNodeName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidInput, "node name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidInput, "node name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "node name contains invalid control characters")
		}
	}

	if !nodeNameRegex.MatchString(name) {
		return New(ErrCodeInvalidInput, "invalid node name: %q", name)
	}

	return nil
}

// attrPathRegex matches an attribute path: dot separated segments, each an
// identifier with an optional `[index]` suffix.
var attrPathRegex = regexp.MustCompile(`^[A-Za-z_]\w*(\[\d+\])?(\.[A-Za-z_]\w*(\[\d+\])?)*$`)

// ValidateAttributeName validates an attribute path such as `translateX`,
// `t` or `input3D[0].input3Dx`.
func ValidateAttributeName(attr string) error {
	if attr == "" {
		return New(ErrCodeInvalidAttribute, "attribute name cannot be empty")
	}

	if !attrPathRegex.MatchString(attr) {
		return New(ErrCodeInvalidAttribute, "invalid attribute name: %q", attr)
	}

	return nil
}

// operationNameRegex matches snake_case operation names.
var operationNameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// ValidateOperationName validates the name of an operator table entry.
func ValidateOperationName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidOperator, "operation name cannot be empty")
	}

	if !operationNameRegex.MatchString(name) {
		return New(ErrCodeInvalidOperator, "invalid operation name: %q (want snake_case)", name)
	}

	return nil
}

// ValidatePath validates a user supplied file path for safety.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidInput, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidInput, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "path contains invalid characters")
		}
	}

	return nil
}

// ValidateCacheURL validates the URL of a remote cache.
// Only redis schemes are supported.
func ValidateCacheURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "cache URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "redis://") && !strings.HasPrefix(rawURL, "rediss://") {
		return New(ErrCodeInvalidInput, "cache URL must use redis or rediss scheme")
	}

	return nil
}
