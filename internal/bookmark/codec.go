// Package bookmark encodes and persists the opaque tokens returned by
// storage.Item.SaveBookmark.
//
// Two token forms exist. Path tokens are the absolute local path in UTF-8 and
// are used by the direct-filesystem, portal and native-callback providers.
// Scoped tokens are the standard base64 encoding of a platform-issued blob.
// Tokens are not portable across provider families.
package bookmark

import (
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// EncodePath returns the path token for p. Relative paths are made absolute.
func EncodePath(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("bookmark: empty path")
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("bookmark: absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// DecodePath validates a path token and returns the cleaned path.
func DecodePath(token string) (string, error) {
	if token == "" {
		return "", fmt.Errorf("bookmark: empty token")
	}
	if !utf8.ValidString(token) || strings.ContainsRune(token, 0) {
		return "", fmt.Errorf("bookmark: token is not a valid path")
	}
	if !filepath.IsAbs(token) {
		return "", fmt.Errorf("bookmark: token %q is not an absolute path", token)
	}
	return filepath.Clean(token), nil
}

// EncodeScoped returns the scoped token for a platform bookmark blob.
func EncodeScoped(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("bookmark: empty bookmark data")
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// DecodeScoped returns the platform blob carried by a scoped token.
func DecodeScoped(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("bookmark: empty token")
	}
	data, err := base64.StdEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("bookmark: malformed scoped token: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("bookmark: empty bookmark data")
	}
	return data, nil
}
