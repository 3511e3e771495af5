package storage

import "strings"

// FileType is a named group of file types used by picker filters.
// Only Name is required; a provider uses whichever lists it understands.
type FileType struct {
	Name string
	// Patterns holds extensions in glob form ("*.txt") or bare form ("txt").
	Patterns []string
	// MimeTypes holds MIME patterns such as "image/*".
	MimeTypes []string
	// AppleUniformTypeIdentifiers holds UTIs such as "public.plain-text".
	AppleUniformTypeIdentifiers []string
}

// Well-known file types.
var (
	FileTypeAll = FileType{
		Name:      "All",
		Patterns:  []string{"*"},
		MimeTypes: []string{"*/*"},
	}
	FileTypeTextPlain = FileType{
		Name:                        "Plain Text",
		Patterns:                    []string{"*.txt"},
		AppleUniformTypeIdentifiers: []string{"public.plain-text"},
		MimeTypes:                   []string{"text/plain"},
	}
	FileTypeImageAll = FileType{
		Name:                        "All Images",
		Patterns:                    []string{"*.png", "*.jpg", "*.jpeg", "*.gif", "*.bmp"},
		AppleUniformTypeIdentifiers: []string{"public.image"},
		MimeTypes:                   []string{"image/*"},
	}
	FileTypeImageJpg = FileType{
		Name:                        "JPEG image",
		Patterns:                    []string{"*.jpg", "*.jpeg"},
		AppleUniformTypeIdentifiers: []string{"public.jpeg"},
		MimeTypes:                   []string{"image/jpeg"},
	}
	FileTypeImagePng = FileType{
		Name:                        "PNG image",
		Patterns:                    []string{"*.png"},
		AppleUniformTypeIdentifiers: []string{"public.png"},
		MimeTypes:                   []string{"image/png"},
	}
	FileTypePdf = FileType{
		Name:                        "PDF document",
		Patterns:                    []string{"*.pdf"},
		AppleUniformTypeIdentifiers: []string{"com.adobe.pdf"},
		MimeTypes:                   []string{"application/pdf"},
	}
)

// Extensions returns the patterns of t as bare extensions ("*.txt" -> "txt").
// The catch-all pattern "*" is returned as "*".
func (t FileType) Extensions() []string {
	out := make([]string, 0, len(t.Patterns))
	for _, p := range t.Patterns {
		if e := bareExtension(p); e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Globs returns the patterns of t in glob form ("txt" -> "*.txt").
func (t FileType) Globs() []string {
	out := make([]string, 0, len(t.Patterns))
	for _, p := range t.Patterns {
		p = strings.TrimSpace(p)
		switch {
		case p == "":
			continue
		case strings.ContainsAny(p, "*?["):
			out = append(out, p)
		default:
			out = append(out, "*."+strings.TrimPrefix(p, "."))
		}
	}
	return out
}

// JoinExtensions flattens the extensions of all types into one delimited string.
func JoinExtensions(types []FileType, sep string) string {
	var exts []string
	for _, t := range types {
		exts = append(exts, t.Extensions()...)
	}
	return strings.Join(exts, sep)
}

func bareExtension(p string) string {
	p = strings.TrimSpace(p)
	if p == "*" || p == "*.*" {
		return "*"
	}
	p = strings.TrimPrefix(p, "*")
	p = strings.TrimPrefix(p, ".")
	return p
}
