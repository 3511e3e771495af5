package picker

import (
	"context"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/gabriel-vasile/mimetype"

	"storagekit/internal/storage"
)

// MatchesPattern reports whether name matches a glob pattern, case-insensitively.
// Patterns support doublestar syntax such as "*.{jpg,jpeg}".
func MatchesPattern(name, pattern string) (bool, error) {
	if pattern == "" || pattern == "*" || pattern == "*.*" {
		return true, nil
	}
	return doublestar.Match(strings.ToLower(pattern), strings.ToLower(name))
}

// MatchesMIME reports whether the MIME type mt satisfies pattern.
// "*/*" matches anything and "image/*" matches any image subtype.
func MatchesMIME(mt *mimetype.MIME, pattern string) bool {
	pattern = strings.ToLower(strings.TrimSpace(pattern))
	switch {
	case pattern == "" || pattern == "*/*" || pattern == "*":
		return true
	case mt == nil:
		return false
	case strings.HasSuffix(pattern, "/*"):
		prefix := strings.TrimSuffix(pattern, "*")
		for m := mt; m != nil; m = m.Parent() {
			if strings.HasPrefix(m.String(), prefix) {
				return true
			}
		}
		return false
	default:
		return mt.Is(pattern)
	}
}

// Accepts reports whether file passes any of the file types. An empty list
// accepts everything. Types with glob patterns are matched on the name;
// types that only carry MIME patterns need the content to be sniffed.
func Accepts(ctx context.Context, file storage.File, types []storage.FileType) bool {
	if len(types) == 0 {
		return true
	}
	var sniffed *mimetype.MIME
	sniffDone := false
	for _, t := range types {
		globs := t.Globs()
		if len(globs) > 0 {
			for _, g := range globs {
				if ok, err := MatchesPattern(file.Name(), g); err == nil && ok {
					return true
				}
			}
			continue
		}
		if len(t.MimeTypes) == 0 {
			continue
		}
		if !sniffDone {
			sniffed = detect(ctx, file)
			sniffDone = true
		}
		for _, m := range t.MimeTypes {
			if MatchesMIME(sniffed, m) {
				return true
			}
		}
	}
	return false
}

func detect(ctx context.Context, file storage.File) *mimetype.MIME {
	if p, ok := file.FullPath(); ok {
		if mt, err := mimetype.DetectFile(p); err == nil {
			return mt
		}
		return nil
	}
	if !file.CanOpenRead() {
		return nil
	}
	r, err := file.OpenRead(ctx)
	if err != nil {
		return nil
	}
	defer r.Close()
	mt, err := mimetype.DetectReader(r)
	if err != nil {
		return nil
	}
	return mt
}
