package smb

import (
	"fmt"
	"path"
	"strings"
)

// Location addresses a path inside an SMB share. Path is slash-separated
// and relative to the share root; "" is the root.
type Location struct {
	Host  string
	Share string
	Path  string

	// Credentials embedded in the URL, if any.
	User     string
	Password string
	Domain   string
}

// IsURL reports whether s looks like an SMB location.
func IsURL(s string) bool {
	s = strings.TrimSpace(s)
	return strings.HasPrefix(strings.ToLower(s), "smb://") || strings.HasPrefix(s, "//")
}

// ParseURL parses smb://[domain;user[:pass]@]host/share/path and the
// //host/share/path shorthand. A domain may also be given as domain\user.
func ParseURL(u string) (Location, error) {
	s := strings.TrimSpace(u)
	if strings.HasPrefix(s, "//") {
		s = "smb:" + s
	}
	if !strings.HasPrefix(strings.ToLower(s), "smb://") {
		return Location{}, fmt.Errorf("not an smb url: %q", u)
	}
	t := s[len("smb://"):]

	var loc Location
	if at := strings.LastIndex(t, "@"); at >= 0 {
		cred := t[:at]
		t = t[at+1:]
		if colon := strings.Index(cred, ":"); colon >= 0 {
			loc.Password = cred[colon+1:]
			cred = cred[:colon]
		}
		loc.Domain, loc.User = SplitAccount(cred)
	}

	t = strings.ReplaceAll(t, "\\", "/")
	parts := strings.SplitN(t, "/", 3)
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return Location{}, fmt.Errorf("smb url needs host and share: %q", u)
	}
	loc.Host = parts[0]
	loc.Share = parts[1]
	if len(parts) == 3 {
		loc.Path = cleanRel(parts[2])
	}
	return loc, nil
}

// String renders the location without credentials.
func (l Location) String() string {
	s := "smb://" + l.Host + "/" + l.Share
	if l.Path != "" {
		s += "/" + l.Path
	}
	return s
}

// Name is the last path element, or the share name at the root.
func (l Location) Name() string {
	if l.Path == "" {
		return l.Share
	}
	return path.Base(l.Path)
}

// Parent returns the containing location and false at the share root.
func (l Location) Parent() (Location, bool) {
	if l.Path == "" {
		return Location{}, false
	}
	p := l
	p.Path = cleanRel(path.Dir(l.Path))
	return p, true
}

// Child returns the location of name inside l.
func (l Location) Child(name string) Location {
	c := l
	c.Path = cleanRel(path.Join(l.Path, name))
	return c
}

// sharePath is the path handed to the share. The share root is ".".
func (l Location) sharePath() string {
	if l.Path == "" {
		return "."
	}
	return l.Path
}

func cleanRel(p string) string {
	p = path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))
	return strings.TrimPrefix(p, "/")
}
