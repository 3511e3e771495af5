package smb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hirochachacha/go-smb2"

	"storagekit/internal/scoped"
)

const filePerm = 0o644

// Resource is a file or folder on an SMB share. Access mounts the share
// through the owning client.
type Resource struct {
	client *Client
	loc    Location
	dir    bool
}

var _ scoped.Resource = (*Resource)(nil)

// Location returns the resource address without credentials.
func (r *Resource) Location() Location {
	loc := r.loc
	loc.User, loc.Password, loc.Domain = "", "", ""
	return loc
}

func (r *Resource) Name() string { return r.loc.Name() }

// Path is empty: share contents have no local path.
func (r *Resource) Path() string { return "" }

func (r *Resource) IsDir() bool { return r.dir }

func (r *Resource) StartAccessing() error { return r.client.acquire(r.loc) }

func (r *Resource) StopAccessing() { r.client.release(r.loc) }

// bookmarkBlob is the JSON carried in scoped bookmark tokens. The password
// is never stored; it comes from the keyring or a prompt on resolve.
type bookmarkBlob struct {
	Host   string `json:"host"`
	Share  string `json:"share"`
	Path   string `json:"path,omitempty"`
	Domain string `json:"domain,omitempty"`
	User   string `json:"user,omitempty"`
	Dir    bool   `json:"dir"`
}

func (r *Resource) BookmarkData() ([]byte, error) {
	if _, err := r.client.mounted(r.loc); err != nil {
		return nil, err
	}
	b := bookmarkBlob{Host: r.loc.Host, Share: r.loc.Share, Path: r.loc.Path, Dir: r.dir}
	if c, ok := r.client.creds.Cached(r.loc.Host, r.loc.Share); ok {
		b.Domain, b.User = c.Domain, c.Username
	}
	return json.Marshal(b)
}

func (r *Resource) Attributes() (scoped.Attributes, error) {
	m, err := r.client.mounted(r.loc)
	if err != nil {
		return scoped.Attributes{}, err
	}
	fi, err := m.Stat(r.loc.sharePath())
	if err != nil {
		return scoped.Attributes{}, osError(err)
	}
	attrs := scoped.Attributes{Size: -1, Modified: fi.ModTime()}
	if !fi.IsDir() {
		attrs.Size = fi.Size()
	}
	if st, ok := fi.(*smb2.FileStat); ok {
		attrs.Created = st.CreationTime
		attrs.Accessed = st.LastAccessTime
	}
	return attrs, nil
}

func (r *Resource) Open(flag int) (io.ReadWriteCloser, error) {
	m, err := r.client.mounted(r.loc)
	if err != nil {
		return nil, err
	}
	f, err := m.OpenFile(r.loc.sharePath(), flag, filePerm)
	if err != nil {
		return nil, osError(err)
	}
	return f, nil
}

func (r *Resource) List() ([]scoped.Resource, error) {
	m, err := r.client.mounted(r.loc)
	if err != nil {
		return nil, err
	}
	infos, err := m.ReadDir(r.loc.sharePath())
	if err != nil {
		return nil, osError(err)
	}
	out := make([]scoped.Resource, 0, len(infos))
	for _, fi := range infos {
		name := fi.Name()
		if name == "." || name == ".." {
			continue
		}
		out = append(out, &Resource{client: r.client, loc: r.loc.Child(name), dir: fi.IsDir()})
	}
	return out, nil
}

func (r *Resource) Parent() scoped.Resource {
	p, ok := r.loc.Parent()
	if !ok {
		return nil
	}
	return &Resource{client: r.client, loc: p, dir: true}
}

// Open resolves an smb:// URL to a resource. Credentials in the URL are
// cached for the share. The share is mounted briefly to learn the kind.
func (c *Client) Open(ctx context.Context, rawURL string) (*Resource, error) {
	loc, err := ParseURL(rawURL)
	if err != nil {
		return nil, err
	}
	if loc.User != "" || loc.Password != "" {
		c.creds.Seed(loc.Host, loc.Share, Credentials{Domain: loc.Domain, Username: loc.User, Password: loc.Password})
	}
	return c.stat(ctx, loc)
}

// Resolve implements scoped.Resolver for SMB bookmark data.
func (c *Client) Resolve(ctx context.Context, data []byte) (scoped.Resource, error) {
	var b bookmarkBlob
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("smb bookmark: %w", err)
	}
	if b.Host == "" || b.Share == "" {
		return nil, fmt.Errorf("smb bookmark: missing host or share")
	}
	c.creds.Hint(b.Host, b.Share, b.Domain, b.User)
	res, err := c.stat(ctx, Location{Host: b.Host, Share: b.Share, Path: cleanRel(b.Path)})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Client) stat(ctx context.Context, loc Location) (*Resource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r := &Resource{client: c, loc: loc}
	if err := r.StartAccessing(); err != nil {
		return nil, err
	}
	defer r.StopAccessing()
	m, err := c.mounted(loc)
	if err != nil {
		return nil, err
	}
	fi, err := m.Stat(loc.sharePath())
	if err != nil {
		return nil, osError(err)
	}
	r.dir = fi.IsDir()
	return r, nil
}
