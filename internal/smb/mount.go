package smb

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"sync"
	"time"

	"github.com/hirochachacha/go-smb2"
	"go.uber.org/zap"

	"storagekit/internal/logging"
	"storagekit/internal/scoped"
)

const (
	smbPort     = "445"
	dialTimeout = 5 * time.Second
)

// Mount is a mounted share. Paths are slash-separated and relative to the
// share root; "." is the root.
type Mount interface {
	Stat(name string) (os.FileInfo, error)
	ReadDir(name string) ([]os.FileInfo, error)
	OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error)
	Unmount() error
}

// Mounter connects to a share.
type Mounter interface {
	Mount(ctx context.Context, host, share string, creds Credentials) (Mount, error)
}

// DialMounter mounts shares over TCP with NTLM authentication.
type DialMounter struct {
	Timeout time.Duration
}

func (d DialMounter) Mount(ctx context.Context, host, shareName string, creds Credentials) (Mount, error) {
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}
	nd := net.Dialer{Timeout: timeout}
	conn, err := nd.DialContext(ctx, "tcp", net.JoinHostPort(host, smbPort))
	if err != nil {
		return nil, err
	}
	dialer := &smb2.Dialer{
		Initiator: &smb2.NTLMInitiator{
			User:     creds.Username,
			Password: creds.Password,
			Domain:   creds.Domain,
		},
	}
	sess, err := dialer.Dial(conn)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	share, err := sess.Mount(shareName)
	if err != nil {
		_ = sess.Logoff()
		_ = conn.Close()
		return nil, err
	}
	return &smbMount{conn: conn, sess: sess, share: share}, nil
}

type smbMount struct {
	conn  net.Conn
	sess  *smb2.Session
	share *smb2.Share
}

func (m *smbMount) Stat(name string) (os.FileInfo, error) { return m.share.Stat(name) }

func (m *smbMount) ReadDir(name string) ([]os.FileInfo, error) {
	if name == "." {
		name = ""
	}
	return m.share.ReadDir(name)
}

func (m *smbMount) OpenFile(name string, flag int, perm os.FileMode) (io.ReadWriteCloser, error) {
	f, err := m.share.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (m *smbMount) Unmount() error {
	err := m.share.Umount()
	_ = m.sess.Logoff()
	_ = m.conn.Close()
	return err
}

type mountRef struct {
	m    Mount
	refs int
}

// pendingMount is a mount in progress. Acquirers of the same share wait on
// done instead of dialing again.
type pendingMount struct {
	done chan struct{}
	err  error
}

// Client shares mounts between resources on the same share. A share is
// mounted on the first StartAccessing and unmounted when the last holder
// stops accessing it.
type Client struct {
	mounter Mounter
	creds   *CredentialSource
	logger  *zap.Logger

	mu      sync.Mutex
	mounts  map[string]*mountRef
	pending map[string]*pendingMount
}

var _ scoped.Resolver = (*Client)(nil)

// NewClient creates a client that dials real SMB servers.
func NewClient(creds *CredentialSource, logger *zap.Logger) *Client {
	return NewClientWith(DialMounter{}, creds, logger)
}

// NewClientWith creates a client with a custom mounter.
func NewClientWith(m Mounter, creds *CredentialSource, logger *zap.Logger) *Client {
	logger = logging.OrNop(logger)
	if creds == nil {
		creds = NewCredentialSource(nil, nil, logger)
	}
	return &Client{
		mounter: m,
		creds:   creds,
		logger:  logger,
		mounts:  make(map[string]*mountRef),
		pending: make(map[string]*pendingMount),
	}
}

// acquire mounts the share if needed and takes a reference. The
// credential prompt and the dial run without c.mu held, so releases of
// other shares never wait on them.
func (c *Client) acquire(loc Location) error {
	key := cacheKey(loc.Host, loc.Share)
	for {
		c.mu.Lock()
		if ref, ok := c.mounts[key]; ok {
			ref.refs++
			c.mu.Unlock()
			return nil
		}
		if p, ok := c.pending[key]; ok {
			c.mu.Unlock()
			<-p.done
			if p.err != nil {
				return p.err
			}
			// Mounted; take a reference, or mount again if it was
			// already released.
			continue
		}
		p := &pendingMount{done: make(chan struct{})}
		c.pending[key] = p
		c.mu.Unlock()

		m, err := c.mount(loc)

		c.mu.Lock()
		delete(c.pending, key)
		if err == nil {
			c.mounts[key] = &mountRef{m: m, refs: 1}
		}
		p.err = err
		c.mu.Unlock()
		close(p.done)
		return err
	}
}

func (c *Client) mount(loc Location) (Mount, error) {
	creds := c.creds.Lookup(loc.Host, loc.Share, loc.Path)
	m, err := c.mounter.Mount(context.Background(), loc.Host, loc.Share, creds)
	if err != nil {
		if isAuthError(err) {
			c.creds.Forget(loc.Host, loc.Share)
		}
		c.logger.Warn("smb mount failed",
			zap.String("host", loc.Host),
			zap.String("share", loc.Share),
			zap.Error(err))
		return nil, osError(err)
	}
	c.creds.Persist(loc.Host, loc.Share, creds)
	c.logger.Debug("smb share mounted", zap.String("host", loc.Host), zap.String("share", loc.Share))
	return m, nil
}

// release drops a reference and unmounts at zero.
func (c *Client) release(loc Location) {
	key := cacheKey(loc.Host, loc.Share)
	c.mu.Lock()
	ref, ok := c.mounts[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	ref.refs--
	if ref.refs > 0 {
		c.mu.Unlock()
		return
	}
	delete(c.mounts, key)
	c.mu.Unlock()

	if err := ref.m.Unmount(); err != nil {
		c.logger.Debug("smb unmount failed", zap.String("host", loc.Host), zap.Error(err))
	}
}

// mounted returns the active mount for loc.
func (c *Client) mounted(loc Location) (Mount, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ref, ok := c.mounts[cacheKey(loc.Host, loc.Share)]
	if !ok {
		return nil, errNotMounted
	}
	return ref.m, nil
}

// Mounted reports how many shares are currently mounted.
func (c *Client) Mounted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.mounts)
}

// Close unmounts every share regardless of outstanding references.
func (c *Client) Close() error {
	c.mu.Lock()
	mounts := c.mounts
	c.mounts = make(map[string]*mountRef)
	c.mu.Unlock()

	var errs []error
	for _, ref := range mounts {
		if err := ref.m.Unmount(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var errNotMounted = &scoped.OSError{Code: -1, Reason: "share is not mounted"}

// osError attaches the NTSTATUS code of an SMB response error.
func osError(err error) error {
	if err == nil {
		return nil
	}
	var re *smb2.ResponseError
	if errors.As(err, &re) {
		return &scoped.OSError{Code: int(re.Code), Reason: err.Error()}
	}
	return err
}
