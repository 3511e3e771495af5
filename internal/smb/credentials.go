package smb

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"storagekit/internal/logging"
	"storagekit/internal/secret"
)

// Credentials are SMB authentication parameters.
type Credentials struct {
	Domain   string
	Username string
	Password string
	// Persist asks for the credentials to be saved to the keyring after a
	// successful mount.
	Persist bool
}

func (c Credentials) empty() bool {
	return c.Username == "" && c.Password == "" && c.Domain == ""
}

// SplitAccount splits "domain\user" or "domain;user" into its parts.
func SplitAccount(account string) (domain, user string) {
	account = strings.TrimSpace(account)
	if i := strings.IndexAny(account, `\;`); i >= 0 {
		return account[:i], account[i+1:]
	}
	return "", account
}

// CredentialsProvider supplies credentials, typically by asking the user.
// hint carries the account last used for the share (domain and user, never
// a password) and may be empty.
type CredentialsProvider interface {
	Get(host, share, relPath string, hint Credentials) (Credentials, error)
}

// CredentialSource looks credentials up in order: the in-memory cache,
// the keyring store, then the provider. Results from the keyring and the
// provider are cached for the session.
type CredentialSource struct {
	prompt CredentialsProvider
	store  secret.Store
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]Credentials
	hints map[string]Credentials
}

// NewCredentialSource creates a source. prompt and store may be nil.
func NewCredentialSource(prompt CredentialsProvider, store secret.Store, logger *zap.Logger) *CredentialSource {
	return &CredentialSource{
		prompt: prompt,
		store:  store,
		logger: logging.OrNop(logger),
		cache:  make(map[string]Credentials),
		hints:  make(map[string]Credentials),
	}
}

func cacheKey(host, share string) string {
	return strings.ToLower(host) + "\x00" + strings.ToLower(share)
}

// Lookup returns the credentials for host/share. Empty credentials mean
// an anonymous or guest login.
func (s *CredentialSource) Lookup(host, share, rel string) Credentials {
	if c, ok := s.Cached(host, share); ok {
		return c
	}
	if s.store != nil {
		d, u, p, found, err := s.store.Get(host, share)
		if err != nil {
			s.logger.Debug("keyring lookup failed", zap.String("host", host), zap.String("share", share), zap.Error(err))
		}
		if found {
			c := Credentials{Domain: d, Username: u, Password: p}
			s.Seed(host, share, c)
			return c
		}
	}
	if s.prompt == nil {
		return Credentials{}
	}
	c, err := s.prompt.Get(host, share, rel, s.hint(host, share))
	if err != nil {
		s.logger.Info("credentials prompt failed", zap.String("host", host), zap.Error(err))
		return Credentials{}
	}
	if !c.empty() {
		s.Seed(host, share, c)
	}
	return c
}

// Cached returns credentials from memory only.
func (s *CredentialSource) Cached(host, share string) (Credentials, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cache[cacheKey(host, share)]
	if !ok || c.empty() {
		return Credentials{}, false
	}
	return c, true
}

// Seed stores credentials in memory, e.g. from a URL.
func (s *CredentialSource) Seed(host, share string, c Credentials) {
	s.mu.Lock()
	s.cache[cacheKey(host, share)] = c
	s.mu.Unlock()
}

// Hint remembers the account a share was last used with, e.g. from a
// bookmark. The password is dropped; hints only prefill the prompt.
func (s *CredentialSource) Hint(host, share, domain, user string) {
	if user == "" {
		return
	}
	s.mu.Lock()
	s.hints[cacheKey(host, share)] = Credentials{Domain: domain, Username: user}
	s.mu.Unlock()
}

func (s *CredentialSource) hint(host, share string) Credentials {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.hints[cacheKey(host, share)]
}

// Forget drops cached credentials, e.g. after an authentication failure.
func (s *CredentialSource) Forget(host, share string) {
	s.mu.Lock()
	delete(s.cache, cacheKey(host, share))
	s.mu.Unlock()
}

// Persist saves c to the keyring when it asked for that.
func (s *CredentialSource) Persist(host, share string, c Credentials) {
	if !c.Persist || s.store == nil {
		return
	}
	if err := s.store.Set(host, share, c.Domain, c.Username, c.Password); err != nil {
		s.logger.Warn("saving credentials to keyring failed", zap.String("host", host), zap.Error(err))
	}
}

func isAuthError(err error) bool {
	if err == nil {
		return false
	}
	e := strings.ToLower(err.Error())
	return strings.Contains(e, "logon is invalid") ||
		strings.Contains(e, "bad username") ||
		strings.Contains(e, "authentication") ||
		strings.Contains(e, "status_logon_failure") ||
		strings.Contains(e, "access is denied")
}
