package smb

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubSecret is an in-memory secret.Store.
type stubSecret struct {
	d, u, p string
	found   bool
	sets    int
}

func (s *stubSecret) Get(host, share string) (string, string, string, bool, error) {
	return s.d, s.u, s.p, s.found, nil
}

func (s *stubSecret) Set(host, share, d, u, p string) error {
	s.sets++
	s.d, s.u, s.p, s.found = d, u, p, true
	return nil
}

func (s *stubSecret) Delete(host, share string) error {
	s.found = false
	return nil
}

// countingProv counts prompts.
type countingProv struct {
	calls int
	hint  Credentials
	ret   Credentials
	err   error
}

func (c *countingProv) Get(host, share, rel string, hint Credentials) (Credentials, error) {
	c.calls++
	c.hint = hint
	return c.ret, c.err
}

func TestCredentialsPrecedence_MemoryFirst(t *testing.T) {
	prov := &countingProv{ret: Credentials{Domain: "pd", Username: "pu", Password: "pp"}}
	src := NewCredentialSource(prov, &stubSecret{d: "kd", u: "ku", p: "kp", found: true}, nil)
	src.Seed("host", "share", Credentials{Domain: "md", Username: "mu", Password: "mp"})

	got := src.Lookup("host", "share", "")
	assert.Equal(t, Credentials{Domain: "md", Username: "mu", Password: "mp"}, got)
	assert.Zero(t, prov.calls)
}

func TestCredentialsPrecedence_KeyringSecond(t *testing.T) {
	prov := &countingProv{ret: Credentials{Domain: "pd", Username: "pu", Password: "pp"}}
	src := NewCredentialSource(prov, &stubSecret{d: "kd", u: "ku", p: "kp", found: true}, nil)

	got := src.Lookup("h", "s", "")
	assert.Equal(t, "ku", got.Username)
	assert.Equal(t, "kp", got.Password)
	assert.Equal(t, "kd", got.Domain)

	_, ok := src.Cached("H", "S")
	assert.True(t, ok, "keyring result is cached case-insensitively")
	assert.Zero(t, prov.calls)
}

func TestCredentialsPrecedence_ProviderLast(t *testing.T) {
	prov := &countingProv{ret: Credentials{Domain: "pd", Username: "pu", Password: "pp"}}
	src := NewCredentialSource(prov, &stubSecret{}, nil)

	got := src.Lookup("h2", "s2", "rel")
	assert.Equal(t, "pu", got.Username)
	assert.Equal(t, 1, prov.calls)

	src.Lookup("h2", "s2", "rel")
	assert.Equal(t, 1, prov.calls, "prompt result is cached")
}

func TestCredentials_PromptFailureIsAnonymous(t *testing.T) {
	prov := &countingProv{err: errors.New("cancelled")}
	src := NewCredentialSource(prov, nil, nil)
	assert.Equal(t, Credentials{}, src.Lookup("h", "s", ""))
	_, ok := src.Cached("h", "s")
	assert.False(t, ok)
}

func TestCredentials_ForgetAndPersist(t *testing.T) {
	store := &stubSecret{}
	src := NewCredentialSource(nil, store, nil)

	src.Persist("h", "s", Credentials{Username: "u", Password: "p"})
	assert.Zero(t, store.sets, "only credentials asking for persistence are saved")

	src.Persist("h", "s", Credentials{Username: "u", Password: "p", Persist: true})
	require.Equal(t, 1, store.sets)
	assert.Equal(t, "u", store.u)

	src.Seed("h", "s", Credentials{Username: "x"})
	src.Forget("h", "s")
	_, ok := src.Cached("h", "s")
	assert.False(t, ok)
}

func TestIsAuthError(t *testing.T) {
	assert.True(t, isAuthError(errors.New("response error: The attempted logon is invalid.")))
	assert.True(t, isAuthError(errors.New("Access is denied")))
	assert.False(t, isAuthError(errors.New("connection refused")))
	assert.False(t, isAuthError(nil))
}

func TestSplitAccount(t *testing.T) {
	tests := []struct {
		in, domain, user string
	}{
		{`CORP\alice`, "CORP", "alice"},
		{"CORP;alice", "CORP", "alice"},
		{" bob ", "", "bob"},
		{"", "", ""},
	}
	for _, tt := range tests {
		domain, user := SplitAccount(tt.in)
		assert.Equal(t, tt.domain, domain, tt.in)
		assert.Equal(t, tt.user, user, tt.in)
	}
}

func TestCredentialSource_HintPrefillsPrompt(t *testing.T) {
	prov := &countingProv{ret: Credentials{Username: "alice", Password: "pw"}}
	src := NewCredentialSource(prov, nil, nil)
	src.Hint("NAS", "Media", "corp", "alice")
	src.Hint("nas", "other", "corp", "")

	src.Lookup("nas", "media", "")
	assert.Equal(t, Credentials{Domain: "corp", Username: "alice"}, prov.hint)

	src.Lookup("nas", "other", "")
	assert.Equal(t, Credentials{}, prov.hint)
}
