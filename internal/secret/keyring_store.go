package secret

import (
	"errors"
	"fmt"
	"strings"

	"github.com/99designs/keyring"
)

// DefaultService is the keyring service used for SMB credentials.
const DefaultService = "storagekit.smb"

type keyringStore struct {
	ring    keyring.Keyring
	service string
}

// NewKeyringStore tries to open the OS keyring via 99designs/keyring.
// If it fails, returns an error so callers can run without a store.
func NewKeyringStore(service string) (Store, error) {
	if service == "" {
		service = DefaultService
	}
	r, err := keyring.Open(keyring.Config{ServiceName: service})
	if err != nil {
		return nil, err
	}
	return &keyringStore{ring: r, service: service}, nil
}

// NewKeyringStoreWith wraps an already opened keyring.
func NewKeyringStoreWith(r keyring.Keyring, service string) Store {
	if service == "" {
		service = DefaultService
	}
	return &keyringStore{ring: r, service: service}
}

func makeKey(host, share string) string {
	return fmt.Sprintf("%s|%s", strings.ToLower(host), strings.ToLower(share))
}

func (s *keyringStore) Get(host, share string) (domain, user, pass string, found bool, err error) {
	item, err := s.ring.Get(makeKey(host, share))
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", "", "", false, nil
		}
		return "", "", "", false, err
	}
	// Description holds "domain\user" or "user"; Data holds the password.
	if desc := item.Description; desc != "" {
		if i := strings.IndexAny(desc, `\;`); i >= 0 {
			domain = desc[:i]
			user = desc[i+1:]
		} else {
			user = desc
		}
	}
	return domain, user, string(item.Data), true, nil
}

func (s *keyringStore) Set(host, share, domain, user, pass string) error {
	desc := user
	if domain != "" {
		desc = domain + `\` + user
	}
	return s.ring.Set(keyring.Item{
		Key:         makeKey(host, share),
		Data:        []byte(pass),
		Description: desc,
		Label:       s.service,
	})
}

func (s *keyringStore) Delete(host, share string) error {
	err := s.ring.Remove(makeKey(host, share))
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil
	}
	return err
}
