package oauth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/99designs/keyring"
	"golang.org/x/oauth2"

	"github.com/wesm/outlook-mcp/internal/fileutil"
)

// ErrNoToken is returned by a TokenStore that holds no token.
var ErrNoToken = errors.New("no stored token")

// TokenStore persists the signed-in user's token.
type TokenStore interface {
	Load() (*oauth2.Token, error)
	Save(token *oauth2.Token, scopes []string) error
	Delete() error
}

// tokenFile wraps an OAuth2 token with the scopes it was authorized with.
// ExpiresAt (unix milliseconds) is written alongside expiry so token files
// from older releases, which only carried expires_at, still load.
type tokenFile struct {
	oauth2.Token
	ExpiresAt int64    `json:"expires_at,omitempty"`
	Scopes    []string `json:"scopes,omitempty"`
}

func encodeToken(token *oauth2.Token, scopes []string) ([]byte, error) {
	tf := tokenFile{Token: *token, Scopes: scopes}
	if !token.Expiry.IsZero() {
		tf.ExpiresAt = token.Expiry.UnixMilli()
	}
	return json.MarshalIndent(tf, "", "  ")
}

func decodeToken(data []byte) (*oauth2.Token, error) {
	var tf tokenFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	if tf.AccessToken == "" {
		return nil, ErrNoToken
	}
	if tf.Expiry.IsZero() && tf.ExpiresAt > 0 {
		tf.Expiry = time.UnixMilli(tf.ExpiresAt)
	}
	return &tf.Token, nil
}

// FileStore keeps the token in a JSON file readable only by the owner.
type FileStore struct {
	Path string
}

// Load implements TokenStore.
func (s *FileStore) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoToken
		}
		return nil, err
	}
	return decodeToken(data)
}

// Save implements TokenStore. The file is replaced atomically and is
// readable only by the current user.
func (s *FileStore) Save(token *oauth2.Token, scopes []string) error {
	data, err := encodeToken(token, scopes)
	if err != nil {
		return err
	}
	if err := fileutil.WritePrivate(s.Path, data); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	return nil
}

// Delete implements TokenStore. A missing file is not an error.
func (s *FileStore) Delete() error {
	err := os.Remove(s.Path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

const (
	keyringService = "outlook-mcp"
	keyringKey     = "tokens"
)

// KeyringStore keeps the token in the OS credential store.
type KeyringStore struct {
	ring keyring.Keyring
}

// NewKeyringStore wraps an open keyring.
func NewKeyringStore(ring keyring.Keyring) *KeyringStore {
	return &KeyringStore{ring: ring}
}

// OpenKeyringStore opens the platform keyring. dir holds the encrypted
// file backend used when no system keychain is available.
func OpenKeyringStore(dir string) (*KeyringStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: keyringService,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt(keyringService + "-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewKeyringStore(ring), nil
}

// Load implements TokenStore.
func (s *KeyringStore) Load() (*oauth2.Token, error) {
	item, err := s.ring.Get(keyringKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return nil, ErrNoToken
		}
		return nil, fmt.Errorf("getting token from keyring: %w", err)
	}
	return decodeToken(item.Data)
}

// Save implements TokenStore.
func (s *KeyringStore) Save(token *oauth2.Token, scopes []string) error {
	data, err := encodeToken(token, scopes)
	if err != nil {
		return err
	}
	err = s.ring.Set(keyring.Item{
		Key:         keyringKey,
		Data:        data,
		Label:       "Outlook MCP token",
		Description: "Microsoft Graph OAuth token",
	})
	if err != nil {
		return fmt.Errorf("setting token in keyring: %w", err)
	}
	return nil
}

// Delete implements TokenStore.
func (s *KeyringStore) Delete() error {
	err := s.ring.Remove(keyringKey)
	if err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return fmt.Errorf("deleting token from keyring: %w", err)
	}
	return nil
}

var (
	_ TokenStore = (*FileStore)(nil)
	_ TokenStore = (*KeyringStore)(nil)
)
