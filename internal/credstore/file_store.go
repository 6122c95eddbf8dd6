package credstore

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrSealed     = errors.New("credential file is sealed")
	ErrOpenFailed = errors.New("credential file could not be opened")
)

const (
	saltSize  = 16
	nonceSize = 24
)

// FileStore guarda las claves en un archivo JSON. Con passphrase el contenido
// se sella con secretbox usando una clave derivada por scrypt.
type FileStore struct {
	mu         sync.Mutex
	path       string
	passphrase []byte
	salt       []byte
	key        *[32]byte
}

type fileContents struct {
	Items map[string]string `json:"items,omitempty"`
	Salt  []byte            `json:"salt,omitempty"`
	Nonce []byte            `json:"nonce,omitempty"`
	Box   []byte            `json:"box,omitempty"`
}

// NewFileStore crea un FileStore en path. passphrase vacío deja el archivo en claro.
func NewFileStore(path, passphrase string) *FileStore {
	s := &FileStore{path: path}
	if passphrase != "" {
		s.passphrase = []byte(passphrase)
	}
	return s
}

func (s *FileStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := items[key]
	return v, ok, nil
}

func (s *FileStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	items[key] = value
	return s.save(items)
}

func (s *FileStore) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	items, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := items[k]; ok {
			delete(items, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(items)
}

func (s *FileStore) load() (map[string]string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	if len(raw) == 0 {
		return make(map[string]string), nil
	}

	var fc fileContents
	if err := json.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	if fc.Box == nil {
		if fc.Items == nil {
			fc.Items = make(map[string]string)
		}
		return fc.Items, nil
	}
	if s.passphrase == nil {
		return nil, ErrSealed
	}
	if len(fc.Nonce) != nonceSize {
		return nil, ErrOpenFailed
	}

	key, err := s.deriveKey(fc.Salt)
	if err != nil {
		return nil, err
	}
	var nonce [nonceSize]byte
	copy(nonce[:], fc.Nonce)
	plain, ok := secretbox.Open(nil, fc.Box, &nonce, key)
	if !ok {
		return nil, ErrOpenFailed
	}
	items := make(map[string]string)
	if err := json.Unmarshal(plain, &items); err != nil {
		return nil, fmt.Errorf("decode sealed credentials: %w", err)
	}
	return items, nil
}

func (s *FileStore) save(items map[string]string) error {
	var fc fileContents
	if s.passphrase == nil {
		fc.Items = items
	} else {
		plain, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encode credentials: %w", err)
		}
		if s.salt == nil {
			salt := make([]byte, saltSize)
			if _, err := io.ReadFull(rand.Reader, salt); err != nil {
				return fmt.Errorf("generate salt: %w", err)
			}
			s.salt = salt
		}
		key, err := s.deriveKey(s.salt)
		if err != nil {
			return err
		}
		var nonce [nonceSize]byte
		if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
			return fmt.Errorf("generate nonce: %w", err)
		}
		fc.Salt = s.salt
		fc.Nonce = nonce[:]
		fc.Box = secretbox.Seal(nil, plain, &nonce, key)
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create credential dir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write credential file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	return nil
}

// deriveKey reutiliza la clave mientras la sal no cambie.
func (s *FileStore) deriveKey(salt []byte) (*[32]byte, error) {
	if s.key != nil && string(salt) == string(s.salt) {
		return s.key, nil
	}
	derived, err := scrypt.Key(s.passphrase, salt, 1<<15, 8, 1, 32)
	if err != nil {
		return nil, fmt.Errorf("derive credential key: %w", err)
	}
	var key [32]byte
	copy(key[:], derived)
	s.salt = append([]byte(nil), salt...)
	s.key = &key
	return s.key, nil
}
