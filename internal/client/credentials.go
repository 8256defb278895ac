package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// CredentialSource supplies the API key attached to authenticated calls.
// The executor only reads the credential; acquisition and storage live
// behind this interface.
type CredentialSource interface {
	Get(ctx context.Context) (string, error)
}

// StaticCredential is a fixed API key.
type StaticCredential string

func (s StaticCredential) Get(context.Context) (string, error) { return string(s), nil }

// KeyGenerator requests a fresh API key from the backend. *Client satisfies
// this with its unauthenticated GenerateKey operation.
type KeyGenerator interface {
	GenerateKey(ctx context.Context) (string, error)
}

// FileCredentialStore persists the API key in a local file and generates one
// on first use: read the file, and when it is absent ask the generator for a
// new key and save it. Safe for concurrent calls.
type FileCredentialStore struct {
	path string
	gen  KeyGenerator

	mu     sync.Mutex
	cached string
}

// NewFileCredentialStore creates a store backed by the file at path.
func NewFileCredentialStore(path string, gen KeyGenerator) *FileCredentialStore {
	return &FileCredentialStore{path: path, gen: gen}
}

// Get returns the stored key, generating and persisting one when absent.
func (f *FileCredentialStore) Get(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cached != "" {
		return f.cached, nil
	}

	data, err := os.ReadFile(f.path)
	if err == nil {
		if key := strings.TrimSpace(string(data)); key != "" {
			f.cached = key
			return key, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("read key file %s: %w", f.path, err)
	}

	if f.gen == nil {
		return "", fmt.Errorf("no API key at %s and no generator configured", f.path)
	}
	key, err := f.gen.GenerateKey(ctx)
	if err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return "", fmt.Errorf("ensure key dir: %w", err)
	}
	if err := os.WriteFile(f.path, []byte(key+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("save key file %s: %w", f.path, err)
	}

	f.cached = key
	return key, nil
}
