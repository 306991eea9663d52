// Package filerepo persists the session record as a JSON file, optionally
// sealed with a passphrase.
package filerepo

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/inventory-mgmt/invctl/sessions"
	"github.com/pkg/errors"
)

var _ sessions.Repo = (*Repo)(nil)

type Repo struct {
	path       string
	passphrase string
	mu         sync.Mutex
}

type Option func(*Repo)

// WithPassphrase seals the file at rest with a key derived from passphrase.
func WithPassphrase(passphrase string) Option {
	return func(r *Repo) {
		r.passphrase = passphrase
	}
}

// New returns a repo storing the session at path. The parent directory is
// created on first write.
func New(path string, options ...Option) *Repo {
	r := &Repo{path: path}
	for _, opt := range options {
		opt(r)
	}
	return r
}

func (r *Repo) Path() string {
	return r.path
}

func (r *Repo) Get(_ context.Context) (sessions.SessionUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.read()
}

func (r *Repo) Put(_ context.Context, user sessions.SessionUser) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.write(user)
}

func (r *Repo) Update(_ context.Context, fn func(*sessions.SessionUser) error) (sessions.SessionUser, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read()
	if err != nil {
		return sessions.Anonymous(), err
	}
	if err := fn(&current); err != nil {
		return sessions.Anonymous(), err
	}
	if err := r.write(current); err != nil {
		return sessions.Anonymous(), err
	}
	return current, nil
}

func (r *Repo) Delete(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.path); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "[filerepo.Delete] remove")
	}
	return nil
}

func (r *Repo) read() (sessions.SessionUser, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return sessions.Anonymous(), nil
	}
	if err != nil {
		return sessions.Anonymous(), errors.Wrap(err, "[filerepo.read] read")
	}
	if isSealed(data) {
		if data, err = open(data, r.passphrase); err != nil {
			return sessions.Anonymous(), err
		}
	}
	return sessions.Unmarshal(data)
}

func (r *Repo) write(user sessions.SessionUser) error {
	data, err := sessions.Marshal(user)
	if err != nil {
		return err
	}
	if r.passphrase != "" {
		if data, err = seal(data, r.passphrase); err != nil {
			return err
		}
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrap(err, "[filerepo.write] mkdir")
	}
	tmp, err := os.CreateTemp(dir, "."+sessions.StorageKey+"-*")
	if err != nil {
		return errors.Wrap(err, "[filerepo.write] create temp")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filerepo.write] write")
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return errors.Wrap(err, "[filerepo.write] chmod")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "[filerepo.write] close")
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return errors.Wrap(err, "[filerepo.write] rename")
	}
	return nil
}
