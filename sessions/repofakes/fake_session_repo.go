package fakesessionrepo

import (
	"context"
	"sync"

	"github.com/inventory-mgmt/invctl/sessions"
)

var _ sessions.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo keeps the session in memory. It also backs SESSION_STORE=memory.
type FakeSessionRepo struct {
	user    *sessions.SessionUser
	lock    sync.Mutex
	puts    int
	deletes int
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{}
}

func (sr *FakeSessionRepo) Get(_ context.Context) (sessions.SessionUser, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	if sr.user == nil {
		return sessions.Anonymous(), nil
	}
	return *sr.user, nil
}

func (sr *FakeSessionRepo) Put(_ context.Context, user sessions.SessionUser) error {
	if err := user.Validate(); err != nil {
		return err
	}
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.user = &user
	sr.puts++
	return nil
}

func (sr *FakeSessionRepo) Update(_ context.Context, fn func(*sessions.SessionUser) error) (sessions.SessionUser, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	current := sessions.Anonymous()
	if sr.user != nil {
		current = *sr.user
	}
	if err := fn(&current); err != nil {
		return sessions.Anonymous(), err
	}
	if err := current.Validate(); err != nil {
		return sessions.Anonymous(), err
	}
	sr.user = &current
	sr.puts++
	return current, nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	sr.user = nil
	sr.deletes++
	return nil
}

// Stored reports whether a record is present.
func (sr *FakeSessionRepo) Stored() bool {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	return sr.user != nil
}

// Writes returns the number of Put/Update writes and Delete calls.
func (sr *FakeSessionRepo) Writes() (puts, deletes int) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	return sr.puts, sr.deletes
}
