package fakeapi

import (
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// userStore keeps bcrypt hashes of the accounts the fake API accepts.
type userStore struct {
	lock   sync.RWMutex
	hashes map[string]string
}

func newUserStore() *userStore {
	return &userStore{hashes: make(map[string]string)}
}

func (us *userStore) upsert(username, password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	us.lock.Lock()
	defer us.lock.Unlock()
	us.hashes[username] = hash
	return nil
}

func (us *userStore) check(username, password string) bool {
	us.lock.RLock()
	hash, ok := us.hashes[username]
	us.lock.RUnlock()
	if !ok {
		return false
	}
	return checkPasswordHash(password, hash)
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return string(bytes), err
}

func checkPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
