package application

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/bnema/offline-session-cli/internal/domain"
	"github.com/stretchr/testify/mock"
)

// memoryStore is an in-memory SecretStore/PreferenceStore with injectable
// failures.
type memoryStore struct {
	mu        sync.Mutex
	values    map[string]string
	notFound  error
	setErrs   map[string]error
	getErr    error
	removeErr error
}

func newSecretMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, notFound: domain.ErrSecretNotFound, setErrs: map[string]error{}}
}

func newPrefMemoryStore() *memoryStore {
	return &memoryStore{values: map[string]string{}, notFound: domain.ErrPreferenceNotFound, setErrs: map[string]error{}}
}

func (s *memoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.getErr != nil {
		return "", s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return "", fmt.Errorf("%s: %w", key, s.notFound)
	}
	return value, nil
}

func (s *memoryStore) Set(ctx context.Context, key string, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.setErrs[key]; err != nil {
		return err
	}
	s.values[key] = value
	return nil
}

func (s *memoryStore) Remove(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.values, key)
	return nil
}

func (s *memoryStore) snapshot() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]string, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

func fakeJWT(payload string) string {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	body := base64.RawURLEncoding.EncodeToString([]byte(payload))
	return header + "." + body + ".c2lnbmF0dXJl"
}

func mockAnyContext() interface{} {
	return mock.Anything
}
