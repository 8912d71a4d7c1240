package auth

import (
	"context"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository keeps delegated sessions in process memory, for local development,
// single-instance deployments and tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byHash map[string]Session
	hashes map[uuid.UUID]string
	now    func() time.Time
}

// NewInMemoryRepository constructs an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byHash: make(map[string]Session),
		hashes: make(map[uuid.UUID]string),
		now:    time.Now,
	}
}

// CreateSession stores a session under its token hash.
func (r *InMemoryRepository) CreateSession(_ context.Context, session Session, tokenHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	session.Claims = maps.Clone(session.Claims)
	r.byHash[tokenHash] = session
	r.hashes[session.ID] = tokenHash
	return nil
}

// FindSessionByTokenHash returns the session for tokenHash, or nil when none exists.
func (r *InMemoryRepository) FindSessionByTokenHash(_ context.Context, tokenHash string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.byHash[tokenHash]
	if !ok {
		return nil, nil
	}
	session.Claims = maps.Clone(session.Claims)
	return &session, nil
}

// DeleteSession removes a session by ID.
func (r *InMemoryRepository) DeleteSession(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if hash, ok := r.hashes[id]; ok {
		delete(r.byHash, hash)
		delete(r.hashes, id)
	}
	return nil
}

// DeleteExpiredSessions removes every expired session and reports how many were removed.
func (r *InMemoryRepository) DeleteExpiredSessions(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	var removed int64
	for hash, session := range r.byHash {
		if session.Expired(now) {
			delete(r.byHash, hash)
			delete(r.hashes, session.ID)
			removed++
		}
	}
	return removed, nil
}
