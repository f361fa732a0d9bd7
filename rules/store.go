package rules

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrCorrupt is returned by Storage implementations when persisted rules
// exist but cannot be decoded. Callers must not overwrite such data.
var ErrCorrupt = errors.New("persisted rules are corrupt")

// Storage persists the full set of rules.
type Storage interface {
	// Load returns the persisted rules, or an empty map when nothing has
	// been persisted yet.
	Load(ctx context.Context) (map[string]Rule, error)
	// Save replaces everything persisted with rules.
	Save(ctx context.Context, rules map[string]Rule) error
}

// Store keeps the rules in memory and writes every mutation through to its
// Storage.
type Store struct {
	storage Storage

	mu    sync.RWMutex
	rules map[string]Rule
}

// New loads the rules from storage. It must be called before any messages
// are processed.
func New(ctx context.Context, storage Storage) (*Store, error) {
	loaded, err := storage.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading rules: %w", err)
	}
	if loaded == nil {
		loaded = map[string]Rule{}
	}

	return &Store{
		storage: storage,
		rules:   loaded,
	}, nil
}

// Get returns a copy of the rule for user, or nil when none is configured.
func (s *Store) Get(user string) *Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rules[user]
	if !ok {
		return nil
	}
	r = r.clone()
	return &r
}

// All returns a snapshot of every configured rule.
func (s *Store) All() map[string]Rule {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshot()
}

// Len returns the number of configured users.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rules)
}

// Set inserts or replaces the rule for user and persists the result.
// Duplicate channels are dropped.
func (s *Store) Set(ctx context.Context, user, emoji string, channels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := Rule{Emoji: emoji, Channels: dedupe(channels)}

	prev, existed := s.rules[user]
	s.rules[user] = r
	if err := s.save(ctx); err != nil {
		if existed {
			s.rules[user] = prev
		} else {
			delete(s.rules, user)
		}
		return err
	}
	return nil
}

// Remove deletes the rule for user. It reports whether a rule existed;
// nothing is persisted when it did not.
func (s *Store) Remove(ctx context.Context, user string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.rules[user]
	if !ok {
		return false, nil
	}

	delete(s.rules, user)
	if err := s.save(ctx); err != nil {
		s.rules[user] = prev
		return false, err
	}
	return true, nil
}

// Clear removes every rule and persists the empty set.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.rules
	s.rules = map[string]Rule{}
	if err := s.save(ctx); err != nil {
		s.rules = prev
		return err
	}
	return nil
}

// save must be called with s.mu held.
func (s *Store) save(ctx context.Context) error {
	if err := s.storage.Save(ctx, s.snapshot()); err != nil {
		return fmt.Errorf("saving rules: %w", err)
	}
	return nil
}

func (s *Store) snapshot() map[string]Rule {
	out := make(map[string]Rule, len(s.rules))
	for user, r := range s.rules {
		out[user] = r.clone()
	}
	return out
}

func dedupe(channels []string) []string {
	if len(channels) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(channels))
	out := make([]string, 0, len(channels))
	for _, c := range channels {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
