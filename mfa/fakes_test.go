package mfa

import (
	"context"
	"sync"
	"time"
)

type memSecrets struct {
	mu     sync.Mutex
	states map[string]State
}

func newMemSecrets(users ...string) *memSecrets {
	s := &memSecrets{states: make(map[string]State)}
	for _, u := range users {
		s.states[u] = State{}
	}
	return s
}

func (s *memSecrets) MFAState(_ context.Context, u string) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[u]
	if !ok {
		return State{}, ErrPrincipalNotFound
	}
	return st, nil
}

func (s *memSecrets) SetSecretIfEmpty(_ context.Context, u, secret string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[u]
	if !ok {
		return "", ErrPrincipalNotFound
	}
	if st.Secret == "" {
		st.Secret = secret
		s.states[u] = st
	}
	return st.Secret, nil
}

func (s *memSecrets) SetEnabled(_ context.Context, u string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[u]
	if !ok {
		return ErrPrincipalNotFound
	}
	st.Enabled = enabled
	s.states[u] = st
	return nil
}

type memRecovery struct {
	mu    sync.Mutex
	codes map[string][]RecoveryCode
}

func newMemRecovery() *memRecovery {
	return &memRecovery{codes: make(map[string][]RecoveryCode)}
}

func (s *memRecovery) ReplaceCodes(_ context.Context, u string, codes []RecoveryCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[u] = append([]RecoveryCode(nil), codes...)
	return nil
}

func (s *memRecovery) consume(match func(u string) bool, h string, at time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for u, list := range s.codes {
		if !match(u) {
			continue
		}
		for i := range list {
			if list[i].Hash == h && list[i].ConsumedAt == nil {
				list[i].ConsumedAt = &at
				return true
			}
		}
	}
	return false
}

func (s *memRecovery) ConsumeCode(_ context.Context, h string, at time.Time) (bool, error) {
	return s.consume(func(string) bool { return true }, h, at), nil
}

func (s *memRecovery) ConsumeCodeFor(_ context.Context, user, h string, at time.Time) (bool, error) {
	return s.consume(func(u string) bool { return u == user }, h, at), nil
}

func (s *memRecovery) ListCodes(_ context.Context, u string) ([]RecoveryCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecoveryCode(nil), s.codes[u]...), nil
}
