package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

// SessionInfo describes an open session for discovery surfaces.
type SessionInfo struct {
	ID   uuid.UUID `json:"id"`
	Kind string    `json:"kind"`
}

// SessionManager tracks open sessions. The registry map is guarded so the
// serving surface can open and close sessions from concurrent requests;
// operations on any single session stay serialized by the session itself.
type SessionManager struct {
	opts   SessionOptions
	logger *zap.Logger

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewSessionManager builds a manager applying opts to every session.
func NewSessionManager(opts SessionOptions, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		opts:     opts,
		logger:   logger,
		sessions: make(map[uuid.UUID]*Session),
	}
}

// Open builds an adapter for the kind via the registry and tracks the
// resulting session. Configured introspection bounds apply unless the
// caller's config sets its own.
func (m *SessionManager) Open(ctx context.Context, kind string, config map[string]any) (*Session, error) {
	adapter, err := datasource.Open(ctx, kind, m.withIntrospectionBounds(config), m.logger)
	if err != nil {
		return nil, err
	}

	session := NewSession(adapter, m.opts, m.logger)
	m.mu.Lock()
	m.sessions[session.ID()] = session
	m.mu.Unlock()

	m.logger.Info("datasource session opened",
		zap.String("session_id", session.ID().String()),
		zap.String("kind", kind))
	return session, nil
}

// withIntrospectionBounds copies the adapter config, filling the sampling
// settings from manager options when the caller left them unset. The input
// map is never mutated; it belongs to the caller.
func (m *SessionManager) withIntrospectionBounds(config map[string]any) map[string]any {
	merged := make(map[string]any, len(config)+2)
	for k, v := range config {
		merged[k] = v
	}
	if _, ok := merged["sample_values"]; !ok && m.opts.ColumnSampleValues > 0 {
		merged["sample_values"] = m.opts.ColumnSampleValues
	}
	if _, ok := merged["sample_size"]; !ok && m.opts.DocumentSampleSize > 0 {
		merged["sample_size"] = m.opts.DocumentSampleSize
	}
	return merged
}

// Get returns a tracked session.
func (m *SessionManager) Get(id uuid.UUID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	session, ok := m.sessions[id]
	return session, ok
}

// List returns info for all open sessions.
func (m *SessionManager) List() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{ID: s.ID(), Kind: s.Kind()})
	}
	return infos
}

// Close tears down one session and stops tracking it.
func (m *SessionManager) Close(id uuid.UUID) error {
	m.mu.Lock()
	session, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("unknown session: %s", id)
	}

	err := session.Close()
	m.logger.Info("datasource session closed", zap.String("session_id", id.String()))
	return err
}

// CloseAll tears down every session; used at process exit.
func (m *SessionManager) CloseAll() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	for _, s := range sessions {
		if err := s.Close(); err != nil {
			m.logger.Warn("session close failed",
				zap.String("session_id", s.ID().String()),
				zap.Error(err))
		}
	}
}
