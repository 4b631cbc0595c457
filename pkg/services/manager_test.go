package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
)

const managedKind = "fake-managed"

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{Kind: managedKind},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			if fail, _ := config["fail"].(bool); fail {
				return nil, errors.New("configured to fail")
			}
			return newFake(managedKind), nil
		},
	})
}

func TestManager_OpenGetList(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	ctx := context.Background()

	session, err := manager.Open(ctx, managedKind, map[string]any{})
	require.NoError(t, err)

	got, ok := manager.Get(session.ID())
	require.True(t, ok)
	assert.Same(t, session, got)

	infos := manager.List()
	require.Len(t, infos, 1)
	assert.Equal(t, session.ID(), infos[0].ID)
	assert.Equal(t, managedKind, infos[0].Kind)
}

func TestManager_OpenUnknownKind(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	_, err := manager.Open(context.Background(), "no-such-kind", map[string]any{})
	assert.Error(t, err)
	assert.Empty(t, manager.List())
}

func TestManager_FailedOpenIsNotTracked(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	_, err := manager.Open(context.Background(), managedKind, map[string]any{"fail": true})
	assert.Error(t, err)
	assert.Empty(t, manager.List())
}

func TestManager_Close(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	ctx := context.Background()

	session, err := manager.Open(ctx, managedKind, map[string]any{})
	require.NoError(t, err)

	require.NoError(t, manager.Close(session.ID()))
	_, ok := manager.Get(session.ID())
	assert.False(t, ok)

	// Closing an untracked id is an error at the manager level.
	assert.Error(t, manager.Close(session.ID()))
	assert.Error(t, manager.Close(uuid.New()))

	// The session itself is torn down.
	_, err = session.Schema(ctx)
	assert.Error(t, err)
}

func TestManager_CloseAll(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	ctx := context.Background()

	first, err := manager.Open(ctx, managedKind, map[string]any{})
	require.NoError(t, err)
	second, err := manager.Open(ctx, managedKind, map[string]any{})
	require.NoError(t, err)

	manager.CloseAll()
	assert.Empty(t, manager.List())

	_, err = first.Schema(ctx)
	assert.Error(t, err)
	_, err = second.Schema(ctx)
	assert.Error(t, err)
}

func TestManager_IntrospectionBoundsInjected(t *testing.T) {
	const kind = "fake-bounded"
	var seen map[string]any
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{Kind: kind},
		Factory: func(ctx context.Context, config map[string]any, logger *zap.Logger) (datasource.Adapter, error) {
			seen = config
			return newFake(kind), nil
		},
	})

	manager := NewSessionManager(SessionOptions{
		ColumnSampleValues: 4,
		DocumentSampleSize: 25,
	}, zap.NewNop())
	ctx := context.Background()

	caller := map[string]any{"path": "data.csv"}
	_, err := manager.Open(ctx, kind, caller)
	require.NoError(t, err)
	assert.Equal(t, 4, seen["sample_values"])
	assert.Equal(t, 25, seen["sample_size"])
	assert.Equal(t, "data.csv", seen["path"])

	// The caller's map is copied, never mutated.
	assert.NotContains(t, caller, "sample_values")
	assert.NotContains(t, caller, "sample_size")

	// An explicit per-open value wins over the configured bound.
	_, err = manager.Open(ctx, kind, map[string]any{"sample_values": float64(9)})
	require.NoError(t, err)
	assert.Equal(t, float64(9), seen["sample_values"])
}

func TestManager_NoBoundsLeavesConfigAlone(t *testing.T) {
	manager := NewSessionManager(SessionOptions{}, zap.NewNop())
	merged := manager.withIntrospectionBounds(map[string]any{"path": "x"})
	assert.Equal(t, map[string]any{"path": "x"}, merged)
}
