package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/inclusiva/core"
	"github.com/trezcool/inclusiva/core/workspace"
	"github.com/trezcool/inclusiva/storage/cache"
)

func TestOpenInmem(t *testing.T) {
	ctx := context.Background()
	conf := core.NewTestConfig()

	stores, err := Open(ctx, conf)
	require.NoError(t, err)
	defer func() { assert.NoError(t, stores.Close()) }()

	w, err := stores.Workspace.CreateWorkspace(ctx, workspace.Workspace{Name: "Escola Sol", PIN: "ABCD-1234", IsActive: true})
	require.NoError(t, err)

	got, err := stores.Workspace.GetWorkspaceByPIN(ctx, "ABCD-1234")
	require.NoError(t, err)
	assert.Equal(t, w.ID, got.ID)
}

func TestOpenCacheMemory(t *testing.T) {
	ctx := context.Background()

	c, closeFn, err := OpenCache(ctx, core.NewTestConfig())
	require.NoError(t, err)
	defer func() { assert.NoError(t, closeFn()) }()
	assert.IsType(t, &cache.Memory{}, c)

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	var v string
	found, err := c.Get(ctx, "k", &v)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "v", v)
}
