package services

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mescon/Hassarr/internal/responses"
	"github.com/mescon/Hassarr/internal/testutil"
)

func TestResultKey(t *testing.T) {
	assert.Equal(t, "last_add_media", ResultKey(ServiceAddMedia))
	assert.Equal(t, "last_add_media", ResultKey("last_add_media"))
}

func TestResultStore_PersistsAcrossInstances(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()

	first := NewResultStore(repo)
	first.Put(ctx, ServiceSearchMedia, responses.MissingQuery())
	first.Put(ctx, ServiceRunJob, responses.JobStarted("download-sync", "Download Sync"))

	second := NewResultStore(repo)
	require.NoError(t, second.Load(ctx))

	raw, ok := second.Get(ServiceSearchMedia)
	require.True(t, ok)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "missing_query", decoded["action"])

	all := second.All()
	assert.Len(t, all, 2)
	assert.Contains(t, all, "last_run_job")
}

func TestResultStore_MemoryOnly(t *testing.T) {
	s := NewResultStore(nil)
	require.NoError(t, s.Load(context.Background()))

	_, ok := s.Get(ServiceAddMedia)
	assert.False(t, ok)

	s.Put(context.Background(), ServiceAddMedia, responses.MissingTitle())
	_, ok = s.Get(ServiceAddMedia)
	assert.True(t, ok)

	// All returns a copy.
	all := s.All()
	delete(all, "last_add_media")
	_, ok = s.Get(ServiceAddMedia)
	assert.True(t, ok)
}

func TestResultStore_LatestWins(t *testing.T) {
	repo := testutil.NewTestRepository(t)
	ctx := context.Background()
	s := NewResultStore(repo)

	s.Put(ctx, ServiceAddMedia, responses.MissingTitle())
	s.Put(ctx, ServiceAddMedia, responses.TitleNotFound("Dune"))

	reloaded := NewResultStore(repo)
	require.NoError(t, reloaded.Load(ctx))
	raw, ok := reloaded.Get(ServiceAddMedia)
	require.True(t, ok)
	assert.Contains(t, string(raw), `"not_found"`)
}
