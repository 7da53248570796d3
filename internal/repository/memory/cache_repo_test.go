package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yourusername/rickandmorty-quiz-bot/internal/pkg/errors"
)

func TestCacheRepo_JSON(t *testing.T) {
	cache := NewCacheRepo()
	type payload struct {
		Name string `json:"name"`
	}

	require.NoError(t, cache.SetJSON("p", payload{Name: "Rick"}, time.Minute))

	var got payload
	require.NoError(t, cache.GetJSON("p", &got))
	assert.Equal(t, "Rick", got.Name)

	assert.ErrorIs(t, cache.GetJSON("missing", &got), apperrors.ErrNotFound)
}

func TestCacheRepo_Expiration(t *testing.T) {
	cache := NewCacheRepo()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	require.NoError(t, cache.SetJSON("k", "v", time.Minute))

	var got string
	now = now.Add(59 * time.Second)
	require.NoError(t, cache.GetJSON("k", &got))
	assert.Equal(t, "v", got)

	now = now.Add(2 * time.Second)
	assert.ErrorIs(t, cache.GetJSON("k", &got), apperrors.ErrNotFound)
}

func TestCacheRepo_IncrWindow(t *testing.T) {
	cache := NewCacheRepo()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	count, ttl, err := cache.IncrWindow("rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, time.Minute, ttl)

	now = now.Add(20 * time.Second)
	count, ttl, err = cache.IncrWindow("rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, 40*time.Second, ttl)

	// Новое окно начинается с единицы
	now = now.Add(time.Minute)
	count, _, err = cache.IncrWindow("rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	require.NoError(t, cache.SetJSON("text", "abc", 0))
	_, _, err = cache.IncrWindow("text", time.Minute)
	assert.Error(t, err)
}

func TestCacheRepo_IncrWindowWithoutTTL(t *testing.T) {
	cache := NewCacheRepo()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	// Счетчик, оставшийся без срока жизни, получает окно при следующем инкременте
	require.NoError(t, cache.SetJSON("rl", 120, 0))
	count, ttl, err := cache.IncrWindow("rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(121), count)
	assert.Equal(t, time.Minute, ttl)

	now = now.Add(time.Minute + time.Second)
	count, _, err = cache.IncrWindow("rl", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}
