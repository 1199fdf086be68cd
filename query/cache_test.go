package query_test

import (
	"context"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydb/quarry/query"
)

// memCache is a map-backed quarry.Cache. TTLs are ignored.
type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]byte{}}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	buf, ok := c.entries[key]
	if !ok {
		return nil, nil
	}
	c.hits++
	return buf, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
	return nil
}

func (c *memCache) DeletePrefix(_ context.Context, prefix string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.entries {
		if strings.HasPrefix(k, prefix) {
			delete(c.entries, k)
		}
	}
	return nil
}

func (c *memCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string][]byte{}
	return nil
}

func TestRememberServesRepeatReadsFromCache(t *testing.T) {
	a, mock := mockAdapter(t)
	cache := newMemCache()
	ctx := context.Background()

	// Only one backend query is expected for two identical reads.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE `name` = ?")).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "ada"))

	read := func() *query.Builder {
		return query.New(a, "users").Where("name", "ada").Remember(cache, time.Minute)
	}

	rows, err := read().Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ada", rows[0]["name"])
	assert.Equal(t, 0, cache.hits)

	again, err := read().Get(ctx)
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.Equal(t, "ada", again[0]["name"])
	assert.Equal(t, 1, cache.hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRememberDistinguishesClauses(t *testing.T) {
	a, mock := mockAdapter(t)
	cache := newMemCache()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE `name` = ?")).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users` WHERE `name` = ? LIMIT 1")).
		WithArgs("ada").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))

	_, err := query.New(a, "users").Where("name", "ada").Remember(cache, 0).Get(ctx)
	require.NoError(t, err)
	_, err = query.New(a, "users").Where("name", "ada").Limit(1).Remember(cache, 0).Get(ctx)
	require.NoError(t, err)

	assert.Equal(t, 0, cache.hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWritesInvalidateCachedReads(t *testing.T) {
	a, mock := mockAdapter(t)
	cache := newMemCache()
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `users` (`name`) VALUES (?)")).
		WithArgs("grace").
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM `users`")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(1)).AddRow(int64(2)))

	read := func() *query.Builder {
		return query.New(a, "users").Remember(cache, time.Minute)
	}

	rows, err := read().Get(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	_, err = read().Insert(ctx, map[string]any{"name": "grace"})
	require.NoError(t, err)

	rows, err = read().Get(ctx)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Equal(t, 0, cache.hits)
	assert.NoError(t, mock.ExpectationsWereMet())
}
