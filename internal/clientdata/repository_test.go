package clientdata

import (
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	for _, table := range AllTables {
		_, err = db.Exec(`
			CREATE TABLE ` + table + ` (
				key        TEXT PRIMARY KEY,
				data       BLOB NOT NULL,
				expires_at INTEGER NOT NULL
			)
		`)
		require.NoError(t, err)
	}

	return NewRepository(db)
}

type cachedQuote struct {
	Symbol string  `msgpack:"symbol"`
	Price  float64 `msgpack:"price"`
}

func TestStoreAndGetIfFresh(t *testing.T) {
	repo := newTestRepo(t)

	in := cachedQuote{Symbol: "RELIANCE", Price: 2891.55}
	require.NoError(t, repo.Store(TableQuotes, "RELIANCE", in, TTLQuote))

	var out cachedQuote
	ok, err := repo.GetIfFresh(TableQuotes, "RELIANCE", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestGetIfFreshMiss(t *testing.T) {
	repo := newTestRepo(t)

	var out cachedQuote
	ok, err := repo.GetIfFresh(TableQuotes, "UNKNOWN", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetIfFreshSkipsExpired(t *testing.T) {
	repo := newTestRepo(t)

	in := cachedQuote{Symbol: "INFY", Price: 1512.30}
	require.NoError(t, repo.Store(TableQuotes, "INFY", in, -time.Minute))

	var out cachedQuote
	ok, err := repo.GetIfFresh(TableQuotes, "INFY", &out)
	require.NoError(t, err)
	assert.False(t, ok, "expired entry must not be returned as fresh")

	// Get still returns the stale entry for fallback use.
	ok, err = repo.Get(TableQuotes, "INFY", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, in, out)
}

func TestStoreUpserts(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableClassifications, "NIFTYBEES", "ETF", TTLClassification))
	require.NoError(t, repo.Store(TableClassifications, "NIFTYBEES", "EQUITY", TTLClassification))

	var out string
	ok, err := repo.GetIfFresh(TableClassifications, "NIFTYBEES", &out)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "EQUITY", out)
}

func TestStoreRejectsUnknownTable(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.Store("quotes; DROP TABLE quotes", "x", 1, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid table name")
}

func TestDelete(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableMarketStatus, "NSE", true, TTLMarketStatus))
	require.NoError(t, repo.Delete(TableMarketStatus, "NSE"))

	var out bool
	ok, err := repo.Get(TableMarketStatus, "NSE", &out)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestDeleteExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableQuotes, "FRESH", cachedQuote{Symbol: "FRESH", Price: 1}, time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "STALE1", cachedQuote{Symbol: "STALE1", Price: 2}, -time.Hour))
	require.NoError(t, repo.Store(TableQuotes, "STALE2", cachedQuote{Symbol: "STALE2", Price: 3}, -time.Minute))

	deleted, err := repo.DeleteExpired(TableQuotes)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	var out cachedQuote
	ok, err := repo.GetIfFresh(TableQuotes, "FRESH", &out)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDeleteAllExpired(t *testing.T) {
	repo := newTestRepo(t)

	require.NoError(t, repo.Store(TableQuotes, "A", 1.0, -time.Minute))
	require.NoError(t, repo.Store(TableClassifications, "A", "EQUITY", -time.Minute))
	require.NoError(t, repo.Store(TableMarketStatus, "NSE", true, time.Hour))

	results, err := repo.DeleteAllExpired()
	require.NoError(t, err)

	assert.Equal(t, int64(1), results[TableQuotes])
	assert.Equal(t, int64(1), results[TableClassifications])
	assert.Equal(t, int64(0), results[TableMarketStatus])
}
