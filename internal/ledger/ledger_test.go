package ledger

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "orders.csv"), nil)
	require.NoError(t, err)
	return store
}

func sampleRecord(userID string, items ...string) Record {
	total := decimal.Zero
	for _, fragment := range items {
		_, price := SplitItem(fragment)
		total = total.Add(decimal.RequireFromString(strings.TrimSuffix(price, "€")))
	}
	return Record{
		UserID:    userID,
		UserName:  "user-" + userID,
		Timestamp: time.Date(2026, 8, 28, 12, 30, 0, 0, time.UTC),
		Channel:   "order-user-" + userID,
		Items:     items,
		Total:     total,
	}
}

func TestAppendWritesHeaderExactlyOnce(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Append(ctx, sampleRecord("u1", "Poster A - 10.00€")))
	}

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(raw)), "\n")
	require.Len(t, lines, 4)
	require.Equal(t, "User ID,Username,Date,Channel,Items,Total", lines[0])
	for _, line := range lines[1:] {
		require.NotContains(t, line, "User ID")
	}
}

func TestAppendThenReadAllRoundTrips(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	ctx := context.Background()

	first := sampleRecord("u1", "Poster A - 10.00€", "Poster B - 5.50€")
	second := sampleRecord("u2", "Sticker - 2.00€")
	require.NoError(t, store.Append(ctx, first))
	require.NoError(t, store.Append(ctx, second))

	records, err := store.ReadAll(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Equal(t, "u1", records[0].UserID)
	require.Equal(t, first.Items, records[0].Items)
	require.True(t, records[0].Total.Equal(decimal.RequireFromString("15.5")))
	require.Equal(t, first.Timestamp.Truncate(time.Minute), records[0].Timestamp)

	require.Equal(t, "u2", records[1].UserID)
	require.Len(t, records[1].Items, 1)
}

func TestReadAllMissingFile(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	records, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
	require.False(t, store.Exists())
}

func TestReadAllToleratesMalformedRows(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	raw := "User ID,Username,Date,Channel,Items,Total\n" +
		"u1,alice,not-a-date,order-alice,,\n" +
		"u2,bob,28/08/26 10:00,order-bob,Poster - garbage | Sticker - 2.00€,oops\n"
	require.NoError(t, os.WriteFile(store.Path(), []byte(raw), 0o644))

	records, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)

	require.Empty(t, records[0].Items)
	require.True(t, records[0].Total.Equal(decimal.Zero))
	require.True(t, records[0].Timestamp.IsZero())

	require.Len(t, records[1].Items, 2)
	require.True(t, records[1].Total.Equal(decimal.Zero))
}

func TestDanglingHeaderReadsAsEmpty(t *testing.T) {
	t.Parallel()

	store := tempStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("User ID,Username,Date,Channel,Items,Total\n"), 0o644))

	records, err := store.ReadAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	records := []Record{
		sampleRecord("u1", "Poster A - 10.00€", "Poster B - 5.50€"),
		sampleRecord("u2", "Poster A - 10.00€"),
		sampleRecord("u1", "Sticker - 2.00€"),
	}

	stats := Summarize(records)
	require.Equal(t, 3, stats.TotalOrders)
	require.Equal(t, 4, stats.TotalItems)
	require.True(t, stats.Revenue.Equal(decimal.RequireFromString("27.5")))
	require.Equal(t, "Poster A", stats.TopProduct)

	userStats := SummarizeUser(records, "u1")
	require.Equal(t, 2, userStats.TotalOrders)
	require.Equal(t, 3, userStats.TotalItems)
	require.True(t, userStats.Revenue.Equal(decimal.RequireFromString("17.5")))
	require.Equal(t, "Poster A", userStats.TopProduct)

	empty := SummarizeUser(records, "nobody")
	require.Equal(t, 0, empty.TotalOrders)
	require.Equal(t, "N/A", empty.TopProduct)
}

func TestSummarizeMalformedFragments(t *testing.T) {
	t.Parallel()

	records := []Record{{UserID: "u1", Items: []string{"Mystery", "Poster - not-a-price"}}}
	stats := Summarize(records)
	require.Equal(t, 2, stats.TotalItems)
	require.True(t, stats.Revenue.Equal(decimal.Zero))
}
