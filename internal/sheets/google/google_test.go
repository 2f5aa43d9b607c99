package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"

	"fintrack/internal/core"
)

// fakeSheets is a single-tab stand-in for the Sheets values API.
type fakeSheets struct {
	mu     sync.Mutex
	rows   [][]any
	calls  map[string]int
	ranges []string
	fail   bool
}

func newFakeSheets() *fakeSheets {
	return &fakeSheets{calls: make(map[string]int)}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sheet-1/values/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	if f.fail {
		http.Error(w, `{"error":{"code":500,"message":"backend error"}}`, http.StatusInternalServerError)
		return
	}
	rng := strings.TrimPrefix(r.URL.Path, prefix)
	f.ranges = append(f.ranges, rng)
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		f.calls["get"]++
		_ = json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.trimmed()})

	case r.Method == http.MethodPut:
		f.calls["update"]++
		start, _ := rowFromRange(rng)
		for i, row := range f.decode(r) {
			f.set(start+i, row)
		}
		_, _ = w.Write([]byte(`{}`))

	case strings.HasSuffix(rng, ":append"):
		f.calls["append"]++
		n := len(f.trimmed())
		for i, row := range f.decode(r) {
			f.set(n+1+i, row)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"updates": map[string]any{"updatedRange": fmt.Sprintf("Ledger!A%d:F%d", n+1, n+1)},
		})

	case strings.HasSuffix(rng, ":clear"):
		f.calls["clear"]++
		rng = strings.TrimSuffix(rng, ":clear")
		if n, ok := rowFromRange(rng); ok {
			f.set(n, nil)
		} else {
			f.rows = nil
		}
		_, _ = w.Write([]byte(`{}`))

	default:
		http.Error(w, "unsupported", http.StatusBadRequest)
	}
}

func (f *fakeSheets) decode(r *http.Request) [][]any {
	var body struct {
		Values [][]any `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)
	return body.Values
}

func (f *fakeSheets) set(row int, cells []any) {
	for len(f.rows) < row {
		f.rows = append(f.rows, nil)
	}
	f.rows[row-1] = cells
}

// trimmed drops trailing blank rows the way the real API does.
func (f *fakeSheets) trimmed() [][]any {
	n := len(f.rows)
	for n > 0 && len(f.rows[n-1]) == 0 {
		n--
	}
	out := make([][]any, n)
	for i := range out {
		out[i] = f.rows[i]
		if out[i] == nil {
			out[i] = []any{}
		}
	}
	return out
}

func (f *fakeSheets) snapshot() [][]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trimmed()
}

func (f *fakeSheets) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	return newTestClientFor(t, "Ledger")
}

func newTestClientFor(t *testing.T, sheet string) (*Client, *fakeSheets) {
	t.Helper()
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	c, err := New(context.Background(),
		Config{SpreadsheetID: "sheet-1", SheetName: sheet},
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	require.NoError(t, err)
	return c, fake
}

func expense(id, cents int64, desc string) core.Transaction {
	return core.Transaction{
		ID:          id,
		Type:        core.Expense,
		Amount:      core.Money{Cents: cents},
		Date:        core.EpochDay(2024, time.March, 10),
		Category:    core.Groceries,
		Description: desc,
	}
}

func TestNewRequiresTarget(t *testing.T) {
	_, err := New(context.Background(), Config{SheetName: "Ledger"})
	assert.Error(t, err)
	_, err = New(context.Background(), Config{SpreadsheetID: "x"})
	assert.Error(t, err)
}

func TestUpsertWritesHeaderThenAppends(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, expense(1, 1999, "bread")))
	require.NoError(t, c.Upsert(ctx, expense(2, 500, "milk")))

	rows := fake.snapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, []any{"1", "2024-03-10", "expense", "groceries", "19.99", "bread"}, rows[1])
	assert.Equal(t, "2", rows[2][0])
}

func TestUpsertUpdatesExistingRowFromCache(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, expense(1, 1999, "bread")))
	gets := fake.count("get")

	require.NoError(t, c.Upsert(ctx, expense(1, 2500, "bread and butter")))

	assert.Equal(t, gets, fake.count("get"), "cached row should skip the column scan")
	rows := fake.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "25.00", rows[1][4])
	assert.Equal(t, "bread and butter", rows[1][5])
}

func TestUpsertFindsRowWrittenElsewhere(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	fake.rows = [][]any{{"ID"}, {"7", "2024-03-01", "expense", "rent", "800.00", ""}}

	require.NoError(t, c.Upsert(ctx, expense(7, 90000, "")))

	rows := fake.snapshot()
	require.Len(t, rows, 2)
	assert.Equal(t, "900.00", rows[1][4])
	assert.Zero(t, fake.count("append"))
}

func TestRemoveClearsRow(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, expense(1, 100, "a")))
	require.NoError(t, c.Upsert(ctx, expense(2, 200, "b")))
	require.NoError(t, c.Remove(ctx, 1))

	rows := fake.snapshot()
	require.Len(t, rows, 3)
	assert.Empty(t, rows[1])
	assert.Equal(t, "2", rows[2][0])

	// Unknown IDs are a no-op.
	clears := fake.count("clear")
	require.NoError(t, c.Remove(ctx, 99))
	assert.Equal(t, clears, fake.count("clear"))
}

func TestReplaceAllCompacts(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	fake.rows = [][]any{{"ID"}, {}, {"9", "junk"}}

	require.NoError(t, c.ReplaceAll(ctx, []core.Transaction{expense(3, 300, "c"), expense(4, 400, "d")}))

	rows := fake.snapshot()
	require.Len(t, rows, 3)
	assert.Equal(t, "ID", rows[0][0])
	assert.Equal(t, "3", rows[1][0])
	assert.Equal(t, "4", rows[2][0])

	// Row positions are known after a rewrite.
	gets := fake.count("get")
	require.NoError(t, c.Upsert(ctx, expense(4, 450, "d")))
	assert.Equal(t, gets, fake.count("get"))
	assert.Equal(t, "4.50", fake.snapshot()[2][4])
}

func TestUpstreamErrorsAreWrapped(t *testing.T) {
	c, fake := newTestClient(t)
	fake.fail = true

	err := c.Upsert(context.Background(), expense(1, 100, "a"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read 'Ledger'!A:A")
}

func TestNilServiceIsRejected(t *testing.T) {
	var c Client
	assert.ErrorIs(t, c.Upsert(context.Background(), expense(1, 1, "")), errNoService)
	assert.ErrorIs(t, c.Remove(context.Background(), 1), errNoService)
	assert.ErrorIs(t, c.ReplaceAll(context.Background(), nil), errNoService)
}

func TestSheetNameIsQuotedInRanges(t *testing.T) {
	c, fake := newTestClientFor(t, "Q1 Bob's Ledger")
	ctx := context.Background()

	require.NoError(t, c.Upsert(ctx, expense(1, 1999, "bread")))
	require.NoError(t, c.Upsert(ctx, expense(1, 2000, "bread")))
	require.NoError(t, c.Remove(ctx, 1))

	fake.mu.Lock()
	ranges := append([]string(nil), fake.ranges...)
	fake.mu.Unlock()
	require.NotEmpty(t, ranges)
	for _, rng := range ranges {
		assert.True(t, strings.HasPrefix(rng, "'Q1 Bob''s Ledger'!"), "unquoted range %q", rng)
	}
	assert.Len(t, fake.snapshot(), 1, "only the header should remain")
}

func TestQuoteSheetName(t *testing.T) {
	assert.Equal(t, "'Ledger'", quoteSheetName("Ledger"))
	assert.Equal(t, "'My Ledger'", quoteSheetName("My Ledger"))
	assert.Equal(t, "'Bob''s'", quoteSheetName("Bob's"))
}

func TestRowFromRange(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"Ledger!A5:F5", 5, true},
		{"'My Ledger'!A12:F12", 12, true},
		{"A3", 3, true},
		{"Ledger!A:F", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		got, ok := rowFromRange(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestCredentialsFromConfig(t *testing.T) {
	b, err := CredentialsFromConfig(` {"type":"service_account"} `, "")
	require.NoError(t, err)
	assert.Equal(t, `{"type":"service_account"}`, string(b))

	path := filepath.Join(t.TempDir(), "sa.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"x":1}`), 0o600))
	b, err = CredentialsFromConfig("", path)
	require.NoError(t, err)
	assert.Equal(t, `{"x":1}`, string(b))

	_, err = CredentialsFromConfig("", "")
	assert.Error(t, err)
	_, err = CredentialsFromConfig("", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}
