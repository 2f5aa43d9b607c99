// Package google mirrors transactions into a Google Sheets tab, one row
// per transaction keyed by the ID in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

const (
	rowCacheTTL     = 10 * time.Minute
	rowCacheCleanup = 20 * time.Minute
	valueInput      = "RAW"
	lastColumn      = "F"
)

var errNoService = errors.New("sheets service not initialized")

// Config selects the target tab and the service account used to reach it.
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON []byte
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
	// ref is the sheet name quoted for A1 notation.
	ref string
	// rows maps a transaction ID (as string) to its 1-based sheet row.
	rows *gocache.Cache
}

var _ sheets.Ledger = (*Client)(nil)

// New creates a client. Extra options are appended after the credentials,
// which lets tests point the client at a local endpoint.
func New(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}

	var all []goption.ClientOption
	if len(cfg.CredentialsJSON) > 0 {
		all = append(all,
			goption.WithCredentialsJSON(cfg.CredentialsJSON),
			goption.WithScopes(gsheet.SpreadsheetsScope))
	}
	all = append(all, opts...)

	svc, err := gsheet.NewService(ctx, all...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets ledger ready", "spreadsheet", cfg.SpreadsheetID, "sheet", cfg.SheetName)

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheet:         cfg.SheetName,
		ref:           quoteSheetName(cfg.SheetName),
		rows:          gocache.New(rowCacheTTL, rowCacheCleanup),
	}, nil
}

// CredentialsFromConfig returns the inline service account JSON, or reads it
// from file when no inline value is set.
func CredentialsFromConfig(inline, file string) ([]byte, error) {
	if s := strings.TrimSpace(inline); s != "" {
		return []byte(s), nil
	}
	file = strings.TrimSpace(file)
	if file == "" {
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
	b, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func (c *Client) Upsert(ctx context.Context, t core.Transaction) error {
	if c.svc == nil {
		return errNoService
	}
	if t.ID <= 0 {
		return fmt.Errorf("upsert ledger row: invalid id %d", t.ID)
	}

	row, found, err := c.rowOf(ctx, t.ID)
	if err != nil {
		return err
	}
	values := &gsheet.ValueRange{Values: [][]any{sheets.ToRow(t)}}

	if found {
		rng := c.rowRange(row)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, values).
			ValueInputOption(valueInput).Context(ctx).Do()
		if err != nil {
			c.rows.Delete(rowKey(t.ID))
			return fmt.Errorf("update %s: %w", rng, err)
		}
		slog.DebugContext(ctx, "Ledger row updated", "id", t.ID, "row", row)
		return nil
	}

	rng := fmt.Sprintf("%s!A:%s", c.ref, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, values).
		ValueInputOption(valueInput).InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", c.sheet, err)
	}
	if resp.Updates != nil {
		if n, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			c.rows.SetDefault(rowKey(t.ID), n)
			slog.DebugContext(ctx, "Ledger row appended", "id", t.ID, "row", n)
		}
	}
	return nil
}

// Remove clears the row holding id. The row stays in place as a blank line
// until the next ReplaceAll compacts the sheet.
func (c *Client) Remove(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errNoService
	}
	row, found, err := c.rowOf(ctx, id)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	rng := c.rowRange(row)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	c.rows.Delete(rowKey(id))
	slog.DebugContext(ctx, "Ledger row cleared", "id", id, "row", row)
	return nil
}

// ReplaceAll clears the tab and writes the header followed by txs.
func (c *Client) ReplaceAll(ctx context.Context, txs []core.Transaction) error {
	if c.svc == nil {
		return errNoService
	}
	all := fmt.Sprintf("%s!A:%s", c.ref, lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, all, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", all, err)
	}
	c.rows.Flush()

	values := make([][]any, 0, len(txs)+1)
	values = append(values, sheets.Header)
	for _, t := range txs {
		values = append(values, sheets.ToRow(t))
	}
	rng := fmt.Sprintf("%s!A1:%s%d", c.ref, lastColumn, len(values))
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption(valueInput).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("write %s: %w", rng, err)
	}
	for i, t := range txs {
		c.rows.SetDefault(rowKey(t.ID), i+2)
	}
	slog.InfoContext(ctx, "Ledger rewritten", "sheet", c.sheet, "rows", len(txs))
	return nil
}

// rowOf finds the sheet row of id, scanning column A on a cache miss. The
// scan also writes the header into an empty tab.
func (c *Client) rowOf(ctx context.Context, id int64) (int, bool, error) {
	if n, ok := c.rows.Get(rowKey(id)); ok {
		return n.(int), true, nil
	}

	rng := fmt.Sprintf("%s!A:A", c.ref)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read %s: %w", rng, err)
	}

	if len(resp.Values) == 0 {
		header := fmt.Sprintf("%s!A1:%s1", c.ref, lastColumn)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, header, &gsheet.ValueRange{Values: [][]any{sheets.Header}}).
			ValueInputOption(valueInput).Context(ctx).Do()
		if err != nil {
			return 0, false, fmt.Errorf("write header: %w", err)
		}
		return 0, false, nil
	}

	row, found := 0, false
	for i, cells := range resp.Values {
		rid, ok := sheets.RowID(cells)
		if !ok {
			continue
		}
		c.rows.SetDefault(rowKey(rid), i+1)
		if rid == id {
			row, found = i+1, true
		}
	}
	return row, found, nil
}

func (c *Client) rowRange(row int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.ref, row, lastColumn, row)
}

// quoteSheetName wraps name in single quotes, doubling embedded quotes, so
// names with spaces or punctuation form valid A1 ranges.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

func rowKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// rowFromRange extracts the first row number from an A1 range such as
// "'My Ledger'!A5:F5".
func rowFromRange(rng string) (int, bool) {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeftFunc(rng, func(r rune) bool {
		return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z')
	})
	n, err := strconv.Atoi(digits)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}
