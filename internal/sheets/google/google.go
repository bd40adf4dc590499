package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"wealthplanner/internal/core"
	ports "wealthplanner/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const DefaultSheetName = "Ledger"

var errNoService = errors.New("sheets service not initialized")

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheet         string
}

// Ensure interface conformance
var (
	_ ports.LedgerWriter = (*Client)(nil)
	_ ports.LedgerReader = (*Client)(nil)
)

// Options carries the spreadsheet location and service account credentials.
// CredentialsJSON wins over CredentialsFile; with neither set
// GOOGLE_APPLICATION_CREDENTIALS is consulted.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client for the ledger mirror.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	sheet := strings.TrimSpace(opts.SheetName)
	if sheet == "" {
		sheet = DefaultSheetName
	}

	creds, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
		goption.WithHTTPClient(newHTTPClientWithPooling()))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets ledger mirror ready", "spreadsheet_id", spreadsheetID, "sheet", sheet)
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheet: sheet}, nil
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case inline != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "json_length", len(inline))
		return []byte(inline), nil
	case file != "":
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.DebugContext(ctx, "Read service account file", "path", file, "size", len(data))
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newHTTPClientWithPooling keeps a small pool of connections to the Sheets API
// with bounded dial, TLS and response timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          20,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: time.Second,
		ForceAttemptHTTP2:     true,
	}
	return &http.Client{Transport: transport, Timeout: 60 * time.Second}
}

func (c *Client) readAll(ctx context.Context) ([][]any, error) {
	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

func (c *Client) writeRow(ctx context.Context, rowNum int, values []any) error {
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, rowNum, lastColumn, rowNum)
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// UpsertTransaction rewrites the row holding tx.ID, or appends after the last used row.
func (c *Client) UpsertTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return errNoService
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	rowNum := locateRow(values, tx.ID)
	if rowNum == 0 {
		rowNum = nextRow(values)
		if rowNum == 1 {
			if err := c.writeRow(ctx, 1, headerRow()); err != nil {
				return err
			}
			rowNum = 2
		}
	}
	if err := c.writeRow(ctx, rowNum, encodeRow(tx)); err != nil {
		return err
	}
	slog.DebugContext(ctx, "Mirrored transaction", "transaction_id", tx.ID, "row", rowNum)
	return nil
}

// DeleteTransaction blanks the row of the transaction. Blank rows are skipped on read.
func (c *Client) DeleteTransaction(ctx context.Context, userID, txID int64) error {
	if c.svc == nil {
		return errNoService
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	rowNum := locateRow(values, txID)
	if rowNum == 0 {
		return nil
	}
	if row, ok := decodeRow(values[rowNum-1]); ok && row.UserID != userID {
		slog.WarnContext(ctx, "Refusing to clear row owned by another user", "transaction_id", txID, "user_id", userID)
		return nil
	}
	rng := fmt.Sprintf("%s!A%d:%s%d", c.sheet, rowNum, lastColumn, rowNum)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	return nil
}

// ReplaceUser rebuilds the whole sheet with the user's rows swapped for txs.
func (c *Client) ReplaceUser(ctx context.Context, userID int64, txs []core.Transaction) error {
	if c.svc == nil {
		return errNoService
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return err
	}
	rows := rebuildRows(values, userID, txs)

	rng := fmt.Sprintf("%s!A:%s", c.sheet, lastColumn)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	vr := &gsheet.ValueRange{Values: rows}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, fmt.Sprintf("%s!A1", c.sheet), vr).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return fmt.Errorf("rewrite %s: %w", c.sheet, err)
	}
	slog.InfoContext(ctx, "Rebuilt ledger mirror for user", "user_id", userID, "rows", len(txs))
	return nil
}

// ListUserRows reads back the user's mirrored transactions.
func (c *Client) ListUserRows(ctx context.Context, userID int64) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errNoService
	}
	values, err := c.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return userRows(values, userID), nil
}
