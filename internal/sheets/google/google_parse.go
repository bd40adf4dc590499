package google

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"wealthplanner/internal/core"
)

// Column layout of the ledger sheet: A ID, B UserID, C Date, D Description,
// E Category, F Amount, G Order. Row 1 is the header.
const lastColumn = "G"

func headerRow() []any {
	return []any{"ID", "User", "Date", "Description", "Category", "Amount", "Order"}
}

func encodeRow(tx core.Transaction) []any {
	return []any{
		strconv.FormatInt(tx.ID, 10),
		strconv.FormatInt(tx.UserID, 10),
		tx.Date.String(),
		tx.Description,
		string(tx.Category),
		tx.Amount.Fixed(),
		strconv.Itoa(tx.Order),
	}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// decodeRow parses one sheet row. Header, blank and malformed rows report false.
func decodeRow(raw []any) (core.Transaction, bool) {
	cols := toStrings(raw)
	id, err := strconv.ParseInt(safeGet(cols, 0), 10, 64)
	if err != nil || id <= 0 {
		return core.Transaction{}, false
	}
	userID, err := strconv.ParseInt(safeGet(cols, 1), 10, 64)
	if err != nil {
		return core.Transaction{}, false
	}
	date, err := core.ParseDate(safeGet(cols, 2))
	if err != nil {
		return core.Transaction{}, false
	}
	cat, err := core.ParseCategory(safeGet(cols, 4))
	if err != nil {
		return core.Transaction{}, false
	}
	cents, err := core.ParseDecimalToCents(safeGet(cols, 5))
	if err != nil {
		return core.Transaction{}, false
	}
	order, _ := strconv.Atoi(safeGet(cols, 6))
	return core.Transaction{
		ID:          id,
		UserID:      userID,
		Date:        date,
		Description: safeGet(cols, 3),
		Category:    cat,
		Amount:      core.Money{Cents: cents},
		Order:       order,
	}, true
}

// locateRow returns the 1-based sheet row holding id, or 0.
func locateRow(values [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range values {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == want {
			return i + 1
		}
	}
	return 0
}

// nextRow is the 1-based row after the last non-empty one.
func nextRow(values [][]any) int {
	last := 0
	for i, row := range values {
		for _, v := range row {
			if strings.TrimSpace(fmt.Sprint(v)) != "" {
				last = i + 1
				break
			}
		}
	}
	return last + 1
}

func userRows(values [][]any, userID int64) []core.Transaction {
	var out []core.Transaction
	for _, raw := range values {
		if tx, ok := decodeRow(raw); ok && tx.UserID == userID {
			out = append(out, tx)
		}
	}
	return out
}

// rebuildRows keeps every other user's rows, drops blanks and appends txs for
// userID sorted by id, under a fresh header.
func rebuildRows(values [][]any, userID int64, txs []core.Transaction) [][]any {
	rows := [][]any{headerRow()}
	for _, raw := range values {
		tx, ok := decodeRow(raw)
		if !ok || tx.UserID == userID {
			continue
		}
		rows = append(rows, encodeRow(tx))
	}
	mine := append([]core.Transaction(nil), txs...)
	sort.Slice(mine, func(i, j int) bool { return mine[i].ID < mine[j].ID })
	for _, tx := range mine {
		tx.UserID = userID
		rows = append(rows, encodeRow(tx))
	}
	return rows
}
