package http

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"wealthplanner/internal/finance"
)

// storeTimeout bounds the store work of a single request.
const storeTimeout = 7 * time.Second

func storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// parsePeriod reads year and month from values. Missing or invalid values
// fall back to the month of now.
func parsePeriod(values url.Values, now time.Time) finance.Period {
	current := finance.PeriodOf(now)
	year, month := current.Year, int(current.Month)

	if v := strings.TrimSpace(values.Get("year")); v != "" {
		if y, err := strconv.Atoi(v); err == nil {
			year = y
		}
	}
	if v := strings.TrimSpace(values.Get("month")); v != "" {
		if m, err := strconv.Atoi(v); err == nil {
			month = m
		}
	}
	p, err := finance.NewPeriod(year, month)
	if err != nil {
		return current
	}
	return p
}

// parseYear reads ?year=, zero when absent or malformed.
func parseYear(values url.Values) int {
	y, err := strconv.Atoi(strings.TrimSpace(values.Get("year")))
	if err != nil || y < 1 || y > 9999 {
		return 0
	}
	return y
}

func parsePage(values url.Values) int {
	n, err := strconv.Atoi(strings.TrimSpace(values.Get("page")))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	return id, err == nil && id > 0
}

// monthURL links a page to a month.
func monthURL(path string, p finance.Period) string {
	return path + "?year=" + strconv.Itoa(p.Year) + "&month=" + strconv.Itoa(int(p.Month))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// safeRedirect keeps a Referer redirect on this site, falling back to def.
func safeRedirect(r *http.Request, def string) string {
	ref := r.Referer()
	if ref == "" {
		return def
	}
	u, err := url.Parse(ref)
	if err != nil || (u.Host != "" && u.Host != r.Host) {
		return def
	}
	target := u.EscapedPath()
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") {
		return def
	}
	if u.RawQuery != "" {
		target += "?" + u.RawQuery
	}
	return target
}
