package http

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wealthplanner/internal/charts"
	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
)

// maxImportBytes bounds an uploaded backup file.
const maxImportBytes = 5 << 20

type monthNav struct {
	Period finance.Period
	Prev   finance.Period
	Next   finance.Period
}

func navFor(p finance.Period) monthNav {
	return monthNav{Period: p, Prev: p.Prev(), Next: p.Next()}
}

type dashboardPage struct {
	monthNav
	Summary      finance.Summary
	Category     string
	Transactions finance.Page[core.Transaction]
	History      []finance.HistoryEntry
}

type transactionsPage struct {
	monthNav
	Summary      finance.Summary
	Category     string
	Search       string
	Sort         finance.SortMode
	Transactions []core.Transaction
	ListedIncome core.Money
	ListedSpent  core.Money
}

type advisorPage struct {
	monthNav
	Summary finance.Summary
}

type savingsPage struct {
	Report   finance.SavingsReport
	ChartURL string
}

// logLedger records a successful ledger write.
func (s *Server) logLedger(r *http.Request, op string, tx core.Transaction) {
	log.NewStructuredLogger(log.FromContext(r.Context())).
		LogLedgerChange(r.Context(), op, tx.UserID, tx.ID, string(tx.Category), tx.Amount.Cents)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	p, err := s.auth.Profile(ctx, uid)
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	if p.NeedsSetup() {
		http.Redirect(w, r, "/setup/", http.StatusSeeOther)
		return
	}

	q := r.URL.Query()
	period := parsePeriod(q, s.budget.Now())
	category := q.Get("category")
	d, err := s.budget.Dashboard(ctx, uid, period, services.DashboardQuery{
		Filter: finance.NewFilter(category, ""),
		Page:   parsePage(q),
	})
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}

	v := view{
		Title:   "Dashboard",
		Active:  "dashboard",
		Profile: &d.Profile,
		Data: dashboardPage{
			monthNav:     navFor(period),
			Summary:      d.Summary,
			Category:     category,
			Transactions: d.Transactions,
			History:      d.History,
		},
	}
	if d.AutoSaved != nil {
		v.Flashes = append(v.Flashes, info(fmt.Sprintf("💰 Saved %s from last month!", d.AutoSaved.Amount.Format(d.Profile.Currency))))
		s.logLedger(r, log.OpAutoSave, *d.AutoSaved)
	}
	s.render(w, r, "dashboard.html", v)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	q := r.URL.Query()
	period := parsePeriod(q, s.budget.Now())
	category := q.Get("category")
	search := sanitizeInput(q.Get("search"))
	m, err := s.budget.Month(ctx, userID(ctx), period, services.MonthQuery{
		Filter: finance.NewFilter(category, search),
		Sort:   finance.ParseSortMode(q.Get("sort")),
	})
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}

	s.render(w, r, "transactions.html", view{
		Title:   "Transactions",
		Active:  "transactions",
		Profile: &m.Profile,
		Data: transactionsPage{
			monthNav:     navFor(period),
			Summary:      m.Summary,
			Category:     category,
			Search:       search,
			Sort:         m.Sort,
			Transactions: m.Transactions,
			ListedIncome: m.ListedIncome,
			ListedSpent:  m.ListedSpent,
		},
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	h, err := s.budget.History(ctx, userID(ctx))
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	s.render(w, r, "history.html", view{Title: "History", Active: "history", Profile: &h.Profile, Data: h})
}

func (s *Server) handleAdvisor(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	period := parsePeriod(r.URL.Query(), s.budget.Now())
	p, sum, err := s.budget.Advisor(ctx, userID(ctx), period)
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	s.render(w, r, "advisor.html", view{
		Title:   "AI Advisor",
		Active:  "advisor",
		Profile: &p,
		Data:    advisorPage{monthNav: navFor(period), Summary: sum},
	})
}

func (s *Server) handleSavings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	sv, err := s.budget.Savings(ctx, userID(ctx), parseYear(r.URL.Query()))
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	s.render(w, r, "savings.html", view{
		Title:   "Savings",
		Active:  "savings",
		Profile: &sv.Profile,
		Data: savingsPage{
			Report:   sv.Report,
			ChartURL: "/savings/chart.png?year=" + strconv.Itoa(sv.Report.Year),
		},
	})
}

// handleSavingsChart serves the yearly bar chart. Images are cached per
// user, year, currency and monthly values, so any ledger change misses.
func (s *Server) handleSavingsChart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	sv, err := s.budget.Savings(ctx, uid, parseYear(r.URL.Query()))
	if err != nil {
		status, msg := classify(err)
		http.Error(w, msg, status)
		return
	}

	values := sv.Report.ChartValues()
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = strconv.FormatFloat(v, 'f', 2, 64)
	}
	key := fmt.Sprintf("%d|%d|%s|%s", uid, sv.Report.Year, sv.Profile.Currency, strings.Join(parts, ","))

	img, ok := s.charts.Get(key)
	if !ok {
		img, err = charts.SavingsTrendPNG(sv.Report, sv.Profile.Currency)
		if err != nil {
			log.FromContext(ctx).ErrorContext(ctx, "Chart rendering failed", log.FieldError, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		s.charts.Set(key, img)
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	_, _ = w.Write(img)
}

func (s *Server) handleSettingsPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.Profile(ctx, userID(ctx))
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	s.render(w, r, "settings.html", view{Title: "Settings", Active: "settings", Profile: &p})
}

// parseRule reads a whole percentage; an empty field keeps the stored rule.
func parseRule(form string, stored int) (int, error) {
	form = strings.TrimSpace(form)
	if form == "" {
		return stored, nil
	}
	n, err := strconv.Atoi(form)
	if err != nil {
		return 0, core.ErrRulesSum
	}
	return n, nil
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	p, err := s.auth.Profile(ctx, uid)
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}

	fail := func(msg string) {
		s.flash(w, r, failure(msg))
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
	}

	var patch services.ProfilePatch
	if raw := sanitizeInput(r.PostFormValue("income")); raw != "" {
		cents, err := core.ParseNonNegativeCents(raw)
		if err != nil {
			fail("Please enter a valid income")
			return
		}
		income := core.Money{Cents: cents}
		patch.Income = &income
	}
	if cur := sanitizeInput(r.PostFormValue("currency")); cur != "" {
		patch.Currency = &cur
	}
	if raw := sanitizeInput(r.PostFormValue("theme")); raw != "" {
		theme, err := core.ParseTheme(raw)
		if err != nil {
			fail(userMessage(r, err))
			return
		}
		patch.Theme = &theme
	}

	var rules core.BudgetRules
	var errN, errW, errS error
	rules.Needs, errN = parseRule(r.PostFormValue("rule_needs"), p.Rules.Needs)
	rules.Wants, errW = parseRule(r.PostFormValue("rule_wants"), p.Rules.Wants)
	rules.Savings, errS = parseRule(r.PostFormValue("rule_savings"), p.Rules.Savings)
	if errN != nil || errW != nil || errS != nil {
		fail("Budget rules must add up to 100%")
		return
	}
	patch.Rules = &rules

	if _, err := s.settings.Update(ctx, uid, patch); err != nil {
		if errors.Is(err, core.ErrRulesSum) {
			fail("Budget rules must add up to 100%")
			return
		}
		fail(userMessage(r, err))
		return
	}
	s.flash(w, r, success("Settings saved successfully!"))
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

// handleAddTransaction creates a transaction in the viewed month or, with
// tx_id, edits description, amount and category of an existing one.
func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	form, formErr := formValues(r)
	period := parsePeriod(form, s.budget.Now())
	back := monthURL("/dashboard/", period)
	fail := func(msg string) {
		s.flash(w, r, failure(msg))
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
	if formErr != nil {
		log.FromContext(ctx).WarnContext(ctx, "Malformed transaction form", log.FieldError, formErr)
		fail("Please fill all fields")
		return
	}

	desc := sanitizeInput(r.PostFormValue("description"))
	rawAmount := sanitizeInput(r.PostFormValue("amount"))
	if desc == "" || rawAmount == "" {
		fail("Please fill all fields")
		return
	}
	cents, err := core.ParseDecimalToCents(rawAmount)
	if err != nil {
		fail("Please enter a valid amount")
		return
	}
	amount := core.Money{Cents: cents}

	rawCategory := r.PostFormValue("category")
	if strings.TrimSpace(rawCategory) == "" {
		rawCategory = string(core.Needs)
	}
	category, err := core.ParseCategory(rawCategory)
	if err != nil {
		fail(userMessage(r, err))
		return
	}

	if rawID := strings.TrimSpace(r.PostFormValue("tx_id")); rawID != "" {
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil {
			fail("Transaction not found")
			return
		}
		tx, err := s.budget.UpdateTransaction(ctx, uid, id, services.TransactionPatch{
			Description: &desc,
			Amount:      &amount,
			Category:    &category,
		})
		if errors.Is(err, services.ErrNotFound) {
			fail("Transaction not found")
			return
		}
		if err != nil {
			fail(userMessage(r, err))
			return
		}
		s.logLedger(r, log.OpUpdate, tx)
		s.flash(w, r, success("Transaction updated!"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}

	tx, err := s.budget.AddTransaction(ctx, uid, services.TransactionInput{
		Description: desc,
		Amount:      amount,
		Category:    category,
		Date:        period.DateFor(s.budget.Now()),
	})
	if err != nil {
		fail(userMessage(r, err))
		return
	}
	s.logLedger(r, log.OpCreate, tx)
	s.flash(w, r, success("Transaction added!"))
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// formValues merges the query into the posted form so that year and month can come from either.
// On a malformed body only the query is returned.
func formValues(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return r.URL.Query(), err
	}
	return r.Form, nil
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	back := monthURL("/dashboard/", parsePeriod(r.URL.Query(), s.budget.Now()))
	id, ok := parseID(r)
	if !ok {
		s.flash(w, r, failure("Transaction not found"))
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	tx, err := s.budget.GetTransaction(ctx, uid, id)
	if err == nil {
		err = s.budget.DeleteTransaction(ctx, uid, id)
	}
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.flash(w, r, failure("Transaction not found"))
	case err != nil:
		s.flash(w, r, failure(userMessage(r, err)))
	default:
		s.logLedger(r, log.OpDelete, tx)
		s.flash(w, r, success("Transaction deleted!"))
	}
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// handleReorder is called by the drag-and-drop script with the new id order.
func (s *Server) handleReorder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	parser := NewRequestBodyParser(r)
	if err := parser.Parse(); err != nil {
		status, msg := classify(err)
		NewJSONResponse().Status(status).Body(map[string]interface{}{"success": false, "error": msg}).Write(w)
		return
	}
	ids, err := parser.Int64s("order")
	if err == nil {
		err = s.budget.Reorder(ctx, userID(ctx), ids)
	}
	if err != nil {
		status, msg := classify(err)
		if status == http.StatusInternalServerError {
			msg = userMessage(r, err)
		}
		NewJSONResponse().Status(status).Body(map[string]interface{}{"success": false, "error": msg}).Write(w)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Transactions reordered",
		log.FieldOperation, log.OpReorder, "count", len(ids))
	NewJSONResponse().Body(map[string]bool{"success": true}).Write(w)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	b, err := s.budget.Export(ctx, userID(ctx))
	if err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/history/", http.StatusSeeOther)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Backup exported",
		log.FieldOperation, log.OpExport, "transactions", len(b.Txs))
	NewJSONResponse().Attachment(services.BackupFileName).Body(b).Write(w)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		s.flash(w, r, failure("No file uploaded"))
		http.Redirect(w, r, "/history/", http.StatusSeeOther)
		return
	}
	defer file.Close()

	b, err := services.DecodeBackup(file)
	if err == nil {
		err = s.budget.Import(ctx, userID(ctx), b)
	}
	if err != nil {
		_, msg := classify(err)
		s.flash(w, r, failure("Error importing data: "+msg))
		http.Redirect(w, r, "/history/", http.StatusSeeOther)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "Backup imported",
		log.FieldOperation, log.OpImport, "transactions", len(b.Txs))
	s.flash(w, r, success("Data imported successfully!"))
	http.Redirect(w, r, "/history/", http.StatusSeeOther)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	if err := s.budget.Reset(ctx, userID(ctx)); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentLedger).InfoContext(ctx, "User data reset", log.FieldOperation, log.OpReset)
	s.flash(w, r, success("All data has been reset!"))
	http.Redirect(w, r, "/settings/", http.StatusSeeOther)
}

func (s *Server) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	if _, err := s.settings.ToggleTheme(ctx, userID(ctx)); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
	}
	http.Redirect(w, r, safeRedirect(r, "/dashboard/"), http.StatusSeeOther)
}
