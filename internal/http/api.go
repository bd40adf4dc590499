package http

import (
	"net/http"
	"strings"

	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
)

const txNotFound = "Transaction not found"

type profileRequest struct {
	Name        *string     `json:"name"`
	Income      *core.Money `json:"income"`
	Currency    *string     `json:"currency"`
	Theme       *string     `json:"theme"`
	RuleNeeds   *int        `json:"rule_needs"`
	RuleWants   *int        `json:"rule_wants"`
	RuleSavings *int        `json:"rule_savings"`
}

// rules merges the sent percentages over current. Nil when none was sent.
func (pr profileRequest) rules(current core.BudgetRules) *core.BudgetRules {
	if pr.RuleNeeds == nil && pr.RuleWants == nil && pr.RuleSavings == nil {
		return nil
	}
	r := current
	if pr.RuleNeeds != nil {
		r.Needs = *pr.RuleNeeds
	}
	if pr.RuleWants != nil {
		r.Wants = *pr.RuleWants
	}
	if pr.RuleSavings != nil {
		r.Savings = *pr.RuleSavings
	}
	return &r
}

type transactionRequest struct {
	Description *string     `json:"description"`
	Amount      *core.Money `json:"amount"`
	Category    *string     `json:"category"`
	Date        *string     `json:"date"`
}

// patch converts the request, validating category and date.
func (tr transactionRequest) patch() (services.TransactionPatch, error) {
	var p services.TransactionPatch
	if tr.Description != nil {
		desc := sanitizeInput(*tr.Description)
		p.Description = &desc
	}
	p.Amount = tr.Amount
	if tr.Category != nil {
		c, err := core.ParseCategory(*tr.Category)
		if err != nil {
			return p, err
		}
		p.Category = &c
	}
	if tr.Date != nil {
		d, err := core.ParseDate(strings.TrimSpace(*tr.Date))
		if err != nil {
			return p, err
		}
		p.Date = &d
	}
	return p, nil
}

func (s *Server) apiProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.Profile(ctx, userID(ctx))
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(presentUser(p)).Write(w)
}

func (s *Server) apiUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	current, err := s.auth.Profile(ctx, uid)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	patch := services.ProfilePatch{
		Name:     req.Name,
		Income:   req.Income,
		Currency: req.Currency,
		Rules:    req.rules(current.Rules),
	}
	if req.Theme != nil {
		theme, err := core.ParseTheme(*req.Theme)
		if err != nil {
			writeAPIError(w, r, err, "")
			return
		}
		patch.Theme = &theme
	}
	p, err := s.settings.Update(ctx, uid, patch)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(presentUser(p)).Write(w)
}

func (s *Server) apiSetup(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	current, err := s.auth.Profile(ctx, uid)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	in := services.SetupInput{
		Income:   req.Income,
		Currency: req.Currency,
		Rules:    req.rules(current.Rules),
	}
	if req.Name != nil {
		in.Name = *req.Name
	}
	p, err := s.auth.Setup(ctx, uid, in)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(presentUser(p)).Write(w)
}

// apiListTransactions returns the month's transactions, filtered and sorted like the page.
func (s *Server) apiListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	q := r.URL.Query()
	m, err := s.budget.Month(ctx, userID(ctx), parsePeriod(q, s.budget.Now()), services.MonthQuery{
		Filter: finance.NewFilter(q.Get("category"), sanitizeInput(q.Get("search"))),
		Sort:   finance.ParseSortMode(q.Get("sort")),
	})
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	NewJSONResponse().Body(presentTransactions(m.Transactions)).Write(w)
}

func (s *Server) apiCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	if patch.Description == nil || patch.Amount == nil {
		BadRequestError("Description and amount are required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()

	in := services.TransactionInput{
		Description: *patch.Description,
		Amount:      *patch.Amount,
		Category:    core.Needs,
		Date:        core.DateOf(s.budget.Now()),
	}
	if patch.Category != nil {
		in.Category = *patch.Category
	}
	if patch.Date != nil {
		in.Date = *patch.Date
	}
	tx, err := s.budget.AddTransaction(ctx, userID(ctx), in)
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	s.logLedger(r, log.OpCreate, tx)
	NewJSONResponse().Status(http.StatusCreated).Body(presentTransaction(tx)).Write(w)
}

func (s *Server) apiGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError(txNotFound).Write(w)
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	tx, err := s.budget.GetTransaction(ctx, userID(ctx), id)
	if err != nil {
		writeAPIError(w, r, err, txNotFound)
		return
	}
	NewJSONResponse().Body(presentTransaction(tx)).Write(w)
}

func (s *Server) apiUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError(txNotFound).Write(w)
		return
	}
	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	patch, err := req.patch()
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()

	tx, err := s.budget.UpdateTransaction(ctx, userID(ctx), id, patch)
	if err != nil {
		writeAPIError(w, r, err, txNotFound)
		return
	}
	s.logLedger(r, log.OpUpdate, tx)
	NewJSONResponse().Body(presentTransaction(tx)).Write(w)
}

func (s *Server) apiDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		NotFoundError(txNotFound).Write(w)
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	tx, err := s.budget.GetTransaction(ctx, uid, id)
	if err == nil {
		err = s.budget.DeleteTransaction(ctx, uid, id)
	}
	if err != nil {
		writeAPIError(w, r, err, txNotFound)
		return
	}
	s.logLedger(r, log.OpDelete, tx)
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) apiReorder(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	ids, err := body.Int64s("order")
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	if err := s.budget.Reorder(ctx, userID(ctx), ids); err != nil {
		writeAPIError(w, r, err, txNotFound)
		return
	}
	NewJSONResponse().Body(map[string]bool{"success": true}).Write(w)
}

func (s *Server) apiDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	q := r.URL.Query()
	d, err := s.budget.Dashboard(ctx, userID(ctx), parsePeriod(q, s.budget.Now()), services.DashboardQuery{
		Filter: finance.NewFilter(q.Get("category"), ""),
		Page:   parsePage(q),
	})
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	if d.AutoSaved != nil {
		s.logLedger(r, log.OpAutoSave, *d.AutoSaved)
	}
	NewJSONResponse().Body(presentDashboard(d)).Write(w)
}

func (s *Server) apiSavings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	sv, err := s.budget.Savings(ctx, userID(ctx), parseYear(r.URL.Query()))
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(presentSavings(sv)).Write(w)
}

func (s *Server) apiHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	h, err := s.budget.History(ctx, userID(ctx))
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(presentHistoryView(h)).Write(w)
}

func (s *Server) apiExport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	b, err := s.budget.Export(ctx, userID(ctx))
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Attachment(services.BackupFileName).Body(b).Write(w)
}

// apiImport accepts the backup as the JSON body or as a multipart "file".
func (s *Server) apiImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	var (
		b   services.Backup
		err error
	)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		file, _, ferr := r.FormFile("file")
		if ferr != nil {
			BadRequestError("No file uploaded").Write(w)
			return
		}
		defer file.Close()
		b, err = services.DecodeBackup(file)
	} else {
		b, err = services.DecodeBackup(r.Body)
	}
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	if err := s.budget.Import(ctx, uid, b); err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	p, err := s.auth.Profile(ctx, uid)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(map[string]interface{}{
		"message": "Data imported successfully",
		"count":   len(b.Txs),
		"user":    presentUser(p),
	}).Write(w)
}

func (s *Server) apiReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	uid := userID(ctx)
	if err := s.budget.Reset(ctx, uid); err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	p, err := s.auth.Profile(ctx, uid)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(map[string]interface{}{
		"message": "All data has been reset",
		"user":    presentUser(p),
	}).Write(w)
}

func (s *Server) apiToggleTheme(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	theme, err := s.settings.ToggleTheme(ctx, userID(ctx))
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	NewJSONResponse().Body(map[string]core.Theme{"theme": theme}).Write(w)
}
