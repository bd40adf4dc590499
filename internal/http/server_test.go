package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/cache"
	"wealthplanner/internal/core"
	"wealthplanner/internal/log"
	"wealthplanner/internal/middleware/ratelimit"
	"wealthplanner/internal/services"
	"wealthplanner/internal/storage/memory"
)

var testNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

type testEnv struct {
	srv      *Server
	store    *memory.Store
	auth     *services.AuthService
	settings *services.SettingsService
	issuer   *auth.Issuer
	charts   cache.Cache[[]byte]
}

func newTestEnv(t *testing.T, limiter *ratelimit.Limiter) *testEnv {
	t.Helper()
	store := memory.New().WithClock(clock)
	env := &testEnv{
		store:    store,
		auth:     services.NewAuthService(store, store).WithClock(clock),
		settings: services.NewSettingsService(store),
		issuer:   auth.NewIssuer("test-secret-0123456789", time.Hour, 24*time.Hour, time.Hour).WithClock(clock),
		charts:   cache.NewLRUCache[[]byte](10, time.Minute),
	}
	srv, err := NewServer(":0", Deps{
		Auth:     env.auth,
		Budget:   services.NewBudgetService(store, nil).WithClock(clock),
		Settings: env.settings,
		Issuer:   env.issuer,
		Limiter:  limiter,
		Charts:   env.charts,
		Logger:   log.New(log.Config{Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	env.srv = srv
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

// user creates a set up profile with the given monthly income.
func (e *testEnv) user(t *testing.T, phone string, income core.Money) core.Profile {
	t.Helper()
	ctx := context.Background()
	p, err := e.auth.Register(ctx, phone, "123456", "Ana")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	p, err = e.settings.Update(ctx, p.ID, services.ProfilePatch{Income: &income})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	return p
}

func (e *testEnv) sessionCookie(t *testing.T, p core.Profile) *http.Cookie {
	t.Helper()
	token, err := e.issuer.Session(p.ID, p.Phone)
	if err != nil {
		t.Fatalf("Session: %v", err)
	}
	return &http.Cookie{Name: sessionCookie, Value: token}
}

func (e *testEnv) bearer(t *testing.T, p core.Profile) string {
	t.Helper()
	tokens, err := e.issuer.Pair(p.ID, p.Phone)
	if err != nil {
		t.Fatalf("Pair: %v", err)
	}
	return "Bearer " + tokens.Access
}

func formRequest(method, target string, form url.Values, cookies ...*http.Cookie) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

func jsonRequest(method, target, body, authorization string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func cookieFrom(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// flashesOf reads the flash cookie a response set.
func flashesOf(rr *httptest.ResponseRecorder) []flashMessage {
	c := cookieFrom(rr, flashCookie)
	if c == nil {
		return nil
	}
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	return readFlashes(req)
}

func hasFlash(msgs []flashMessage, kind flashKind, text string) bool {
	for _, m := range msgs {
		if m.Kind == kind && strings.Contains(m.Text, text) {
			return true
		}
	}
	return false
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, nil)
	for path, want := range map[string]string{"/healthz": "ok", "/readyz": "ready"} {
		rr := env.do(httptest.NewRequest(http.MethodGet, path, nil))
		if rr.Code != http.StatusOK || rr.Body.String() != want {
			t.Errorf("%s = %d %q, want 200 %q", path, rr.Code, rr.Body.String(), want)
		}
	}
}

func TestLoginPageAndSecurityHeaders(t *testing.T) {
	env := newTestEnv(t, nil)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "<h1>Welcome</h1>") {
		t.Errorf("login page missing heading")
	}
	if got := rr.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q", got)
	}
	if !strings.Contains(rr.Header().Get("Content-Security-Policy"), "default-src 'self'") {
		t.Errorf("missing CSP header: %q", rr.Header().Get("Content-Security-Policy"))
	}
}

func TestGuardedRoutes(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/dashboard/", nil))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/" {
		t.Errorf("page without session = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/user/profile/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("api without token = %d", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Authentication credentials were not provided" {
		t.Errorf("error = %v", got)
	}

	rr = env.do(jsonRequest(http.MethodGet, "/api/user/profile/", "", "Bearer nope"))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api with bad token = %d", rr.Code)
	}

	// A session token is not an access token.
	p := env.user(t, "5550000001", core.NewMoney(1000, 0))
	session := env.sessionCookie(t, p)
	rr = env.do(jsonRequest(http.MethodGet, "/api/user/profile/", "", "Bearer "+session.Value))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("api with session token = %d", rr.Code)
	}
}

func TestOTPLoginFlow(t *testing.T) {
	env := newTestEnv(t, nil)
	const phone = "5551234567"

	rr := env.do(formRequest(http.MethodPost, "/check-user/", url.Values{"phone": {phone}}))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/verify-otp/" {
		t.Fatalf("check-user = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	pending := cookieFrom(rr, pendingCookie)
	if pending == nil {
		t.Fatal("pending cookie not set")
	}

	otp, err := env.store.LatestOTP(context.Background(), phone)
	if err != nil {
		t.Fatalf("LatestOTP: %v", err)
	}

	rr = env.do(formRequest(http.MethodPost, "/verify-otp/", url.Values{"otp": {"000000x"}}, pending))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/verify-otp/" {
		t.Fatalf("wrong otp = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	if !hasFlash(flashesOf(rr), flashError, "Invalid or expired OTP") {
		t.Errorf("wrong otp flash = %v", flashesOf(rr))
	}

	rr = env.do(formRequest(http.MethodPost, "/verify-otp/", url.Values{"otp": {otp.Code}}, pending))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/create-pin/" {
		t.Fatalf("verify-otp = %d %q", rr.Code, rr.Header().Get("Location"))
	}
	session := cookieFrom(rr, sessionCookie)
	if session == nil || session.Value == "" {
		t.Fatal("session cookie not set")
	}

	rr = env.do(formRequest(http.MethodPost, "/create-pin/",
		url.Values{"name": {"Ana"}, "pin": {"123456"}, "confirm_pin": {"654321"}}, session))
	if rr.Header().Get("Location") != "/create-pin/" || !hasFlash(flashesOf(rr), flashError, "PINs do not match") {
		t.Fatalf("mismatched pin = %q %v", rr.Header().Get("Location"), flashesOf(rr))
	}

	rr = env.do(formRequest(http.MethodPost, "/create-pin/",
		url.Values{"name": {"Ana"}, "pin": {"123456"}, "confirm_pin": {"123456"}}, session))
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/settings/" {
		t.Fatalf("create-pin = %d %q", rr.Code, rr.Header().Get("Location"))
	}

	status, err := env.auth.CheckStatus(context.Background(), phone)
	if err != nil {
		t.Fatalf("CheckStatus: %v", err)
	}
	if !status.Exists || !status.PINSet {
		t.Errorf("status = %+v, want existing user with PIN", status)
	}

	// The next login goes through the PIN.
	rr = env.do(formRequest(http.MethodPost, "/check-user/", url.Values{"phone": {phone}}))
	if rr.Header().Get("Location") != "/login-pin/" {
		t.Fatalf("returning user = %q", rr.Header().Get("Location"))
	}
	pending = cookieFrom(rr, pendingCookie)
	rr = env.do(formRequest(http.MethodPost, "/login-pin/", url.Values{"pin": {"123456"}}, pending))
	if rr.Header().Get("Location") != "/dashboard/" || cookieFrom(rr, sessionCookie) == nil {
		t.Fatalf("login-pin = %q", rr.Header().Get("Location"))
	}
	if !hasFlash(flashesOf(rr), flashSuccess, "Welcome back, Ana!") {
		t.Errorf("login flash = %v", flashesOf(rr))
	}
}

func TestDashboardRedirectsToSetup(t *testing.T) {
	env := newTestEnv(t, nil)
	p, err := env.auth.Register(context.Background(), "5550000002", "123456", "")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/dashboard/", nil)
	req.AddCookie(env.sessionCookie(t, p))
	rr := env.do(req)
	if rr.Code != http.StatusSeeOther || rr.Header().Get("Location") != "/setup/" {
		t.Errorf("dashboard = %d %q, want redirect to /setup/", rr.Code, rr.Header().Get("Location"))
	}
}

func TestAddTransactionPage(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000003", core.NewMoney(3000, 0))
	session := env.sessionCookie(t, p)

	tests := []struct {
		name  string
		form  url.Values
		kind  flashKind
		flash string
	}{
		{
			name:  "missing fields",
			form:  url.Values{"description": {""}, "amount": {"10"}},
			kind:  flashError,
			flash: "Please fill all fields",
		},
		{
			name:  "bad amount",
			form:  url.Values{"description": {"Rent"}, "amount": {"ten"}},
			kind:  flashError,
			flash: "Please enter a valid amount",
		},
		{
			name:  "added",
			form:  url.Values{"description": {"Rent"}, "amount": {"1000"}, "category": {"needs"}},
			kind:  flashSuccess,
			flash: "Transaction added!",
		},
		{
			name:  "over balance",
			form:  url.Values{"description": {"Car"}, "amount": {"5000"}, "category": {"wants"}},
			kind:  flashError,
			flash: "Insufficient balance!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.form.Set("year", "2026")
			tt.form.Set("month", "3")
			rr := env.do(formRequest(http.MethodPost, "/transaction/add/", tt.form, session))
			if rr.Code != http.StatusSeeOther {
				t.Fatalf("status = %d", rr.Code)
			}
			if got := rr.Header().Get("Location"); got != "/dashboard/?year=2026&month=3" {
				t.Errorf("Location = %q", got)
			}
			if !hasFlash(flashesOf(rr), tt.kind, tt.flash) {
				t.Errorf("flashes = %v, want %s %q", flashesOf(rr), tt.kind, tt.flash)
			}
		})
	}

	txs, err := env.store.ListTransactions(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("stored %d transactions, want 1", len(txs))
	}
	if txs[0].Date.String() != "2026-03-15" || txs[0].Amount.Cents != 100000 {
		t.Errorf("stored %+v", txs[0])
	}

	req := httptest.NewRequest(http.MethodGet, "/dashboard/?year=2026&month=3", nil)
	req.AddCookie(session)
	rr := env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "March 2026") || !strings.Contains(body, "Rent") {
		t.Errorf("dashboard misses month or transaction")
	}
	if rr.Header().Get("Cache-Control") == "" {
		t.Errorf("dashboard must not be cacheable")
	}
}

func TestAddTransactionPageRejectsMalformedForm(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000013", core.NewMoney(3000, 0))

	req := httptest.NewRequest(http.MethodPost, "/transaction/add/?year=2026&month=2", strings.NewReader("description=Rent&amount=%zz"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(env.sessionCookie(t, p))
	rr := env.do(req)

	if rr.Code != http.StatusSeeOther {
		t.Fatalf("status = %d", rr.Code)
	}
	if got := rr.Header().Get("Location"); got != "/dashboard/?year=2026&month=2" {
		t.Errorf("Location = %q", got)
	}
	if !hasFlash(flashesOf(rr), flashError, "Please fill all fields") {
		t.Errorf("flashes = %v", flashesOf(rr))
	}
	txs, err := env.store.ListTransactions(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(txs) != 0 {
		t.Errorf("stored %d transactions from a malformed form", len(txs))
	}
}

func TestEditAndDeleteTransactionPage(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000004", core.NewMoney(2000, 0))
	session := env.sessionCookie(t, p)

	rr := env.do(formRequest(http.MethodPost, "/transaction/add/",
		url.Values{"description": {"Food"}, "amount": {"100"}, "category": {"needs"}}, session))
	if !hasFlash(flashesOf(rr), flashSuccess, "Transaction added!") {
		t.Fatalf("add flashes = %v", flashesOf(rr))
	}
	txs, _ := env.store.ListTransactions(context.Background(), p.ID)
	id := strconv.FormatInt(txs[0].ID, 10)

	rr = env.do(formRequest(http.MethodPost, "/transaction/add/",
		url.Values{"tx_id": {id}, "description": {"Groceries"}, "amount": {"120.50"}, "category": {"needs"}}, session))
	if !hasFlash(flashesOf(rr), flashSuccess, "Transaction updated!") {
		t.Fatalf("edit flashes = %v", flashesOf(rr))
	}
	tx, err := env.store.GetTransaction(context.Background(), p.ID, txs[0].ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if tx.Description != "Groceries" || tx.Amount.Cents != 12050 {
		t.Errorf("edited = %+v", tx)
	}

	rr = env.do(formRequest(http.MethodPost, "/transaction/delete/"+id+"/", url.Values{}, session))
	if !hasFlash(flashesOf(rr), flashSuccess, "Transaction deleted!") {
		t.Fatalf("delete flashes = %v", flashesOf(rr))
	}
	rr = env.do(formRequest(http.MethodPost, "/transaction/delete/"+id+"/", url.Values{}, session))
	if !hasFlash(flashesOf(rr), flashError, "Transaction not found") {
		t.Errorf("second delete flashes = %v", flashesOf(rr))
	}
}

func TestAPIRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, nil)

	rr := env.do(jsonRequest(http.MethodPost, "/api/auth/register/", `{"phone":"5559876543","pin":"123456","name":"Ana"}`, ""))
	if rr.Code != http.StatusCreated {
		t.Fatalf("register = %d %s", rr.Code, rr.Body.String())
	}
	body := decodeBody(t, rr)
	tokens := body["tokens"].(map[string]interface{})
	if tokens["access"] == "" || tokens["refresh"] == "" {
		t.Fatalf("tokens = %v", tokens)
	}
	if body["is_new_user"] != true {
		t.Errorf("is_new_user = %v", body["is_new_user"])
	}

	rr = env.do(jsonRequest(http.MethodGet, "/api/user/profile/", "", "Bearer "+tokens["access"].(string)))
	if rr.Code != http.StatusOK {
		t.Fatalf("profile = %d", rr.Code)
	}
	profile := decodeBody(t, rr)
	if profile["name"] != "Ana" || profile["rule_needs"] != float64(50) || profile["theme"] != "light" {
		t.Errorf("profile = %v", profile)
	}

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		err    string
	}{
		{"duplicate", "/api/auth/register/", `{"phone":"5559876543","pin":"123456"}`, http.StatusBadRequest, "User already exists"},
		{"short pin", "/api/auth/register/", `{"phone":"5550001111","pin":"1234"}`, http.StatusBadRequest, "PIN must be 6 digits"},
		{"missing pin", "/api/auth/register/", `{"phone":"5550001111"}`, http.StatusBadRequest, "Phone and PIN required"},
		{"wrong pin", "/api/auth/login-pin/", `{"phone":"5559876543","pin":"000000"}`, http.StatusUnauthorized, "Invalid PIN"},
		{"unknown user", "/api/auth/login-pin/", `{"phone":"5550002222","pin":"123456"}`, http.StatusNotFound, "User not found"},
		{"malformed", "/api/auth/login-pin/", `{"phone":`, http.StatusBadRequest, ""},
		{"no refresh", "/api/token/refresh/", `{}`, http.StatusBadRequest, "Refresh token required"},
		{"bad refresh", "/api/token/refresh/", `{"refresh":"garbage"}`, http.StatusUnauthorized, "Invalid or expired token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := env.do(jsonRequest(http.MethodPost, tt.path, tt.body, ""))
			if rr.Code != tt.status {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tt.status, rr.Body.String())
			}
			if tt.err != "" {
				if got := decodeBody(t, rr)["error"]; got != tt.err {
					t.Errorf("error = %v, want %q", got, tt.err)
				}
			}
		})
	}

	rr = env.do(jsonRequest(http.MethodPost, "/api/auth/login-pin/", `{"phone":"5559876543","pin":"123456"}`, ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("login = %d", rr.Code)
	}
	if _, ok := decodeBody(t, rr)["is_new_user"]; ok {
		t.Errorf("login must not report is_new_user")
	}

	rr = env.do(jsonRequest(http.MethodPost, "/api/token/refresh/", `{"refresh":"`+tokens["refresh"].(string)+`"}`, ""))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["access"] == "" {
		t.Errorf("refresh = %d %s", rr.Code, rr.Body.String())
	}
}

func TestAPITransactions(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000005", core.NewMoney(2000, 0))
	token := env.bearer(t, p)

	rr := env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"description":"Groceries","amount":"150.50","category":"needs"}`, token))
	if rr.Code != http.StatusCreated {
		t.Fatalf("create = %d %s", rr.Code, rr.Body.String())
	}
	created := decodeBody(t, rr)
	if created["amount"] != 150.5 || created["date"] != "2026-03-15" || created["category"] != "needs" {
		t.Errorf("created = %v", created)
	}
	id := strconv.FormatInt(int64(created["id"].(float64)), 10)

	rr = env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"description":"Boat","amount":5000,"category":"wants"}`, token))
	if rr.Code != http.StatusBadRequest || !strings.Contains(decodeBody(t, rr)["error"].(string), "Insufficient balance!") {
		t.Errorf("over balance = %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"amount":10}`, token))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("missing description = %d", rr.Code)
	}

	rr = env.do(jsonRequest(http.MethodPatch, "/api/transactions/"+id+"/", `{"amount":100}`, token))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["amount"] != float64(100) {
		t.Errorf("patch = %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(jsonRequest(http.MethodGet, "/api/transactions/", "", token))
	var list []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("list = %s (%v)", rr.Body.String(), err)
	}

	rr = env.do(jsonRequest(http.MethodGet, "/api/dashboard/?year=2026&month=3", "", token))
	if rr.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", rr.Code)
	}
	dash := decodeBody(t, rr)
	if dash["total_spent"] != float64(100) || dash["balance"] != float64(1900) {
		t.Errorf("dashboard totals = %v / %v", dash["total_spent"], dash["balance"])
	}
	limits := dash["limits"].(map[string]interface{})
	if limits["needs"] != float64(1000) {
		t.Errorf("needs limit = %v", limits["needs"])
	}
	current := dash["current_date"].(map[string]interface{})
	if current["year"] != float64(2026) || current["month"] != float64(3) {
		t.Errorf("current_date = %v", current)
	}

	rr = env.do(jsonRequest(http.MethodDelete, "/api/transactions/"+id+"/", "", token))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("delete = %d", rr.Code)
	}
	rr = env.do(jsonRequest(http.MethodGet, "/api/transactions/"+id+"/", "", token))
	if rr.Code != http.StatusNotFound || decodeBody(t, rr)["error"] != "Transaction not found" {
		t.Errorf("get deleted = %d %s", rr.Code, rr.Body.String())
	}

	// Another user cannot see the first user's transactions.
	other := env.bearer(t, env.user(t, "5550000006", core.NewMoney(100, 0)))
	rr = env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"description":"Tea","amount":1,"category":"wants"}`, token))
	mine := strconv.FormatInt(int64(decodeBody(t, rr)["id"].(float64)), 10)
	rr = env.do(jsonRequest(http.MethodGet, "/api/transactions/"+mine+"/", "", other))
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign transaction = %d", rr.Code)
	}
}

func TestReorder(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000007", core.NewMoney(2000, 0))
	token := env.bearer(t, p)

	var ids []string
	for _, d := range []string{"A", "B"} {
		rr := env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"description":"`+d+`","amount":1,"category":"needs"}`, token))
		ids = append(ids, strconv.FormatInt(int64(decodeBody(t, rr)["id"].(float64)), 10))
	}

	req := jsonRequest(http.MethodPost, "/transaction/reorder/", `{"order":[`+ids[0]+`,`+ids[1]+`]}`, "")
	req.AddCookie(env.sessionCookie(t, p))
	rr := env.do(req)
	if rr.Code != http.StatusOK || decodeBody(t, rr)["success"] != true {
		t.Fatalf("reorder = %d %s", rr.Code, rr.Body.String())
	}

	rr = env.do(jsonRequest(http.MethodGet, "/api/transactions/", "", token))
	var list []map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 2 {
		t.Fatalf("list = %s", rr.Body.String())
	}
	if list[0]["description"] != "A" || list[1]["description"] != "B" {
		t.Errorf("order = %v, %v", list[0]["description"], list[1]["description"])
	}

	rr = env.do(jsonRequest(http.MethodPost, "/api/transactions/reorder/", `{"order":[]}`, token))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("empty order = %d", rr.Code)
	}
}

func TestToggleThemeRedirectsBack(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000008", core.NewMoney(100, 0))

	tests := []struct {
		referer string
		want    string
	}{
		{"http://example.com/history/?year=2025", "/history/?year=2025"},
		{"http://evil.test/steal/", "/dashboard/"},
		{"", "/dashboard/"},
	}
	for _, tt := range tests {
		req := formRequest(http.MethodPost, "/toggle-theme/", url.Values{}, env.sessionCookie(t, p))
		if tt.referer != "" {
			req.Header.Set("Referer", tt.referer)
		}
		rr := env.do(req)
		if got := rr.Header().Get("Location"); got != tt.want {
			t.Errorf("referer %q: Location = %q, want %q", tt.referer, got, tt.want)
		}
	}

	got, err := env.auth.Profile(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("Profile: %v", err)
	}
	if got.Theme != core.ThemeDark {
		t.Errorf("theme after three toggles = %q, want dark", got.Theme)
	}

	rr := env.do(jsonRequest(http.MethodPost, "/api/settings/toggle-theme/", "", env.bearer(t, p)))
	if rr.Code != http.StatusOK || decodeBody(t, rr)["theme"] != "light" {
		t.Errorf("api toggle = %d %s", rr.Code, rr.Body.String())
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000009", core.NewMoney(2000, 0))
	token := env.bearer(t, p)

	env.do(jsonRequest(http.MethodPost, "/api/transactions/", `{"description":"Rent","amount":700,"category":"needs"}`, token))

	rr := env.do(jsonRequest(http.MethodGet, "/api/export/", "", token))
	if rr.Code != http.StatusOK {
		t.Fatalf("export = %d", rr.Code)
	}
	if !strings.Contains(rr.Header().Get("Content-Disposition"), services.BackupFileName) {
		t.Errorf("Content-Disposition = %q", rr.Header().Get("Content-Disposition"))
	}
	backup := rr.Body.Bytes()

	env.do(jsonRequest(http.MethodPost, "/api/settings/reset/", "", token))
	txs, _ := env.store.ListTransactions(context.Background(), p.ID)
	if len(txs) != 0 {
		t.Fatalf("reset left %d transactions", len(txs))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/import/", bytes.NewReader(backup))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", token)
	rr = env.do(req)
	if rr.Code != http.StatusOK {
		t.Fatalf("import = %d %s", rr.Code, rr.Body.String())
	}
	if got := decodeBody(t, rr)["count"]; got != float64(1) {
		t.Errorf("count = %v", got)
	}

	rr = env.do(jsonRequest(http.MethodPost, "/api/import/", `{"txs":"nope"}`, token))
	if rr.Code != http.StatusBadRequest {
		t.Errorf("bad backup = %d", rr.Code)
	}
}

func TestSavingsChartIsCached(t *testing.T) {
	env := newTestEnv(t, nil)
	p := env.user(t, "5550000010", core.NewMoney(2000, 0))
	session := env.sessionCookie(t, p)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/savings/chart.png?year=2026", nil)
		req.AddCookie(session)
		rr := env.do(req)
		if rr.Code != http.StatusOK {
			t.Fatalf("chart = %d", rr.Code)
		}
		if rr.Header().Get("Content-Type") != "image/png" {
			t.Errorf("Content-Type = %q", rr.Header().Get("Content-Type"))
		}
		if !bytes.HasPrefix(rr.Body.Bytes(), []byte("\x89PNG")) {
			t.Fatalf("body is not a PNG")
		}
	}
	if n := env.charts.Size(); n != 1 {
		t.Errorf("cached charts = %d, want 1", n)
	}
}

func TestWritesAreRateLimited(t *testing.T) {
	env := newTestEnv(t, ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: 2, CleanupInterval: time.Minute}))

	var last int
	for i := 0; i < 3; i++ {
		rr := env.do(jsonRequest(http.MethodPost, "/api/auth/check-status/", `{"phone":"5551112222"}`, ""))
		last = rr.Code
	}
	if last != http.StatusTooManyRequests {
		t.Errorf("third write = %d, want 429", last)
	}

	// Reads are not limited.
	rr := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Errorf("read after limit = %d", rr.Code)
	}

	var buf bytes.Buffer
	env.srv.logger = log.New(log.Config{Output: &buf})
	env.srv.LogStats(context.Background())
	for _, want := range []string{"requests_total=4", "rate_limited=1", "rate_limit_clients=1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("stats log %q misses %s", buf.String(), want)
		}
	}
}
