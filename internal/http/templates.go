package http

import (
	"bytes"
	"fmt"
	"html/template"
	"net/http"

	"github.com/shopspring/decimal"

	"wealthplanner/internal/core"
	"wealthplanner/internal/finance"
	"wealthplanner/internal/log"
	appweb "wealthplanner/web"
)

// pageNames are the templates rendered inside base.html.
var pageNames = []string{
	"login.html",
	"login_pin.html",
	"verify_otp.html",
	"create_pin.html",
	"setup.html",
	"privacy_policy.html",
	"delete_account.html",
	"dashboard.html",
	"transactions.html",
	"history.html",
	"advisor.html",
	"savings.html",
	"settings.html",
}

var templateFuncs = template.FuncMap{
	"money": func(m core.Money, currency string) string { return m.Format(currency) },
	"amount": func(d decimal.Decimal, currency string) string {
		return core.MoneyFromDecimal(d).Format(currency)
	},
	"pct":        func(d decimal.Decimal) string { return d.StringFixed(1) },
	"usage":      finance.UsagePercent,
	"icon":       finance.Icon,
	"categories": core.Categories,
	"currencies": func() []core.CurrencyOption { return core.Currencies },
	"monthURL":   monthURL,
	"monthNum":   func(p finance.Period) int { return int(p.Month) },
	"isExpense":  func(c core.Category) bool { return c.IsExpense() },
}

// loadPages parses each page together with the shared layout.
func loadPages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// view is what every page template receives.
type view struct {
	Title   string
	Active  string
	Profile *core.Profile
	Flashes []flashMessage
	Data    interface{}
}

// Theme is the page theme; logged-out pages are light.
func (v view) Theme() core.Theme {
	if v.Profile == nil || v.Profile.Theme == "" {
		return core.ThemeLight
	}
	return v.Profile.Theme
}

func (v view) Currency() string {
	if v.Profile == nil || v.Profile.Currency == "" {
		return core.DefaultCurrency
	}
	return v.Profile.Currency
}

// render executes the page into a buffer first so that a template failure
// still produces a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, v view) {
	t, ok := s.pages[name]
	if !ok {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Unknown template", "template", name)
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	v.Flashes = append(s.takeFlashes(w, r), v.Flashes...)

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", v); err != nil {
		log.FromContext(r.Context()).WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldOperation, log.OpRender, log.FieldError, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
