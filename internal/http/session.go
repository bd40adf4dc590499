package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/log"
)

const (
	sessionCookie = "wp_session"
	pendingCookie = "wp_pending"
	flashCookie   = "wp_flash"
)

type contextKey int

const userIDKey contextKey = iota

func withUserID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, userIDKey, id)
}

// userID is the authenticated user of the request; zero outside the guarded routes.
func userID(ctx context.Context) int64 {
	id, _ := ctx.Value(userIDKey).(int64)
	return id
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *Server) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
}

// startSession logs the browser in as userID.
func (s *Server) startSession(w http.ResponseWriter, userID int64, phone string) error {
	token, err := s.issuer.Session(userID, phone)
	if err != nil {
		return err
	}
	s.setCookie(w, sessionCookie, token, s.issuer.SessionTTL())
	return nil
}

// sessionClaims returns the claims of a valid session cookie.
func (s *Server) sessionClaims(r *http.Request) (*auth.Claims, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil || c.Value == "" {
		return nil, false
	}
	claims, err := s.issuer.Parse(c.Value, auth.KindSession)
	if err != nil {
		return nil, false
	}
	return claims, true
}

// rememberPhone carries the phone number between the login steps.
func (s *Server) rememberPhone(w http.ResponseWriter, phone string) error {
	token, err := s.issuer.Pending(phone)
	if err != nil {
		return err
	}
	s.setCookie(w, pendingCookie, token, auth.PendingTTL)
	return nil
}

func (s *Server) pendingPhone(r *http.Request) string {
	c, err := r.Cookie(pendingCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	claims, err := s.issuer.Parse(c.Value, auth.KindPending)
	if err != nil {
		return ""
	}
	return claims.Phone
}

// requireSession guards the pages. Without a valid session the browser goes back to login.
func (s *Server) requireSession(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := s.sessionClaims(r)
		if !ok {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}
		ctx := withUserID(r.Context(), claims.UserID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UserID))
		next(w, r.WithContext(ctx))
	})
}

// requireBearer guards the API with an access token.
func (s *Server) requireBearer(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			UnauthorizedError("Authentication credentials were not provided").Write(w)
			return
		}
		claims, err := s.issuer.Parse(strings.TrimSpace(token), auth.KindAccess)
		if err != nil {
			UnauthorizedError("Invalid or expired token").Write(w)
			return
		}
		ctx := withUserID(r.Context(), claims.UserID)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, claims.UserID))
		next(w, r.WithContext(ctx))
	})
}

type flashKind string

const (
	flashSuccess flashKind = "success"
	flashError   flashKind = "error"
	flashInfo    flashKind = "info"
)

type flashMessage struct {
	Kind flashKind `json:"k"`
	Text string    `json:"t"`
}

func readFlashes(r *http.Request) []flashMessage {
	c, err := r.Cookie(flashCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msgs []flashMessage
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil
	}
	return msgs
}

// flash queues messages for the next rendered page. Messages not yet shown are kept.
func (s *Server) flash(w http.ResponseWriter, r *http.Request, msgs ...flashMessage) {
	all := append(readFlashes(r), msgs...)
	raw, err := json.Marshal(all)
	if err != nil {
		return
	}
	s.setCookie(w, flashCookie, base64.RawURLEncoding.EncodeToString(raw), 5*time.Minute)
}

// takeFlashes returns the queued messages and clears them.
func (s *Server) takeFlashes(w http.ResponseWriter, r *http.Request) []flashMessage {
	msgs := readFlashes(r)
	if len(msgs) > 0 {
		s.clearCookie(w, flashCookie)
	}
	return msgs
}

func success(text string) flashMessage { return flashMessage{Kind: flashSuccess, Text: text} }
func failure(text string) flashMessage { return flashMessage{Kind: flashError, Text: text} }
func info(text string) flashMessage    { return flashMessage{Kind: flashInfo, Text: text} }
