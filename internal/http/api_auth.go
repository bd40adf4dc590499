package http

import (
	"errors"
	"net/http"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/log"
)

type authResponse struct {
	Tokens    auth.Tokens `json:"tokens"`
	User      userJSON    `json:"user"`
	IsNewUser *bool       `json:"is_new_user,omitempty"`
}

// parseBody reads a JSON or form body, answering 400 itself on failure.
func parseBody(w http.ResponseWriter, r *http.Request) (*RequestBodyParser, bool) {
	p := NewRequestBodyParser(r)
	if err := p.Parse(); err != nil {
		writeAPIError(w, r, err, "")
		return nil, false
	}
	return p, true
}

func (s *Server) apiSendOTP(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	phone := body.Get("phone")
	if phone == "" {
		BadRequestError("Phone number is required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()
	if err := s.auth.SendOTP(ctx, phone); err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	NewJSONResponse().Body(map[string]string{"message": "OTP sent successfully", "phone": phone}).Write(w)
}

func (s *Server) apiVerifyOTP(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	phone, code := body.Get("phone"), body.Get("otp")
	if phone == "" || code == "" {
		BadRequestError("Phone and OTP required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()
	v, err := s.auth.VerifyOTP(ctx, phone, code)
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	isNew := v.IsNew || v.Profile.NeedsSetup()
	s.writeTokens(w, r, http.StatusOK, v.Profile.ID, v.Profile.Phone, presentUser(v.Profile), &isNew)
}

func (s *Server) apiCheckStatus(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	phone := body.Get("phone")
	if phone == "" {
		BadRequestError("Phone number is required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()
	status, err := s.auth.CheckStatus(ctx, phone)
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	NewJSONResponse().Body(status).Write(w)
}

func (s *Server) apiRegister(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	phone, pin := body.Get("phone"), body.Get("pin")
	if phone == "" || pin == "" {
		BadRequestError("Phone and PIN required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()
	p, err := s.auth.Register(ctx, phone, pin, body.Get("name"))
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "User registered", log.FieldUserID, p.ID)
	isNew := true
	s.writeTokens(w, r, http.StatusCreated, p.ID, p.Phone, presentUser(p), &isNew)
}

func (s *Server) apiLoginPIN(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	phone, pin := body.Get("phone"), body.Get("pin")
	if phone == "" || pin == "" {
		BadRequestError("Phone and PIN required").Write(w)
		return
	}

	ctx, cancel := storeContext(r.Context())
	defer cancel()
	p, err := s.auth.LoginPIN(ctx, phone, pin)
	if err != nil {
		writeAPIError(w, r, err, "User not found")
		return
	}
	s.writeTokens(w, r, http.StatusOK, p.ID, p.Phone, presentUser(p), nil)
}

func (s *Server) apiRefresh(w http.ResponseWriter, r *http.Request) {
	body, ok := parseBody(w, r)
	if !ok {
		return
	}
	refresh := body.Get("refresh")
	if refresh == "" {
		BadRequestError("Refresh token required").Write(w)
		return
	}
	tokens, err := s.issuer.Refresh(refresh)
	if err != nil {
		if !errors.Is(err, auth.ErrInvalidToken) {
			err = auth.ErrInvalidToken
		}
		writeAPIError(w, r, err, "")
		return
	}
	NewJSONResponse().Body(tokens).Write(w)
}

func (s *Server) writeTokens(w http.ResponseWriter, r *http.Request, status int, uid int64, phone string, user userJSON, isNew *bool) {
	tokens, err := s.issuer.Pair(uid, phone)
	if err != nil {
		writeAPIError(w, r, err, "")
		return
	}
	NewJSONResponse().Status(status).Body(authResponse{Tokens: tokens, User: user, IsNewUser: isNew}).Write(w)
}
