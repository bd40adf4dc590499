package http

import (
	"errors"
	"net/http"

	"wealthplanner/internal/core"
	"wealthplanner/internal/log"
	"wealthplanner/internal/services"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessionClaims(r); ok {
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login.html", view{Title: "Login"})
}

// handleCheckUser sends known users with a PIN to the PIN step and everybody
// else through a one-time code.
func (s *Server) handleCheckUser(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	phone := sanitizeInput(r.PostFormValue("phone"))
	status, err := s.auth.CheckStatus(ctx, phone)
	if errors.Is(err, core.ErrInvalidPhone) {
		s.flash(w, r, failure("Please enter a valid phone number"))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.rememberPhone(w, phone); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if status.Exists && status.PINSet {
		http.Redirect(w, r, "/login-pin/", http.StatusSeeOther)
		return
	}
	if err := s.auth.SendOTP(ctx, phone); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/verify-otp/", http.StatusSeeOther)
}

func (s *Server) handleLoginPINPage(w http.ResponseWriter, r *http.Request) {
	phone := s.pendingPhone(r)
	if phone == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "login_pin.html", view{Title: "Enter PIN", Data: struct{ Phone string }{phone}})
}

func (s *Server) handleLoginPIN(w http.ResponseWriter, r *http.Request) {
	phone := s.pendingPhone(r)
	if phone == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.LoginPIN(ctx, phone, sanitizeInput(r.PostFormValue("pin")))
	switch {
	case errors.Is(err, services.ErrNotFound):
		s.clearCookie(w, pendingCookie)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, services.ErrInvalidCredentials):
		s.flash(w, r, failure("Invalid PIN"))
		http.Redirect(w, r, "/login-pin/", http.StatusSeeOther)
		return
	case err != nil:
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/login-pin/", http.StatusSeeOther)
		return
	}

	if err := s.startSession(w, p.ID, p.Phone); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.clearCookie(w, pendingCookie)
	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "User logged in", log.FieldUserID, p.ID)
	s.flash(w, r, success("Welcome back, "+p.DisplayName()+"!"))
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

// handleSendOTP (re)issues a code for the pending phone. A direct POST may
// carry the phone itself.
func (s *Server) handleSendOTP(w http.ResponseWriter, r *http.Request) {
	phone := s.pendingPhone(r)
	if phone == "" && r.Method == http.MethodPost {
		phone = sanitizeInput(r.PostFormValue("phone"))
	}
	if phone == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	if err := s.auth.SendOTP(ctx, phone); err != nil {
		msg := userMessage(r, err)
		if errors.Is(err, core.ErrInvalidPhone) {
			msg = "Please enter a valid phone number"
		}
		s.flash(w, r, failure(msg))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if err := s.rememberPhone(w, phone); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.flash(w, r, info("OTP sent successfully"))
	http.Redirect(w, r, "/verify-otp/", http.StatusSeeOther)
}

func (s *Server) handleVerifyOTPPage(w http.ResponseWriter, r *http.Request) {
	phone := s.pendingPhone(r)
	if phone == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "verify_otp.html", view{Title: "Verify OTP", Data: struct{ Phone string }{phone}})
}

func (s *Server) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	phone := s.pendingPhone(r)
	if phone == "" {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	v, err := s.auth.VerifyOTP(ctx, phone, sanitizeInput(r.PostFormValue("otp")))
	switch {
	case errors.Is(err, services.ErrOTPNotFound):
		s.flash(w, r, failure(services.ErrOTPNotFound.Error()))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	case errors.Is(err, services.ErrOTPInvalid):
		s.flash(w, r, failure("Invalid or expired OTP. Please try again."))
		http.Redirect(w, r, "/verify-otp/", http.StatusSeeOther)
		return
	case err != nil:
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/verify-otp/", http.StatusSeeOther)
		return
	}

	if err := s.startSession(w, v.Profile.ID, v.Profile.Phone); err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.clearCookie(w, pendingCookie)
	log.FromContext(ctx).WithComponent(log.ComponentAuth).InfoContext(ctx, "Phone verified",
		log.FieldUserID, v.Profile.ID, "new_user", v.IsNew)

	if !v.Profile.PINSet() {
		http.Redirect(w, r, "/create-pin/", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

func (s *Server) handleCreatePINPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.Profile(ctx, userID(ctx))
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	s.render(w, r, "create_pin.html", view{
		Title:   "Create PIN",
		Profile: &p,
		Data:    struct{ HasName bool }{!p.NeedsSetup()},
	})
}

func (s *Server) handleCreatePIN(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.CreatePIN(ctx, userID(ctx),
		sanitizeInput(r.PostFormValue("name")),
		sanitizeInput(r.PostFormValue("pin")),
		sanitizeInput(r.PostFormValue("confirm_pin")))
	if errors.Is(err, services.ErrNotFound) {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	if err != nil {
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/create-pin/", http.StatusSeeOther)
		return
	}

	if p.Income.IsZero() {
		s.flash(w, r, success("Setup completed successfully!"), info("Please set up your preferences."))
		http.Redirect(w, r, "/settings/", http.StatusSeeOther)
		return
	}
	s.flash(w, r, success("Setup completed successfully!"))
	http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
}

func (s *Server) handleSetupPage(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	p, err := s.auth.Profile(ctx, userID(ctx))
	if err != nil {
		s.logoutOnMissingUser(w, r, err)
		return
	}
	if !p.NeedsSetup() {
		http.Redirect(w, r, "/dashboard/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "setup.html", view{Title: "Welcome", Profile: &p})
}

func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r.Context())
	defer cancel()

	name := sanitizeInput(r.PostFormValue("name"))
	p, err := s.auth.Setup(ctx, userID(ctx), services.SetupInput{Name: name})
	switch {
	case errors.Is(err, services.ErrNameRequired):
		s.flash(w, r, failure("Please enter your name."))
		http.Redirect(w, r, "/setup/", http.StatusSeeOther)
		return
	case errors.Is(err, services.ErrNotFound):
		s.logoutOnMissingUser(w, r, err)
		return
	case err != nil:
		s.flash(w, r, failure(userMessage(r, err)))
		http.Redirect(w, r, "/setup/", http.StatusSeeOther)
		return
	}
	s.flash(w, r, success("Welcome, "+p.Name+"! Set up your income to get started."))
	http.Redirect(w, r, "/settings/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, sessionCookie)
	s.clearCookie(w, pendingCookie)
	s.flash(w, r, success("Logged out successfully"))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handlePrivacy(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "privacy_policy.html", view{Title: "Privacy Policy"})
}

type deleteAccountPage struct {
	Submitted bool
}

func (s *Server) handleDeleteAccountPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, "delete_account.html", view{Title: "Delete Account", Data: deleteAccountPage{}})
}

// handleDeleteAccount records the request in the log; accounts are removed by hand.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	err := s.auth.RequestDeletion(r.Context(),
		sanitizeInput(r.PostFormValue("phone")),
		sanitizeInput(r.PostFormValue("reason")))
	if err != nil {
		s.flash(w, r, failure("Please enter a valid phone number"))
		http.Redirect(w, r, "/delete-account/", http.StatusSeeOther)
		return
	}
	s.render(w, r, "delete_account.html", view{Title: "Delete Account", Data: deleteAccountPage{Submitted: true}})
}

// logoutOnMissingUser ends a session whose user no longer exists. Other
// errors fail the request.
func (s *Server) logoutOnMissingUser(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, services.ErrNotFound) {
		s.clearCookie(w, sessionCookie)
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	http.Error(w, userMessage(r, err), http.StatusInternalServerError)
}
