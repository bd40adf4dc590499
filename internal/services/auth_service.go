package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"wealthplanner/internal/auth"
	"wealthplanner/internal/core"
	"wealthplanner/internal/storage"
)

// AuthService covers phone verification, PIN login and first-time setup.
type AuthService struct {
	store ProfileStore
	otps  OTPStore
	now   func() time.Time
}

func NewAuthService(store ProfileStore, otps OTPStore) *AuthService {
	return &AuthService{store: store, otps: otps, now: time.Now}
}

// WithClock replaces the time source used for code expiry.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

type (
	// Verification is the outcome of a redeemed code.
	Verification struct {
		Profile core.Profile
		IsNew   bool
	}

	// Status tells the login page which step comes next for a phone.
	Status struct {
		Exists bool `json:"exists"`
		PINSet bool `json:"pin_set"`
	}

	// SetupInput is the first-run profile form. Nil fields keep their value.
	SetupInput struct {
		Name     string
		Income   *core.Money
		Currency *string
		Rules    *core.BudgetRules
	}
)

func normalizePhone(phone string) (string, error) {
	phone = strings.TrimSpace(phone)
	if err := core.ValidatePhone(phone); err != nil {
		return "", err
	}
	return phone, nil
}

// SendOTP issues a fresh code for phone, replacing any earlier one. The code
// is written to the log; there is no SMS gateway.
func (s *AuthService) SendOTP(ctx context.Context, phone string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	code, err := auth.GenerateCode()
	if err != nil {
		return err
	}
	if err := s.otps.SaveOTP(ctx, core.OTP{Phone: phone, Code: code, CreatedAt: s.now()}); err != nil {
		return fmt.Errorf("send otp: %w", err)
	}
	slog.InfoContext(ctx, "OTP issued", "phone", phone, "otp", code)
	return nil
}

// VerifyOTP redeems the code and returns the user, creating it on first login.
func (s *AuthService) VerifyOTP(ctx context.Context, phone, code string) (Verification, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return Verification{}, err
	}
	otp, err := s.otps.LatestOTP(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return Verification{}, ErrOTPNotFound
	}
	if err != nil {
		return Verification{}, fmt.Errorf("verify otp: %w", err)
	}
	if !otp.IsValid(s.now()) || !otp.Matches(code) {
		return Verification{}, ErrOTPInvalid
	}
	if err := s.otps.MarkOTPVerified(ctx, phone, otp.Code); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Redeemed concurrently.
			return Verification{}, ErrOTPInvalid
		}
		return Verification{}, fmt.Errorf("verify otp: %w", err)
	}

	p, err := s.store.GetProfileByPhone(ctx, phone)
	if err == nil {
		return Verification{Profile: p}, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return Verification{}, fmt.Errorf("verify otp: %w", err)
	}
	p, err = s.store.CreateProfile(ctx, core.NewProfile(phone))
	if err != nil {
		return Verification{}, fmt.Errorf("verify otp: %w", err)
	}
	return Verification{Profile: p, IsNew: true}, nil
}

func (s *AuthService) CheckStatus(ctx context.Context, phone string) (Status, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return Status{}, err
	}
	p, err := s.store.GetProfileByPhone(ctx, phone)
	if errors.Is(err, storage.ErrNotFound) {
		return Status{}, nil
	}
	if err != nil {
		return Status{}, fmt.Errorf("check status: %w", err)
	}
	return Status{Exists: true, PINSet: p.PINSet()}, nil
}

// Register creates a user with a PIN, or sets the PIN of an existing user who
// has none yet.
func (s *AuthService) Register(ctx context.Context, phone, pin, name string) (core.Profile, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return core.Profile{}, err
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return core.Profile{}, err
	}
	name = strings.TrimSpace(name)

	p, err := s.store.GetProfileByPhone(ctx, phone)
	switch {
	case err == nil:
		if p.PINSet() {
			return core.Profile{}, ErrUserExists
		}
		p.PINHash = hash
		if name != "" {
			p.Name = name
		}
		if err := p.Validate(); err != nil {
			return core.Profile{}, err
		}
		if err := s.store.UpdateProfile(ctx, p); err != nil {
			return core.Profile{}, fmt.Errorf("register: %w", err)
		}
		return p, nil
	case errors.Is(err, storage.ErrNotFound):
		p = core.NewProfile(phone)
		p.Name = name
		p.PINHash = hash
		if err := p.Validate(); err != nil {
			return core.Profile{}, err
		}
		p, err = s.store.CreateProfile(ctx, p)
		if err != nil {
			return core.Profile{}, fmt.Errorf("register: %w", err)
		}
		return p, nil
	default:
		return core.Profile{}, fmt.Errorf("register: %w", err)
	}
}

// LoginPIN authenticates phone + PIN.
func (s *AuthService) LoginPIN(ctx context.Context, phone, pin string) (core.Profile, error) {
	phone, err := normalizePhone(phone)
	if err != nil {
		return core.Profile{}, err
	}
	p, err := s.store.GetProfileByPhone(ctx, phone)
	if err != nil {
		return core.Profile{}, notFound("login", err)
	}
	if err := auth.CheckPIN(p.PINHash, strings.TrimSpace(pin)); err != nil {
		slog.WarnContext(ctx, "PIN login failed", "user_id", p.ID)
		return core.Profile{}, ErrInvalidCredentials
	}
	return p, nil
}

// CreatePIN sets the PIN of a verified user, and the name when one is given.
func (s *AuthService) CreatePIN(ctx context.Context, userID int64, name, pin, confirm string) (core.Profile, error) {
	if err := core.ValidatePIN(pin); err != nil {
		return core.Profile{}, err
	}
	if pin != confirm {
		return core.Profile{}, ErrPINMismatch
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("create pin", err)
	}
	hash, err := auth.HashPIN(pin)
	if err != nil {
		return core.Profile{}, err
	}
	p.PINHash = hash
	if name = strings.TrimSpace(name); name != "" {
		p.Name = name
	}
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("create pin: %w", err)
	}
	return p, nil
}

// Setup stores the name chosen on first login plus any optional settings.
func (s *AuthService) Setup(ctx context.Context, userID int64, in SetupInput) (core.Profile, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return core.Profile{}, ErrNameRequired
	}
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("setup", err)
	}
	p.Name = name
	if in.Income != nil {
		p.Income = *in.Income
	}
	if in.Currency != nil {
		p.Currency = strings.TrimSpace(*in.Currency)
	}
	if in.Rules != nil {
		p.Rules = *in.Rules
	}
	if err := p.Validate(); err != nil {
		return core.Profile{}, err
	}
	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return core.Profile{}, fmt.Errorf("setup: %w", err)
	}
	return p, nil
}

// Profile loads the user.
func (s *AuthService) Profile(ctx context.Context, userID int64) (core.Profile, error) {
	p, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return core.Profile{}, notFound("profile", err)
	}
	return p, nil
}

// RequestDeletion records an account deletion request. Nothing is deleted.
func (s *AuthService) RequestDeletion(ctx context.Context, phone, reason string) error {
	phone, err := normalizePhone(phone)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "Account deletion requested", "phone", phone, "reason", strings.TrimSpace(reason))
	return nil
}

// PurgeExpiredOTPs removes redeemed codes and codes issued before the validity window.
func (s *AuthService) PurgeExpiredOTPs(ctx context.Context) (int64, error) {
	n, err := s.otps.PurgeOTPs(ctx, s.now().Add(-core.OTPValidity))
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return n, nil
}
