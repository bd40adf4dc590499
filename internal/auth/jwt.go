package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const issuer = "wealthplanner"

// PendingTTL bounds how long a phone awaiting OTP or PIN entry stays remembered.
const PendingTTL = 15 * time.Minute

var ErrInvalidToken = errors.New("invalid token")

// Kind separates tokens so one kind cannot be replayed as another.
type Kind string

const (
	KindAccess  Kind = "access"
	KindRefresh Kind = "refresh"
	KindSession Kind = "session"
	KindPending Kind = "pending"
)

type Claims struct {
	UserID int64  `json:"user_id,omitempty"`
	Phone  string `json:"phone"`
	Kind   Kind   `json:"kind"`
	jwt.RegisteredClaims
}

// Tokens is the access/refresh pair handed to API clients.
type Tokens struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

type Issuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	sessionTTL time.Duration
	now        func() time.Time
}

func NewIssuer(secret string, accessTTL, refreshTTL, sessionTTL time.Duration) *Issuer {
	return &Issuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

// WithClock replaces the time source, for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

func (i *Issuer) SessionTTL() time.Duration { return i.sessionTTL }

func (i *Issuer) sign(kind Kind, userID int64, phone string, ttl time.Duration) (string, error) {
	now := i.now()
	claims := Claims{
		UserID: userID,
		Phone:  phone,
		Kind:   kind,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign %s token: %w", kind, err)
	}
	return signed, nil
}

// Pair issues an access and a refresh token for the user.
func (i *Issuer) Pair(userID int64, phone string) (Tokens, error) {
	access, err := i.sign(KindAccess, userID, phone, i.accessTTL)
	if err != nil {
		return Tokens{}, err
	}
	refresh, err := i.sign(KindRefresh, userID, phone, i.refreshTTL)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{Access: access, Refresh: refresh}, nil
}

// Session issues the browser session cookie value.
func (i *Issuer) Session(userID int64, phone string) (string, error) {
	return i.sign(KindSession, userID, phone, i.sessionTTL)
}

// Pending remembers a phone number between the login steps.
func (i *Issuer) Pending(phone string) (string, error) {
	return i.sign(KindPending, 0, phone, PendingTTL)
}

// Parse verifies signature, expiry and kind.
func (i *Issuer) Parse(tokenString string, kind Kind) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Kind != kind {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *Issuer) Refresh(refresh string) (Tokens, error) {
	claims, err := i.Parse(refresh, KindRefresh)
	if err != nil {
		return Tokens{}, err
	}
	return i.Pair(claims.UserID, claims.Phone)
}
