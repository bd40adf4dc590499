// Package redisotp stores one-time passcodes in Redis, letting key expiry
// drop stale codes.
package redisotp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"wealthplanner/internal/core"
	"wealthplanner/internal/storage"
)

const keyOTP = "wealthplanner:otp:%s"

// retention keeps codes around past validity so an expired code still reads
// as expired rather than missing.
const retention = 3 * core.OTPValidity

type Store struct {
	client *redis.Client
}

func New(client *redis.Client) *Store {
	return &Store{client: client}
}

// Dial connects to addr and checks the connection.
func Dial(ctx context.Context, addr, password string, db int) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return New(client), nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

type record struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	Verified  bool      `json:"verified"`
}

func key(phone string) string {
	return fmt.Sprintf(keyOTP, phone)
}

// SaveOTP overwrites any previous code for the phone.
func (s *Store) SaveOTP(ctx context.Context, o core.OTP) error {
	data, err := json.Marshal(record{Code: o.Code, CreatedAt: o.CreatedAt, Verified: o.Verified})
	if err != nil {
		return fmt.Errorf("encode otp: %w", err)
	}
	if err := s.client.Set(ctx, key(o.Phone), data, retention).Err(); err != nil {
		return fmt.Errorf("failed to store OTP in Redis: %w", err)
	}
	return nil
}

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (s *Store) get(ctx context.Context, c getter, phone string) (record, error) {
	raw, err := c.Get(ctx, key(phone)).Bytes()
	if errors.Is(err, redis.Nil) {
		return record{}, storage.ErrNotFound
	}
	if err != nil {
		return record{}, err
	}
	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return record{}, fmt.Errorf("decode otp: %w", err)
	}
	return rec, nil
}

func (s *Store) LatestOTP(ctx context.Context, phone string) (core.OTP, error) {
	rec, err := s.get(ctx, s.client, phone)
	if err != nil {
		return core.OTP{}, fmt.Errorf("latest otp: %w", err)
	}
	return core.OTP{Phone: phone, Code: rec.Code, CreatedAt: rec.CreatedAt, Verified: rec.Verified}, nil
}

// MarkOTPVerified flips the verified flag under WATCH so a code is redeemed once.
func (s *Store) MarkOTPVerified(ctx context.Context, phone, code string) error {
	k := key(phone)
	err := s.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := s.get(ctx, tx, phone)
		if err != nil {
			return err
		}
		if rec.Code != code || rec.Verified {
			return storage.ErrNotFound
		}
		rec.Verified = true
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, k, data, redis.KeepTTL)
			return nil
		})
		return err
	}, k)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	return nil
}

// PurgeOTPs is a no-op: Redis expires codes on its own.
func (s *Store) PurgeOTPs(context.Context, time.Time) (int64, error) {
	return 0, nil
}
