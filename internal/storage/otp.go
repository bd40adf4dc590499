package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"wealthplanner/internal/core"
)

// SaveOTP stores o as the only code for its phone.
func (r *SQLiteRepository) SaveOTP(ctx context.Context, o core.OTP) error {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM otps WHERE phone = ?`, o.Phone); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `INSERT INTO otps (phone, code, created_at, verified) VALUES (?, ?, ?, ?)`,
			o.Phone, o.Code, o.CreatedAt.UTC().Format(timeLayout), o.Verified)
		return err
	})
	if err != nil {
		return fmt.Errorf("save otp: %w", err)
	}
	return nil
}

// LatestOTP returns the newest code issued for phone.
func (r *SQLiteRepository) LatestOTP(ctx context.Context, phone string) (core.OTP, error) {
	var o core.OTP
	var created string
	err := r.db.QueryRowContext(ctx, `SELECT phone, code, created_at, verified FROM otps
		WHERE phone = ? ORDER BY created_at DESC, id DESC LIMIT 1`, phone).
		Scan(&o.Phone, &o.Code, &created, &o.Verified)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OTP{}, fmt.Errorf("latest otp: %w", ErrNotFound)
	}
	if err != nil {
		return core.OTP{}, fmt.Errorf("latest otp: %w", err)
	}
	if o.CreatedAt, err = parseStamp(created); err != nil {
		return core.OTP{}, fmt.Errorf("latest otp: %w", err)
	}
	return o, nil
}

// MarkOTPVerified burns the given code so it cannot be redeemed again.
func (r *SQLiteRepository) MarkOTPVerified(ctx context.Context, phone, code string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE otps SET verified = 1 WHERE phone = ? AND code = ? AND verified = 0`, phone, code)
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("verify otp: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("verify otp: %w", ErrNotFound)
	}
	return nil
}

// PurgeOTPs deletes codes that were used or issued before cutoff.
func (r *SQLiteRepository) PurgeOTPs(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM otps WHERE verified = 1 OR created_at < ?`, cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("purge otps: %w", err)
	}
	return res.RowsAffected()
}
