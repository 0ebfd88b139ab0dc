package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/google/uuid"
)

const userColumns = `id, email, name, phone, address, city, state, pincode, password, role,
	farm_details, status, verified, verification_token, verification_expires,
	reset_token, reset_expires, login_attempts, last_failed_login, lock_until,
	last_login, devices, oauth2, provider, created, updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*db.User, error) {
	var (
		u                                                  db.User
		role, status                                       string
		farmDetails, devices                               []byte
		verExp, resetExp, lastFailed, lockUntil, lastLogin sql.NullTime
	)

	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.Phone, &u.Address, &u.City, &u.State, &u.Pincode,
		&u.Password, &role, &farmDetails, &status, &u.Verified, &u.VerificationToken,
		&verExp, &u.ResetToken, &resetExp, &u.LoginAttempts, &lastFailed, &lockUntil,
		&lastLogin, &devices, &u.Oauth2, &u.Provider, &u.Created, &u.Updated,
	)
	if err != nil {
		return nil, err
	}

	u.Role = db.Role(role)
	u.Status = db.Status(status)
	u.VerificationExpires = fromNullTime(verExp)
	u.ResetExpires = fromNullTime(resetExp)
	u.LastFailedLogin = fromNullTime(lastFailed)
	u.LockUntil = fromNullTime(lockUntil)
	u.LastLogin = fromNullTime(lastLogin)
	u.Created = u.Created.UTC()
	u.Updated = u.Updated.UTC()

	if len(farmDetails) > 0 {
		u.FarmDetails = &db.FarmDetails{}
		if err := json.Unmarshal(farmDetails, u.FarmDetails); err != nil {
			return nil, fmt.Errorf("decode farm_details: %w", err)
		}
	}
	if len(devices) > 0 {
		if err := json.Unmarshal(devices, &u.Devices); err != nil {
			return nil, fmt.Errorf("decode devices: %w", err)
		}
	}
	return &u, nil
}

func (d *Db) CreateUser(ctx context.Context, user db.User) (*db.User, error) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.Role == "" {
		user.Role = db.RoleConsumer
	}
	if user.Status == "" {
		user.Status = db.StatusActive
	}

	var farmDetails any
	if user.FarmDetails != nil {
		b, err := json.Marshal(user.FarmDetails)
		if err != nil {
			return nil, fmt.Errorf("encode farm details: %w", err)
		}
		farmDetails = string(b)
	}
	if user.Devices == nil {
		user.Devices = []string{}
	}
	devices, err := json.Marshal(user.Devices)
	if err != nil {
		return nil, fmt.Errorf("encode devices: %w", err)
	}
	now := d.now().UTC()

	query := `INSERT INTO users (id, email, name, phone, address, city, state, pincode, password, role,
			farm_details, status, verified, verification_token, verification_expires,
			devices, oauth2, provider, created, updated)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING ` + userColumns

	created, err := scanUser(d.db.QueryRowContext(ctx, query,
		user.ID,
		strings.ToLower(strings.TrimSpace(user.Email)),
		user.Name,
		user.Phone,
		user.Address,
		user.City,
		user.State,
		user.Pincode,
		user.Password,
		string(user.Role),
		farmDetails,
		string(user.Status),
		user.Verified,
		user.VerificationToken,
		nullTime(user.VerificationExpires),
		string(devices),
		user.Oauth2,
		user.Provider,
		now,
		now,
	))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, db.ErrConstraintUnique
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

func (d *Db) getUser(ctx context.Context, query string, args ...any) (*db.User, error) {
	u, err := scanUser(d.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrUserNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return u, nil
}

func (d *Db) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	return d.getUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = $1`,
		strings.ToLower(strings.TrimSpace(email)))
}

func (d *Db) GetUserById(ctx context.Context, id string) (*db.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, db.ErrUserNotFound
	}
	return d.getUser(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (d *Db) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}

// UpdateLoginState is a compare-and-swap on login_attempts.
func (d *Db) UpdateLoginState(ctx context.Context, userId string, expectedAttempts int, next db.LoginState) (bool, error) {
	n, err := d.exec(ctx,
		`UPDATE users
		SET login_attempts = $1, last_failed_login = $2, lock_until = $3, updated = $4
		WHERE id = $5 AND login_attempts = $6`,
		next.Attempts, nullTime(next.LastFailed), nullTime(next.LockUntil), d.now().UTC(), userId, expectedAttempts)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (d *Db) RecordLogin(ctx context.Context, userId string, at time.Time, devices []string) error {
	if devices == nil {
		devices = []string{}
	}
	b, err := json.Marshal(devices)
	if err != nil {
		return fmt.Errorf("encode devices: %w", err)
	}
	n, err := d.exec(ctx,
		`UPDATE users SET last_login = $1, devices = $2, updated = $3 WHERE id = $4`,
		at.UTC(), string(b), d.now().UTC(), userId)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrUserNotFound
	}
	return nil
}

func (d *Db) SetVerificationToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	n, err := d.exec(ctx,
		`UPDATE users SET verification_token = $1, verification_expires = $2, updated = $3 WHERE id = $4`,
		tokenHash, expires.UTC(), d.now().UTC(), userId)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrUserNotFound
	}
	return nil
}

func (d *Db) VerifyEmail(ctx context.Context, tokenHash string, now time.Time) (*db.User, error) {
	if tokenHash == "" {
		return nil, db.ErrTokenNotFound
	}
	u, err := d.getUser(ctx,
		`UPDATE users
		SET verified = TRUE, verification_token = '', verification_expires = NULL, updated = $1
		WHERE verification_token = $2 AND verification_expires > $3
		RETURNING `+userColumns,
		d.now().UTC(), tokenHash, now.UTC())
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, db.ErrTokenNotFound
	}
	return u, err
}

func (d *Db) SetResetToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	n, err := d.exec(ctx,
		`UPDATE users SET reset_token = $1, reset_expires = $2, updated = $3 WHERE id = $4`,
		tokenHash, expires.UTC(), d.now().UTC(), userId)
	if err != nil {
		return err
	}
	if n == 0 {
		return db.ErrUserNotFound
	}
	return nil
}

func (d *Db) ResetPassword(ctx context.Context, tokenHash, passwordHash string, now time.Time) (*db.User, error) {
	if tokenHash == "" {
		return nil, db.ErrTokenNotFound
	}
	u, err := d.getUser(ctx,
		`UPDATE users
		SET password = $1, reset_token = '', reset_expires = NULL,
			login_attempts = 0, last_failed_login = NULL, lock_until = NULL, updated = $2
		WHERE reset_token = $3 AND reset_expires > $4
		RETURNING `+userColumns,
		passwordHash, d.now().UTC(), tokenHash, now.UTC())
	if errors.Is(err, db.ErrUserNotFound) {
		return nil, db.ErrTokenNotFound
	}
	return u, err
}
