package zombiezen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/caasmo/farmgate/db"
	"github.com/google/uuid"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

const userColumns = `id, email, name, phone, address, city, state, pincode, password, role,
	farm_details, status, verified, verification_token, verification_expires,
	reset_token, reset_expires, login_attempts, last_failed_login, lock_until,
	last_login, devices, oauth2, provider, created, updated`

// newUserFromStmt creates a User struct from a SQLite statement
func newUserFromStmt(stmt *sqlite.Stmt) (*db.User, error) {
	u := &db.User{
		ID:                stmt.GetText("id"),
		Email:             stmt.GetText("email"),
		Name:              stmt.GetText("name"),
		Phone:             stmt.GetText("phone"),
		Address:           stmt.GetText("address"),
		City:              stmt.GetText("city"),
		State:             stmt.GetText("state"),
		Pincode:           stmt.GetText("pincode"),
		Password:          stmt.GetText("password"),
		Role:              db.Role(stmt.GetText("role")),
		Status:            db.Status(stmt.GetText("status")),
		Verified:          stmt.GetInt64("verified") != 0,
		VerificationToken: stmt.GetText("verification_token"),
		ResetToken:        stmt.GetText("reset_token"),
		LoginAttempts:     int(stmt.GetInt64("login_attempts")),
		Oauth2:            stmt.GetInt64("oauth2") != 0,
		Provider:          stmt.GetText("provider"),
	}

	times := []struct {
		col string
		dst *time.Time
	}{
		{"verification_expires", &u.VerificationExpires},
		{"reset_expires", &u.ResetExpires},
		{"last_failed_login", &u.LastFailedLogin},
		{"lock_until", &u.LockUntil},
		{"last_login", &u.LastLogin},
		{"created", &u.Created},
		{"updated", &u.Updated},
	}
	for _, tc := range times {
		t, err := db.TimeParse(stmt.GetText(tc.col))
		if err != nil {
			return nil, fmt.Errorf("error parsing %s time: %w", tc.col, err)
		}
		*tc.dst = t
	}

	if fd := stmt.GetText("farm_details"); fd != "" {
		u.FarmDetails = &db.FarmDetails{}
		if err := json.Unmarshal([]byte(fd), u.FarmDetails); err != nil {
			return nil, fmt.Errorf("error decoding farm_details: %w", err)
		}
	}

	if dv := stmt.GetText("devices"); dv != "" {
		if err := json.Unmarshal([]byte(dv), &u.Devices); err != nil {
			return nil, fmt.Errorf("error decoding devices: %w", err)
		}
	}

	return u, nil
}

func encodeFarmDetails(fd *db.FarmDetails) (string, error) {
	if fd == nil {
		return "", nil
	}
	b, err := json.Marshal(fd)
	return string(b), err
}

func encodeDevices(devices []string) (string, error) {
	if devices == nil {
		devices = []string{}
	}
	b, err := json.Marshal(devices)
	return string(b), err
}

// selectOneUser runs a query returning at most one user row.
func (d *Db) selectOneUser(ctx context.Context, query string, args ...any) (*db.User, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get db connection: %w", err)
	}
	defer d.pool.Put(conn)

	var user *db.User
	err = sqlitex.Execute(conn, query, &sqlitex.ExecOptions{
		ResultFunc: func(stmt *sqlite.Stmt) error {
			var err error
			user, err = newUserFromStmt(stmt)
			return err
		},
		Args: args,
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new account. An empty ID is replaced by a new
// UUID. The email is stored lower-cased.
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

	farmDetails, err := encodeFarmDetails(user.FarmDetails)
	if err != nil {
		return nil, fmt.Errorf("failed to encode farm details: %w", err)
	}
	devices, err := encodeDevices(user.Devices)
	if err != nil {
		return nil, fmt.Errorf("failed to encode devices: %w", err)
	}
	now := db.TimeFormat(d.now())

	created, err := d.selectOneUser(ctx,
		`INSERT INTO users (id, email, name, phone, address, city, state, pincode, password, role,
			farm_details, status, verified, verification_token, verification_expires,
			devices, oauth2, provider, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING `+userColumns,
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
		db.NullableTime(user.VerificationExpires),
		devices,
		user.Oauth2,
		user.Provider,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, db.ErrConstraintUnique
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return created, nil
}

// GetUserByEmail retrieves a user by email address, case-insensitively.
// Returns db.ErrUserNotFound when no record matches.
func (d *Db) GetUserByEmail(ctx context.Context, email string) (*db.User, error) {
	user, err := d.selectOneUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	if user == nil {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

func (d *Db) GetUserById(ctx context.Context, id string) (*db.User, error) {
	user, err := d.selectOneUser(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	if user == nil {
		return nil, db.ErrUserNotFound
	}
	return user, nil
}

// exec runs a statement and returns the number of changed rows.
func (d *Db) exec(ctx context.Context, query string, args ...any) (int, error) {
	conn, err := d.pool.Take(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to get db connection: %w", err)
	}
	defer d.pool.Put(conn)

	if err := sqlitex.Execute(conn, query, &sqlitex.ExecOptions{Args: args}); err != nil {
		return 0, err
	}
	return conn.Changes(), nil
}

// UpdateLoginState is a compare-and-swap on login_attempts.
func (d *Db) UpdateLoginState(ctx context.Context, userId string, expectedAttempts int, next db.LoginState) (bool, error) {
	n, err := d.exec(ctx,
		`UPDATE users
		SET login_attempts = ?,
			last_failed_login = ?,
			lock_until = ?,
			updated = ?
		WHERE id = ? AND login_attempts = ?`,
		next.Attempts,
		db.NullableTime(next.LastFailed),
		db.NullableTime(next.LockUntil),
		db.TimeFormat(d.now()),
		userId,
		expectedAttempts,
	)
	if err != nil {
		return false, fmt.Errorf("failed to update login state: %w", err)
	}
	return n > 0, nil
}

func (d *Db) RecordLogin(ctx context.Context, userId string, at time.Time, devices []string) error {
	dv, err := encodeDevices(devices)
	if err != nil {
		return fmt.Errorf("failed to encode devices: %w", err)
	}
	n, err := d.exec(ctx,
		`UPDATE users SET last_login = ?, devices = ?, updated = ? WHERE id = ?`,
		db.TimeFormat(at), dv, db.TimeFormat(d.now()), userId)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	if n == 0 {
		return db.ErrUserNotFound
	}
	return nil
}

func (d *Db) SetVerificationToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	n, err := d.exec(ctx,
		`UPDATE users SET verification_token = ?, verification_expires = ?, updated = ? WHERE id = ?`,
		tokenHash, db.TimeFormat(expires), db.TimeFormat(d.now()), userId)
	if err != nil {
		return fmt.Errorf("failed to set verification token: %w", err)
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
	user, err := d.selectOneUser(ctx,
		`UPDATE users
		SET verified = 1,
			verification_token = '',
			verification_expires = '',
			updated = ?
		WHERE verification_token = ? AND verification_expires > ?
		RETURNING `+userColumns,
		db.TimeFormat(d.now()), tokenHash, db.TimeFormat(now))
	if err != nil {
		return nil, fmt.Errorf("failed to verify email: %w", err)
	}
	if user == nil {
		return nil, db.ErrTokenNotFound
	}
	return user, nil
}

func (d *Db) SetResetToken(ctx context.Context, userId, tokenHash string, expires time.Time) error {
	n, err := d.exec(ctx,
		`UPDATE users SET reset_token = ?, reset_expires = ?, updated = ? WHERE id = ?`,
		tokenHash, db.TimeFormat(expires), db.TimeFormat(d.now()), userId)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
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
	user, err := d.selectOneUser(ctx,
		`UPDATE users
		SET password = ?,
			reset_token = '',
			reset_expires = '',
			login_attempts = 0,
			last_failed_login = '',
			lock_until = '',
			updated = ?
		WHERE reset_token = ? AND reset_expires > ?
		RETURNING `+userColumns,
		passwordHash, db.TimeFormat(d.now()), tokenHash, db.TimeFormat(now))
	if err != nil {
		return nil, fmt.Errorf("failed to reset password: %w", err)
	}
	if user == nil {
		return nil, db.ErrTokenNotFound
	}
	return user, nil
}
