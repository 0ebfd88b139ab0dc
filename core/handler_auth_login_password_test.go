package core

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
	"github.com/caasmo/farmgate/db/mock"
)

func newLoginRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, RouteAuthPrefix+"/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "farmgate-test/1.0")
	return req
}

func TestLoginWithPasswordHandler_Validation(t *testing.T) {
	testCases := []struct {
		name     string
		body     string
		wantCode string
	}{
		{name: "malformed json", body: `{"email":`},
		{name: "missing password", body: `{"email":"a@example.com"}`},
		{name: "missing email", body: `{"password":"s3cretpass"}`},
		{name: "invalid email", body: `{"email":"not-an-email","password":"s3cretpass"}`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &MockAuth{
				AuthenticateFunc: func(ctx context.Context, email, password, device string) (*db.User, error) {
					t.Fatal("Authenticate must not be called")
					return nil, nil
				},
			}
			app := newTestApp(t, &mock.Db{}, nil, WithAuthenticator(auth))

			rr := httptest.NewRecorder()
			app.LoginWithPasswordHandler(rr, newLoginRequest(tc.body))

			assertResponse(t, rr, http.StatusBadRequest, CodeErrorInvalidRequest)
		})
	}
}

func TestLoginWithPasswordHandler_ContentType(t *testing.T) {
	validator := &MockValidator{
		ContentTypeFunc: func(r *http.Request, allowedType string) (jsonResponse, error) {
			if allowedType != MimeTypeJSON {
				t.Errorf("allowed type = %q", allowedType)
			}
			return errorInvalidContentType, errors.New("invalid content type")
		},
	}
	app := newTestApp(t, &mock.Db{}, nil, WithValidator(validator))

	rr := httptest.NewRecorder()
	app.LoginWithPasswordHandler(rr, newLoginRequest(`{"email":"a@example.com","password":"s3cretpass"}`))

	assertResponse(t, rr, http.StatusUnsupportedMediaType, CodeErrorInvalidContentType)
}

func TestLoginWithPasswordHandler_AuthErrors(t *testing.T) {
	until := time.Date(2026, 10, 18, 12, 30, 0, 0, time.UTC)

	testCases := []struct {
		name       string
		authErr    error
		wantStatus int
		wantCode   string
	}{
		{
			name:       "invalid credentials",
			authErr:    account.ErrInvalidCredentials,
			wantStatus: http.StatusUnauthorized,
			wantCode:   CodeErrorInvalidCredentials,
		},
		{
			name:       "locked",
			authErr:    &account.LockedError{Until: until},
			wantStatus: http.StatusLocked,
			wantCode:   CodeErrorAccountLocked,
		},
		{
			name:       "inactive",
			authErr:    account.ErrAccountInactive,
			wantStatus: http.StatusForbidden,
			wantCode:   CodeErrorAccountInactive,
		},
		{
			name:       "store failure",
			authErr:    errors.New("lookup account: connection reset"),
			wantStatus: http.StatusInternalServerError,
			wantCode:   CodeErrorAuthDatabaseError,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			auth := &MockAuth{
				AuthenticateFunc: func(ctx context.Context, email, password, device string) (*db.User, error) {
					return nil, tc.authErr
				},
			}
			app := newTestApp(t, &mock.Db{}, nil, WithAuthenticator(auth))

			rr := httptest.NewRecorder()
			app.LoginWithPasswordHandler(rr, newLoginRequest(`{"email":"a@example.com","password":"s3cretpass"}`))

			data := assertResponse(t, rr, tc.wantStatus, tc.wantCode)
			if tc.wantStatus == http.StatusLocked {
				if data["unlockTime"] != until.Format(time.RFC3339) {
					t.Errorf("unlockTime = %v, want %s", data["unlockTime"], until.Format(time.RFC3339))
				}
			}
		})
	}
}

func TestLoginWithPasswordHandler_Success(t *testing.T) {
	var gotEmail, gotDevice string
	auth := &MockAuth{
		AuthenticateFunc: func(ctx context.Context, email, password, device string) (*db.User, error) {
			gotEmail, gotDevice = email, device
			return &db.User{ID: "u1", Email: email, Name: "Asha", Role: db.RoleConsumer, Status: db.StatusActive, Verified: true}, nil
		},
	}
	app := newTestApp(t, &mock.Db{}, nil, WithAuthenticator(auth))

	rr := httptest.NewRecorder()
	app.LoginWithPasswordHandler(rr, newLoginRequest(`{"email":"  ASHA@example.com","password":"s3cretpass"}`))

	data := assertResponse(t, rr, http.StatusOK, CodeOkAuthentication)

	if gotEmail != "asha@example.com" {
		t.Errorf("authenticated email = %q, want normalized", gotEmail)
	}
	if gotDevice != "farmgate-test/1.0" {
		t.Errorf("device = %q", gotDevice)
	}

	claims, err := crypto.ParseSessionToken(data["token"].(string), []byte(testJwtSecret))
	if err != nil {
		t.Fatalf("token does not parse: %v", err)
	}
	if claims.UserID != "u1" || claims.Email != "asha@example.com" {
		t.Errorf("claims = %+v", claims)
	}
	expiresAt, err := time.Parse(time.RFC3339, data["expiresAt"].(string))
	if err != nil {
		t.Fatalf("expiresAt: %v", err)
	}
	if !expiresAt.Equal(claims.ExpiresAt.Time) {
		t.Errorf("expiresAt = %v, token exp = %v", expiresAt, claims.ExpiresAt.Time)
	}
}

// lockoutDb keeps one account and applies login state writes with the
// same compare-and-swap rule as the real stores.
type lockoutDb struct {
	mu   sync.Mutex
	user db.User
}

func (l *lockoutDb) mock() *mock.Db {
	return &mock.Db{
		GetUserByEmailFunc: func(ctx context.Context, email string) (*db.User, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			if email != l.user.Email {
				return nil, db.ErrUserNotFound
			}
			u := l.user
			return &u, nil
		},
		UpdateLoginStateFunc: func(ctx context.Context, userId string, expected int, next db.LoginState) (bool, error) {
			l.mu.Lock()
			defer l.mu.Unlock()
			if l.user.LoginAttempts != expected {
				return false, nil
			}
			l.user.LoginAttempts = next.Attempts
			l.user.LastFailedLogin = next.LastFailed
			l.user.LockUntil = next.LockUntil
			return true, nil
		},
	}
}

func TestLoginWithPasswordHandler_LockoutFlow(t *testing.T) {
	store := &lockoutDb{user: db.User{
		ID:       "u1",
		Email:    "asha@example.com",
		Password: fastHash(t, "s3cretpass"),
		Role:     db.RoleConsumer,
		Status:   db.StatusActive,
	}}
	alerts := &recordingNotifier{}
	app := newTestApp(t, store.mock(), nil, WithNotifier(alerts))

	wrong := `{"email":"asha@example.com","password":"wrongpass"}`
	for i := 1; i <= 5; i++ {
		rr := httptest.NewRecorder()
		app.LoginWithPasswordHandler(rr, newLoginRequest(wrong))
		assertResponse(t, rr, http.StatusUnauthorized, CodeErrorInvalidCredentials)
	}

	// the right password does not open a locked account
	before := time.Now()
	rr := httptest.NewRecorder()
	app.LoginWithPasswordHandler(rr, newLoginRequest(`{"email":"asha@example.com","password":"s3cretpass"}`))
	data := assertResponse(t, rr, http.StatusLocked, CodeErrorAccountLocked)

	unlock, err := time.Parse(time.RFC3339, data["unlockTime"].(string))
	if err != nil {
		t.Fatalf("unlockTime: %v", err)
	}
	if d := unlock.Sub(before); d < 29*time.Minute || d > 31*time.Minute {
		t.Errorf("unlockTime is %v after the attempt, want about 30m", d)
	}
	if store.user.LoginAttempts != 5 {
		t.Errorf("attempts = %d, want 5", store.user.LoginAttempts)
	}

	locks := alerts.bySource(notifySourceLogin)
	if len(locks) != 1 {
		t.Fatalf("lock alerts = %d, want 1", len(locks))
	}
	if locks[0].Fields["user_id"] != "u1" || locks[0].Fields["until"] != unlock.UTC().Format(time.RFC3339) {
		t.Errorf("lock alert fields = %v", locks[0].Fields)
	}
}
