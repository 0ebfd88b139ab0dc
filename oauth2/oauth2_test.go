package oauth2

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"testing"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/crypto"
	"golang.org/x/oauth2"
)

func TestProfileFromUserInfo(t *testing.T) {
	testCases := []struct {
		name         string
		providerName string
		responseBody string
		wantProfile  Profile
		wantErr      error
	}{
		{
			name:         "google valid user",
			providerName: config.OAuth2ProviderGoogle,
			responseBody: `{"sub": "123", "name": "Test User", "picture": "http://example.com/avatar.png", "email": "test@example.com", "email_verified": true}`,
			wantProfile: Profile{
				Provider: config.OAuth2ProviderGoogle,
				ID:       "123",
				Name:     "Test User",
				Emails:   []string{"test@example.com"},
			},
		},
		{
			name:         "google email not verified",
			providerName: config.OAuth2ProviderGoogle,
			responseBody: `{"sub": "123", "name": "Test User", "email": "test@example.com", "email_verified": false}`,
			wantProfile: Profile{
				Provider: config.OAuth2ProviderGoogle,
				ID:       "123",
				Name:     "Test User",
			},
		},
		{
			name:         "facebook with email",
			providerName: config.OAuth2ProviderFacebook,
			responseBody: `{"id": "998877", "name": "Ravi Kumar", "email": "ravi@example.com"}`,
			wantProfile: Profile{
				Provider: config.OAuth2ProviderFacebook,
				ID:       "998877",
				Name:     "Ravi Kumar",
				Emails:   []string{"ravi@example.com"},
			},
		},
		{
			name:         "facebook without email",
			providerName: config.OAuth2ProviderFacebook,
			responseBody: `{"id": "998877", "name": "Ravi Kumar"}`,
			wantProfile: Profile{
				Provider: config.OAuth2ProviderFacebook,
				ID:       "998877",
				Name:     "Ravi Kumar",
			},
		},
		{
			name:         "missing id",
			providerName: config.OAuth2ProviderFacebook,
			responseBody: `{"name": "Nobody"}`,
			wantErr:      errors.New("facebook user info without id"),
		},
		{
			name:         "unsupported provider",
			providerName: "github",
			responseBody: `{}`,
			wantErr:      errors.New("unsupported provider: github"),
		},
		{
			name:         "malformed json",
			providerName: config.OAuth2ProviderGoogle,
			responseBody: `{"sub": "123", "name": "Test User",`,
			wantErr:      errors.New("failed to decode google user info: unexpected EOF"),
		},
		{
			name:         "empty response body",
			providerName: config.OAuth2ProviderGoogle,
			responseBody: ``,
			wantErr:      errors.New("failed to decode google user info: EOF"),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			profile, err := ProfileFromUserInfo(strings.NewReader(tc.responseBody), tc.providerName)

			if tc.wantErr != nil {
				if err == nil {
					t.Fatalf("ProfileFromUserInfo() error = nil, want %v", tc.wantErr)
				}
				if !strings.Contains(err.Error(), tc.wantErr.Error()) {
					t.Errorf("ProfileFromUserInfo() error = %v, want error containing %v", err, tc.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ProfileFromUserInfo() unexpected error = %v", err)
			}

			if !reflect.DeepEqual(profile, tc.wantProfile) {
				t.Errorf("ProfileFromUserInfo() profile = %+v, want %+v", profile, tc.wantProfile)
			}
		})
	}
}

func TestNewRegistry(t *testing.T) {
	cfg := config.NewDefaultConfig()
	cfg.Server.BaseURL = "https://api.example.com/"

	google := cfg.Providers[config.OAuth2ProviderGoogle]
	google.ClientID = "gid"
	google.ClientSecret = "gsecret"
	cfg.Providers[config.OAuth2ProviderGoogle] = google
	// facebook keeps empty credentials and must be skipped

	reg := NewRegistry(cfg)

	if got := reg.Names(); !reflect.DeepEqual(got, []string{"google"}) {
		t.Fatalf("Names() = %v, want [google]", got)
	}
	if _, ok := reg.Get(config.OAuth2ProviderFacebook); ok {
		t.Error("facebook without credentials must not be registered")
	}

	p, ok := reg.Get(config.OAuth2ProviderGoogle)
	if !ok {
		t.Fatal("google provider not registered")
	}
	if want := "https://api.example.com/api/auth/google/callback"; p.RedirectURL() != want {
		t.Errorf("RedirectURL() = %q, want %q", p.RedirectURL(), want)
	}
}

func TestAuthCodeURL(t *testing.T) {
	verifier := crypto.Oauth2CodeVerifier()

	tests := []struct {
		name          string
		pkce          bool
		wantChallenge string
	}{
		{name: "with pkce", pkce: true, wantChallenge: crypto.S256Challenge(verifier)},
		{name: "without pkce", pkce: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Provider{
				cfg: config.OAuth2Provider{
					Name:     "google",
					ClientID: "cid",
					AuthURL:  "https://auth.example.com/authorize",
					Scopes:   []string{"email"},
					PKCE:     tt.pkce,
				},
				redirectURL: "https://api.example.com/cb",
			}

			u, err := url.Parse(p.AuthCodeURL("state-1", verifier))
			if err != nil {
				t.Fatalf("invalid auth url: %v", err)
			}
			q := u.Query()
			if q.Get("state") != "state-1" || q.Get("client_id") != "cid" {
				t.Errorf("unexpected query: %v", q)
			}
			if q.Get("redirect_uri") != "https://api.example.com/cb" {
				t.Errorf("redirect_uri = %q", q.Get("redirect_uri"))
			}
			if q.Get("code_challenge") != tt.wantChallenge {
				t.Errorf("code_challenge = %q, want %q", q.Get("code_challenge"), tt.wantChallenge)
			}
			if tt.pkce && q.Get("code_challenge_method") != crypto.PKCECodeChallengeMethod {
				t.Errorf("code_challenge_method = %q", q.Get("code_challenge_method"))
			}
		})
	}
}

func TestExchangeAndProfile(t *testing.T) {
	var gotVerifier string
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		gotVerifier = r.PostForm.Get("code_verifier")
		if r.PostForm.Get("code") != "auth-code" {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"access-1","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"sub":"g-42","name":"Asha","email":"asha@example.com","email_verified":true}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	p := &Provider{
		cfg: config.OAuth2Provider{
			Name:         config.OAuth2ProviderGoogle,
			ClientID:     "cid",
			ClientSecret: "secret",
			AuthURL:      srv.URL + "/authorize",
			TokenURL:     srv.URL + "/token",
			UserInfoURL:  srv.URL + "/userinfo",
			PKCE:         true,
		},
		redirectURL: "https://api.example.com/cb",
	}

	ctx := context.Background()

	if _, err := p.Exchange(ctx, "wrong-code", "v"); err == nil {
		t.Fatal("expected exchange error for a rejected code")
	}

	token, err := p.Exchange(ctx, "auth-code", "verifier-1")
	if err != nil {
		t.Fatalf("Exchange() error = %v", err)
	}
	if gotVerifier != "verifier-1" {
		t.Errorf("code_verifier sent = %q, want verifier-1", gotVerifier)
	}

	profile, err := p.Profile(ctx, token)
	if err != nil {
		t.Fatalf("Profile() error = %v", err)
	}
	want := Profile{Provider: "google", ID: "g-42", Name: "Asha", Emails: []string{"asha@example.com"}}
	if !reflect.DeepEqual(profile, want) {
		t.Errorf("Profile() = %+v, want %+v", profile, want)
	}
}

func TestProfileUnexpectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	p := &Provider{cfg: config.OAuth2Provider{Name: "facebook", UserInfoURL: srv.URL}}
	_, err := p.Profile(context.Background(), &oauth2.Token{AccessToken: "access-1"})
	if err == nil || !strings.Contains(err.Error(), "unexpected status 403") {
		t.Fatalf("Profile() error = %v, want unexpected status", err)
	}
}
