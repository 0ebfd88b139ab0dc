package core

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/caasmo/farmgate/crypto"
	"github.com/caasmo/farmgate/db"
)

const oauth2StateKeyPrefix = "oauth2state|"

// oauth2State is what the redirect leaves in the cache for its callback.
type oauth2State struct {
	Provider string
	Verifier string
}

func oauth2StateKey(state string) string {
	return oauth2StateKeyPrefix + state
}

// takeOAuth2State returns the stored state and deletes it, so each state
// is accepted once.
func (a *App) takeOAuth2State(state string) (oauth2State, bool) {
	if state == "" {
		return oauth2State{}, false
	}
	key := oauth2StateKey(state)
	v, found := a.Cache().Get(key)
	if !found {
		return oauth2State{}, false
	}
	a.Cache().Del(key)

	s, ok := v.(oauth2State)
	return s, ok
}

// oauth2FailureURL is the frontend page told about a failed provider
// login.
func (a *App) oauth2FailureURL(code string) string {
	cfg := a.Config()
	q := url.Values{"error": {code}}
	return strings.TrimRight(cfg.FrontendURL, "/") + cfg.OAuth2.FailurePath + "?" + q.Encode()
}

// oauth2SuccessURL carries the session token and the user summary to the
// frontend.
//
// TODO move the token to a short lived code the frontend trades with a
// POST, query strings end up in browser history and proxy logs.
func (a *App) oauth2SuccessURL(token string, user *db.User) (string, error) {
	cfg := a.Config()
	summary, err := json.Marshal(NewUserSummary(user))
	if err != nil {
		return "", err
	}
	q := url.Values{
		"token": {token},
		"user":  {string(summary)},
	}
	return strings.TrimRight(cfg.FrontendURL, "/") + cfg.OAuth2.SuccessPath + "?" + q.Encode(), nil
}

// OAuth2RedirectHandler starts the authorization code flow of provider:
// it stores a fresh state, with the PKCE verifier when the provider uses
// one, and redirects to the consent page.
// Endpoint: GET /api/auth/{provider}
// Authenticated: No
func (a *App) OAuth2RedirectHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, ok := a.Providers().Get(provider)
		if !ok {
			writeJsonError(w, errorInvalidOAuth2Provider)
			return
		}

		flow := crypto.NewOauth2Flow(p.PKCE())

		ttl := a.Config().OAuth2.StateTTL.Duration
		if !a.Cache().SetWithTTL(oauth2StateKey(flow.State), oauth2State{Provider: provider, Verifier: flow.Verifier}, 1, ttl) {
			a.Logger().Error("failed to store oauth2 state", "provider", provider)
			writeJsonError(w, errorAuthDatabaseError)
			return
		}

		http.Redirect(w, r, p.AuthCodeURL(flow.State, flow.Verifier), http.StatusFound)
	}
}

// OAuth2CallbackHandler completes the flow started by
// OAuth2RedirectHandler. The outcome is always a redirect to the
// frontend: the success page with a session token, or the login page
// with an error code.
// Endpoint: GET /api/auth/{provider}/callback
// Authenticated: No
func (a *App) OAuth2CallbackHandler(provider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fail := func(code string) {
			http.Redirect(w, r, a.oauth2FailureURL(code), http.StatusFound)
		}

		q := r.URL.Query()

		p, ok := a.Providers().Get(provider)
		if !ok {
			fail(CodeErrorOAuth2ProviderNotConfigured)
			return
		}

		// consume the state first, also when the user denied consent
		stored, ok := a.takeOAuth2State(q.Get("state"))
		if !ok || stored.Provider != provider {
			a.Logger().Warn("oauth2 state mismatch", "provider", provider)
			fail(CodeErrorOAuth2StateMismatch)
			return
		}

		if q.Get("error") != "" {
			a.Logger().Info("oauth2 consent not granted", "provider", provider, "reason", q.Get("error"))
			fail(CodeErrorOAuth2AccessDenied)
			return
		}

		code := q.Get("code")
		if code == "" {
			fail(CodeErrorOAuth2TokenExchangeFailed)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), a.Config().OAuth2.ExchangeTimeout.Duration)
		defer cancel()

		token, err := p.Exchange(ctx, code, stored.Verifier)
		if err != nil {
			a.Logger().Error("oauth2 code exchange failed", "provider", provider, "error", err)
			fail(CodeErrorOAuth2TokenExchangeFailed)
			return
		}

		profile, err := p.Profile(ctx, token)
		if err != nil {
			a.Logger().Error("oauth2 user info failed", "provider", provider, "error", err)
			fail(CodeErrorOAuth2UserInfoFailed)
			return
		}

		user, err := a.Bridge().Resolve(r.Context(), profile)
		if err != nil {
			a.Logger().Error("oauth2 account resolution failed", "provider", provider, "error", err)
			fail(CodeErrorOAuth2AccountFailed)
			return
		}

		if user.Status != db.StatusActive {
			fail(CodeErrorAccountInactive)
			return
		}

		sessionToken, _, err := a.issueSessionToken(user, a.Config().Jwt.OAuth2TokenDuration.Duration)
		if err != nil {
			a.Logger().Error("failed to issue session token", "user_id", user.ID, "error", err)
			fail(CodeErrorOAuth2SessionTokenUnavailable)
			return
		}

		target, err := a.oauth2SuccessURL(sessionToken, user)
		if err != nil {
			fail(CodeErrorOAuth2SessionTokenUnavailable)
			return
		}

		a.Logger().Info("oauth2 login", "provider", provider, "user_id", user.ID,
			"placeholder_email", isPlaceholderEmail(user.Email, provider))
		http.Redirect(w, r, target, http.StatusFound)
	}
}

// isPlaceholderEmail reports whether the account got the synthetic
// address because the provider shared none.
func isPlaceholderEmail(email, provider string) bool {
	return strings.HasSuffix(email, "@"+provider+".local")
}
