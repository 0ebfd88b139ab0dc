// Package oauth2 holds the configured OAuth2 providers and maps their
// user info responses into a provider neutral Profile.
package oauth2

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/crypto"
	"golang.org/x/oauth2"
)

// maxUserInfoBytes bounds the user info body read from a provider.
const maxUserInfoBytes = 1 << 20

// Profile is the identity asserted by a provider after a successful
// code exchange.
type Profile struct {
	Provider string
	ID       string
	Name     string
	// Emails holds the addresses the provider vouches for, primary first.
	// Empty when the user did not grant the email scope.
	Emails []string
}

// Provider is one configured OAuth2 identity provider.
type Provider struct {
	cfg         config.OAuth2Provider
	redirectURL string
}

func (p *Provider) Name() string {
	return p.cfg.Name
}

func (p *Provider) DisplayName() string {
	return p.cfg.DisplayName
}

// PKCE reports whether the authorization request carries a code challenge.
func (p *Provider) PKCE() bool {
	return p.cfg.PKCE
}

func (p *Provider) RedirectURL() string {
	return p.redirectURL
}

// Config builds the golang.org/x/oauth2 configuration of the provider.
func (p *Provider) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		RedirectURL:  p.redirectURL,
		Scopes:       p.cfg.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  p.cfg.AuthURL,
			TokenURL: p.cfg.TokenURL,
		},
	}
}

// AuthCodeURL returns the provider consent URL. The verifier is ignored
// for providers without PKCE.
func (p *Provider) AuthCodeURL(state, verifier string) string {
	if !p.cfg.PKCE {
		return p.Config().AuthCodeURL(state)
	}
	return p.Config().AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", crypto.S256Challenge(verifier)),
		oauth2.SetAuthURLParam("code_challenge_method", crypto.PKCECodeChallengeMethod),
	)
}

// Exchange trades the authorization code for an access token.
func (p *Provider) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	var opts []oauth2.AuthCodeOption
	if p.cfg.PKCE {
		opts = append(opts, oauth2.SetAuthURLParam("code_verifier", verifier))
	}
	token, err := p.Config().Exchange(ctx, code, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange: %w", p.cfg.Name, err)
	}
	return token, nil
}

// Profile fetches the user info endpoint with the access token and maps
// the response.
func (p *Provider) Profile(ctx context.Context, token *oauth2.Token) (Profile, error) {
	client := p.Config().Client(ctx, token)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return Profile{}, fmt.Errorf("%s user info request: %w", p.cfg.Name, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return Profile{}, fmt.Errorf("%s user info request: %w", p.cfg.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Profile{}, fmt.Errorf("%s user info: unexpected status %d", p.cfg.Name, resp.StatusCode)
	}

	return ProfileFromUserInfo(io.LimitReader(resp.Body, maxUserInfoBytes), p.cfg.Name)
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

type facebookUserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProfileFromUserInfo decodes the user info body of the named provider.
// A google address not marked as verified is left out of Emails, so it
// can never be used to claim an existing account.
func ProfileFromUserInfo(r io.Reader, providerName string) (Profile, error) {
	profile := Profile{Provider: providerName}

	switch providerName {
	case config.OAuth2ProviderGoogle:
		var info googleUserInfo
		if err := json.NewDecoder(r).Decode(&info); err != nil {
			return Profile{}, fmt.Errorf("failed to decode google user info: %w", err)
		}
		profile.ID = info.Sub
		profile.Name = info.Name
		if email := strings.TrimSpace(info.Email); email != "" && info.EmailVerified {
			profile.Emails = []string{email}
		}

	case config.OAuth2ProviderFacebook:
		var info facebookUserInfo
		if err := json.NewDecoder(r).Decode(&info); err != nil {
			return Profile{}, fmt.Errorf("failed to decode facebook user info: %w", err)
		}
		profile.ID = info.ID
		profile.Name = info.Name
		if email := strings.TrimSpace(info.Email); email != "" {
			profile.Emails = []string{email}
		}

	default:
		return Profile{}, fmt.Errorf("unsupported provider: %s", providerName)
	}

	if profile.ID == "" {
		return Profile{}, fmt.Errorf("%s user info without id", providerName)
	}
	return profile, nil
}

// Registry holds the providers with credentials. It is built once at
// startup and is read only afterwards.
type Registry struct {
	providers map[string]*Provider
}

// NewRegistry registers every configured provider of cfg. Providers
// without client credentials are skipped.
func NewRegistry(cfg *config.Config) *Registry {
	r := &Registry{providers: make(map[string]*Provider)}
	for key, pc := range cfg.Providers {
		if !pc.Configured() {
			continue
		}
		if pc.Name == "" {
			pc.Name = key
		}
		r.providers[pc.Name] = &Provider{
			cfg:         pc,
			redirectURL: pc.RedirectURL(cfg.Server),
		}
	}
	return r
}

func (r *Registry) Get(name string) (*Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Names returns the registered provider names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
