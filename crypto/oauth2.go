package crypto

import (
	"crypto/sha256"
	"encoding/base64"
)

// Oauth2StateLength gives 32 alphanumeric characters, about 190 bits.
const Oauth2StateLength = 32

// RFC 7636 allows verifiers of 43 to 128 characters.
const OauthCodeVerifierLength = 43

const PKCECodeChallengeMethod = "S256"

// unreserved characters of RFC 7636
const pkceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-._~"

// Oauth2Flow is what one authorization request keeps until its callback:
// the state echoed by the provider and, for PKCE providers, the verifier
// sent at code exchange. Verifier is empty without PKCE.
type Oauth2Flow struct {
	State    string
	Verifier string
}

// NewOauth2Flow returns a fresh state, and a verifier when pkce is set.
func NewOauth2Flow(pkce bool) Oauth2Flow {
	f := Oauth2Flow{State: Oauth2State()}
	if pkce {
		f.Verifier = Oauth2CodeVerifier()
	}
	return f
}

// Challenge is the code_challenge of the flow, empty without PKCE.
func (f Oauth2Flow) Challenge() string {
	if f.Verifier == "" {
		return ""
	}
	return S256Challenge(f.Verifier)
}

// Oauth2State is the single-use value binding a callback to its redirect.
func Oauth2State() string {
	return RandomString(Oauth2StateLength, AlphanumericAlphabet)
}

func Oauth2CodeVerifier() string {
	return RandomString(OauthCodeVerifierLength, pkceAlphabet)
}

// S256Challenge is BASE64URL(SHA256(verifier)) without padding.
func S256Challenge(verifier string) string {
	h := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(h[:])
}
