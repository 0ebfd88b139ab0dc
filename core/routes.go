package core

import (
	"net/http"

	"github.com/caasmo/farmgate/config"
	"github.com/caasmo/farmgate/router"
)

const (
	RouteAuthPrefix          = "/api/auth"
	RouteVerifyEmailPrefix   = RouteAuthPrefix + "/verify-email/"
	RouteResetPasswordPrefix = RouteAuthPrefix + "/reset-password/"
)

// oauth2ProviderRoutes are the providers with fixed routes. Unconfigured
// ones answer 404 on the redirect and an error redirect on the callback.
var oauth2ProviderRoutes = []string{config.OAuth2ProviderGoogle, config.OAuth2ProviderFacebook}

// Routes returns the chains of the auth API. Every route runs behind the
// request log and the request timeout; the endpoints taking credentials
// or sending mail also run behind the ip circuit breaker.
func (a *App) Routes() router.Chains {
	common := []func(http.Handler) http.Handler{a.RequestLog, a.RequestTimeout}
	guarded := []func(http.Handler) http.Handler{a.RequestLog, a.BlockIp, a.RequestTimeout}

	chain := func(h http.HandlerFunc, mws []func(http.Handler) http.Handler) *router.Chain {
		return router.NewChain(h).WithMiddlewareChain(mws)
	}

	chains := router.Chains{
		"POST " + RouteAuthPrefix + "/register":            chain(a.RegisterWithPasswordHandler, guarded),
		"POST " + RouteAuthPrefix + "/login":               chain(a.LoginWithPasswordHandler, guarded),
		"POST " + RouteAuthPrefix + "/forgot-password":     chain(a.RequestPasswordResetHandler, guarded),
		"POST " + RouteResetPasswordPrefix + ":token":      chain(a.ConfirmPasswordResetHandler, guarded),
		"GET " + RouteVerifyEmailPrefix + ":token":         chain(a.ConfirmVerificationHandler, guarded),
		"POST " + RouteAuthPrefix + "/resend-verification": chain(a.RequestVerificationHandler, guarded),
		"POST " + RouteAuthPrefix + "/logout":              chain(a.LogoutHandler, common),
		"GET " + RouteAuthPrefix + "/providers":            chain(a.ListOAuth2ProvidersHandler, common),
		"GET " + RouteAuthPrefix + "/me": router.NewChain(http.HandlerFunc(a.MeHandler)).
			WithMiddlewareChain(common).
			WithMiddleware(a.RequireAuth),
	}

	for _, name := range oauth2ProviderRoutes {
		chains["GET "+RouteAuthPrefix+"/"+name] = chain(a.OAuth2RedirectHandler(name), guarded)
		chains["GET "+RouteAuthPrefix+"/"+name+"/callback"] = chain(a.OAuth2CallbackHandler(name), guarded)
	}

	return chains
}

// NotFoundHandler answers unknown routes with the JSON envelope.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJsonError(w, errorNotFound)
	})
}

// MethodNotAllowedHandler answers known routes called with another method.
func MethodNotAllowedHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJsonError(w, errorMethodNotAllowed)
	})
}
