package core

import (
	"net/http"
)

// OAuth2ProviderInfo describes a provider login the frontend can offer.
type OAuth2ProviderInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	// LoginURL is the path starting the flow on this service.
	LoginURL string `json:"loginURL"`
}

// OAuth2ProviderListData wraps the list of providers for standardized response
type OAuth2ProviderListData struct {
	Providers []OAuth2ProviderInfo `json:"providers"`
}

// ListOAuth2ProvidersHandler returns the configured OAuth2 providers.
// Endpoint: GET /api/auth/providers
// Authenticated: No
//
//	{
//	  "status": 200,
//	  "code": "ok_oauth2_providers_list",
//	  "message": "OAuth2 providers list",
//	  "data": {
//	    "providers": [
//	      {"name": "google", "displayName": "Google", "loginURL": "/api/auth/google"}
//	    ]
//	  }
//	}
func (a *App) ListOAuth2ProvidersHandler(w http.ResponseWriter, r *http.Request) {
	providers := make([]OAuth2ProviderInfo, 0)
	for _, name := range a.Providers().Names() {
		p, _ := a.Providers().Get(name)
		providers = append(providers, OAuth2ProviderInfo{
			Name:        name,
			DisplayName: p.DisplayName(),
			LoginURL:    RouteAuthPrefix + "/" + name,
		})
	}

	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusOK,
			Code:    CodeOkOAuth2ProvidersList,
			Message: "OAuth2 providers list",
		},
		Data: OAuth2ProviderListData{Providers: providers},
	})
}
