package core

import (
	"net/http"
	"time"

	"github.com/caasmo/farmgate/account"
	"github.com/caasmo/farmgate/db"
)

// Example authentication response (register, login):
//
//	{
//	  "status": 200,
//	  "code": "ok_authentication",
//	  "message": "Authentication successful",
//	  "data": {
//	    "token": "eyJhbGciOiJIUzI...",
//	    "expiresAt": "2026-10-25T10:00:00Z",
//	    "user": {
//	      "id": "8c1d...",
//	      "name": "Green Acres",
//	      "email": "a@b.com",
//	      "role": "farmer",
//	      "verified": false,
//	      "status": "active",
//	      "farmDetails": {"farmName": "Green Acres"}
//	    }
//	  }
//	}

const (
	// oks for non precomputed, dynamic auth responses
	CodeOkAuthentication      = "ok_authentication"
	CodeOkRegistration        = "ok_registration"
	CodeOkCurrentUser         = "ok_current_user"
	CodeOkOAuth2ProvidersList = "ok_oauth2_providers_list"
)

// UserSummary is the public view of an account. Hashes, tokens and
// lockout counters never leave the service.
type UserSummary struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Role        db.Role         `json:"role"`
	Verified    bool            `json:"verified"`
	Status      db.Status       `json:"status"`
	Phone       string          `json:"phone,omitempty"`
	City        string          `json:"city,omitempty"`
	State       string          `json:"state,omitempty"`
	Pincode     string          `json:"pincode,omitempty"`
	Provider    string          `json:"provider,omitempty"`
	FarmDetails *db.FarmDetails `json:"farmDetails,omitempty"`
}

func NewUserSummary(u *db.User) UserSummary {
	return UserSummary{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        u.Role,
		Verified:    u.Verified,
		Status:      u.Status,
		Phone:       u.Phone,
		City:        u.City,
		State:       u.State,
		Pincode:     u.Pincode,
		Provider:    u.Provider,
		FarmDetails: u.FarmDetails,
	}
}

// AuthData is the data of register and login responses.
type AuthData struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      UserSummary `json:"user"`
}

// writeAuthResponse writes a standardized authentication response
func writeAuthResponse(w http.ResponseWriter, status int, code, message, token string, expiresAt time.Time, user *db.User) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  status,
			Code:    code,
			Message: message,
		},
		Data: AuthData{
			Token:     token,
			ExpiresAt: expiresAt.UTC(),
			User:      NewUserSummary(user),
		},
	})
}

// writeValidationError writes the field keyed errors of a rejected body.
func writeValidationError(w http.ResponseWriter, fe account.FieldErrors) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusBadRequest,
			Code:    CodeErrorValidation,
			Message: "Validation failed",
		},
		Data: map[string]any{"errors": fe},
	})
}

// writeLockedError writes 423 with the instant the lock expires.
func writeLockedError(w http.ResponseWriter, until time.Time) {
	writeJsonWithData(w, JsonWithData{
		JsonBasic: JsonBasic{
			Status:  http.StatusLocked,
			Code:    CodeErrorAccountLocked,
			Message: "Account is locked after too many failed logins",
		},
		Data: map[string]any{"unlockTime": until.UTC()},
	})
}
