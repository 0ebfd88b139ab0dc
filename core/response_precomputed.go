package core

import (
	"encoding/json"
	"net/http"
)

// Standard response codes
const (
	// oks
	CodeOkEmailVerified          = "ok_email_verified"
	CodeOkVerificationRequested  = "ok_verification_requested"
	CodeOkPasswordResetRequested = "ok_password_reset_requested"
	CodeOkPasswordReset          = "ok_password_reset"
	CodeOkLogout                 = "ok_logout"

	// errors
	CodeErrorTokenGeneration               = "err_token_generation"
	CodeErrorInvalidRequest                = "err_invalid_input"
	CodeErrorValidation                    = "err_validation"
	CodeErrorInvalidCredentials            = "err_invalid_credentials"
	CodeErrorAccountLocked                 = "err_account_locked"
	CodeErrorAccountInactive               = "err_account_inactive"
	CodeErrorEmailConflict                 = "err_email_conflict"
	CodeErrorNotFound                      = "err_not_found"
	CodeErrorMethodNotAllowed              = "err_method_not_allowed"
	CodeErrorRegistrationFailed            = "err_registration_failed"
	CodeErrorNoAuthHeader                  = "err_no_auth_header"
	CodeErrorInvalidTokenFormat            = "err_invalid_token_format"
	CodeErrorJwtInvalidSignMethod          = "err_invalid_sign_method"
	CodeErrorJwtTokenExpired               = "err_token_expired"
	CodeErrorJwtInvalidToken               = "err_invalid_token"
	CodeErrorInvalidVerificationToken      = "err_invalid_verification_token"
	CodeErrorInvalidResetToken             = "err_invalid_reset_token"
	CodeErrorPasswordResetFailed           = "err_password_reset_failed"
	CodeErrorEmailVerificationFailed       = "err_email_verification_failed"
	CodeErrorInvalidOAuth2Provider         = "err_invalid_oauth2_provider"
	CodeErrorAuthDatabaseError             = "err_auth_database_error"
	CodeErrorIpBlocked                     = "err_ip_blocked"
	CodeErrorInvalidContentType            = "err_invalid_content_type"
	CodeErrorRequestTimeout                = "err_request_timeout"
	CodeErrorOAuth2StateMismatch           = "oauth_state_mismatch"
	CodeErrorOAuth2TokenExchangeFailed     = "oauth_exchange_failed"
	CodeErrorOAuth2UserInfoFailed          = "oauth_user_info_failed"
	CodeErrorOAuth2AccountFailed           = "oauth_account_failed"
	CodeErrorOAuth2AccessDenied            = "oauth_access_denied"
	CodeErrorOAuth2ProviderNotConfigured   = "oauth_provider_not_configured"
	CodeErrorOAuth2SessionTokenUnavailable = "oauth_token_failed"
)

// precomputeBasicResponse is executed during package initialization and
// stores the marshaled JSON of short ok and error responses, so request
// handling only writes bytes.
func precomputeBasicResponse(status int, code, message string) jsonResponse {
	basic := JsonBasic{
		Status:  status,
		Code:    code,
		Message: message,
	}
	body, _ := json.Marshal(basic)
	return jsonResponse{status: status, body: body}
}

// Precomputed error and ok responses with status codes
var (
	// errors
	errorTokenGeneration          = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorTokenGeneration, "Failed to generate authentication token")
	errorIpBlocked                = precomputeBasicResponse(http.StatusTooManyRequests, CodeErrorIpBlocked, "IP address has been blocked due to excessive requests. Please try again later")
	errorInvalidRequest           = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidRequest, "The request contains invalid data")
	errorInvalidCredentials       = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorInvalidCredentials, "Invalid email or password")
	errorAccountInactive          = precomputeBasicResponse(http.StatusForbidden, CodeErrorAccountInactive, "Account is not active")
	errorEmailConflict            = precomputeBasicResponse(http.StatusConflict, CodeErrorEmailConflict, "Email address is already registered")
	errorNotFound                 = precomputeBasicResponse(http.StatusNotFound, CodeErrorNotFound, "Requested resource not found")
	errorMethodNotAllowed         = precomputeBasicResponse(http.StatusMethodNotAllowed, CodeErrorMethodNotAllowed, "Method not allowed")
	errorRegistrationFailed       = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorRegistrationFailed, "Registration failed")
	errorNoAuthHeader             = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorNoAuthHeader, "Authorization header is required")
	errorInvalidTokenFormat       = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorInvalidTokenFormat, "Invalid authorization token format")
	errorJwtInvalidSignMethod     = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorJwtInvalidSignMethod, "Invalid JWT signing method")
	errorJwtTokenExpired          = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorJwtTokenExpired, "Authentication token has expired")
	errorJwtInvalidToken          = precomputeBasicResponse(http.StatusUnauthorized, CodeErrorJwtInvalidToken, "Invalid authentication token")
	errorInvalidVerificationToken = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidVerificationToken, "Verification link is invalid or has expired")
	errorInvalidResetToken        = precomputeBasicResponse(http.StatusBadRequest, CodeErrorInvalidResetToken, "Password reset link is invalid or has expired")
	errorPasswordResetFailed      = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorPasswordResetFailed, "Password reset process failed")
	errorEmailVerificationFailed  = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorEmailVerificationFailed, "Email verification process failed")
	errorInvalidOAuth2Provider    = precomputeBasicResponse(http.StatusNotFound, CodeErrorInvalidOAuth2Provider, "OAuth2 provider is not available")
	errorAuthDatabaseError        = precomputeBasicResponse(http.StatusInternalServerError, CodeErrorAuthDatabaseError, "Database error during authentication")
	errorInvalidContentType       = precomputeBasicResponse(http.StatusUnsupportedMediaType, CodeErrorInvalidContentType, "Unsupported media type")
	errorRequestTimeout           = precomputeBasicResponse(http.StatusServiceUnavailable, CodeErrorRequestTimeout, "The request took too long")

	// oks
	okEmailVerified          = precomputeBasicResponse(http.StatusOK, CodeOkEmailVerified, "Email verified successfully")
	okVerificationRequested  = precomputeBasicResponse(http.StatusOK, CodeOkVerificationRequested, "If this email exists and is not verified, a verification link has been sent")
	okPasswordResetRequested = precomputeBasicResponse(http.StatusOK, CodeOkPasswordResetRequested, "If this email exists, a password reset link has been sent")
	okPasswordReset          = precomputeBasicResponse(http.StatusOK, CodeOkPasswordReset, "Password reset successfully")
	okLogout                 = precomputeBasicResponse(http.StatusOK, CodeOkLogout, "Logged out. Discard the token on the client")
)
