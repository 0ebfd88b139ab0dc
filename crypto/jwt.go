package crypto

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// MinKeyLength is the minimum required length for JWT signing keys.
	// 32 bytes (256 bits) is the minimum recommended length for HMAC-SHA256 keys.
	MinKeyLength = 32

	// SessionClaimsVersion is bumped whenever the claim layout changes so
	// tokens issued by older builds are rejected.
	SessionClaimsVersion = 1
)

var (
	// ErrJwtTokenExpired is returned when the token has expired
	ErrJwtTokenExpired = errors.New("token expired")
	// ErrJwtInvalidToken is returned when the token is invalid
	ErrJwtInvalidToken = errors.New("invalid token")
	// ErrJwtInvalidSigningMethod is returned when the signing method is not
	// HS256 or the signature does not verify
	ErrJwtInvalidSigningMethod = errors.New("unexpected signing method")
	// ErrJwtInvalidSecretLength is returned for invalid secret lengths
	ErrJwtInvalidSecretLength = errors.New("invalid secret length")
	// ErrInvalidClaimFormat is returned when a required claim is missing
	ErrInvalidClaimFormat = errors.New("invalid claim format")
)

// SessionClaims is the payload of a session token.
type SessionClaims struct {
	UserID  string `json:"id"`
	Role    string `json:"role"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Version int    `json:"v"`
	jwt.RegisteredClaims
}

// IMPORTANT: the parser validates exp, iat and nbf values only when the
// claims are present. Presence of iat and of our own claims is enforced
// here, exp presence through WithExpirationRequired.

// Validate implements jwt.ClaimsValidator. It runs after the standard
// claims were checked by the parser.
func (c SessionClaims) Validate() error {
	if c.IssuedAt == nil {
		return fmt.Errorf("%w: missing iat claim", ErrInvalidClaimFormat)
	}
	if c.UserID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidClaimFormat)
	}
	if c.Role == "" {
		return fmt.Errorf("%w: missing role", ErrInvalidClaimFormat)
	}
	if c.Version != SessionClaimsVersion {
		return fmt.Errorf("%w: unsupported version %d", ErrInvalidClaimFormat, c.Version)
	}
	return nil
}

// NewSessionToken signs claims with HS256. iat and exp are set from the
// current time and duration; Version is always the current one.
func NewSessionToken(claims SessionClaims, signingKey []byte, duration time.Duration) (string, time.Time, error) {
	if len(signingKey) < MinKeyLength {
		return "", time.Time{}, ErrJwtInvalidSecretLength
	}

	// NumericDate keeps whole seconds; the returned expiry must match exp.
	now := time.Now().Truncate(time.Second)
	expirationTime := now.Add(duration)
	claims.Version = SessionClaimsVersion
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(expirationTime)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, expirationTime, nil
}

// ParseSessionToken verifies the token and returns its claims.
func ParseSessionToken(token string, verificationKey []byte) (*SessionClaims, error) {
	if len(verificationKey) < MinKeyLength {
		return nil, ErrJwtInvalidSecretLength
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)

	claims := &SessionClaims{}
	parsedToken, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		return verificationKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrJwtTokenExpired
		}
		if errors.Is(err, jwt.ErrTokenSignatureInvalid) {
			return nil, ErrJwtInvalidSigningMethod
		}
		return nil, fmt.Errorf("%w: %w", ErrJwtInvalidToken, err)
	}

	if !parsedToken.Valid {
		return nil, ErrJwtInvalidToken
	}

	return claims, nil
}
