package account

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/caasmo/farmgate/db"
)

const (
	MinPasswordLength = 8
	// MaxPasswordBytes is the bcrypt input limit.
	MaxPasswordBytes = 72
	MinPhoneDigits   = 10
)

var (
	emailRegex   = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRegex   = regexp.MustCompile(`^\+?[0-9 \-]+$`)
	pincodeRegex = regexp.MustCompile(`^[0-9]{6}$`)
)

// Registration is the self sign-up payload.
type Registration struct {
	Name        string          `json:"name"`
	Email       string          `json:"email"`
	Password    string          `json:"password"`
	Phone       string          `json:"phone"`
	Address     string          `json:"address"`
	City        string          `json:"city"`
	State       string          `json:"state"`
	Pincode     string          `json:"pincode"`
	UserType    string          `json:"userType"`
	FarmDetails *db.FarmDetails `json:"farmDetails,omitempty"`
}

// Normalize trims every text field and lower-cases email and user type.
// The password is left untouched.
func (r *Registration) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = NormalizeEmail(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Address = strings.TrimSpace(r.Address)
	r.City = strings.TrimSpace(r.City)
	r.State = strings.TrimSpace(r.State)
	r.Pincode = strings.TrimSpace(r.Pincode)
	r.UserType = strings.ToLower(strings.TrimSpace(r.UserType))
	if r.FarmDetails != nil {
		r.FarmDetails.FarmName = strings.TrimSpace(r.FarmDetails.FarmName)
		r.FarmDetails.FarmSize = strings.TrimSpace(r.FarmDetails.FarmSize)
	}
}

// Role maps the user type to a role. Empty means consumer.
func (r *Registration) Role() db.Role {
	if r.UserType == "" {
		return db.RoleConsumer
	}
	return db.Role(r.UserType)
}

// ToUser builds the account to persist. Farm details are kept only for
// farmers.
func (r *Registration) ToUser(passwordHash string) db.User {
	u := db.User{
		Name:     r.Name,
		Email:    r.Email,
		Password: passwordHash,
		Phone:    r.Phone,
		Address:  r.Address,
		City:     r.City,
		State:    r.State,
		Pincode:  r.Pincode,
		Role:     r.Role(),
		Status:   db.StatusActive,
	}
	if u.Role == db.RoleFarmer && r.FarmDetails != nil {
		fd := *r.FarmDetails
		u.FarmDetails = &fd
	}
	return u
}

// FieldErrors maps a payload field to the reason it was rejected.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	return "validation failed"
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail reports whether email is a bare address like a@b.co.
func ValidateEmail(email string) bool {
	if !emailRegex.MatchString(email) {
		return false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// reject display name forms such as "Bob <a@b.co>"
	return addr.Address == email
}

// ValidatePhone accepts an optional leading + followed by digits, spaces
// and hyphens, with at least MinPhoneDigits digits.
func ValidatePhone(phone string) bool {
	if !phoneRegex.MatchString(phone) {
		return false
	}
	digits := 0
	for _, c := range phone {
		if c >= '0' && c <= '9' {
			digits++
		}
	}
	return digits >= MinPhoneDigits
}

// ValidatePassword returns the reason a password is rejected, or "".
func ValidatePassword(password string) string {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return "must be at least 8 characters"
	}
	if len(password) > MaxPasswordBytes {
		return "must be at most 72 bytes"
	}
	return ""
}

// ValidateRegistration checks a normalized registration. An empty map
// means the payload can be persisted.
func ValidateRegistration(r Registration) FieldErrors {
	errs := FieldErrors{}

	if strings.TrimSpace(r.Name) == "" {
		errs["name"] = "is required"
	}

	switch {
	case r.Email == "":
		errs["email"] = "is required"
	case !ValidateEmail(r.Email):
		errs["email"] = "is not a valid email address"
	}

	if reason := ValidatePassword(r.Password); reason != "" {
		errs["password"] = reason
	}

	switch {
	case r.Phone == "":
		errs["phone"] = "is required"
	case !ValidatePhone(r.Phone):
		errs["phone"] = "must contain at least 10 digits, spaces or hyphens, with an optional leading +"
	}

	switch {
	case r.Pincode == "":
		errs["pincode"] = "is required"
	case !pincodeRegex.MatchString(r.Pincode):
		errs["pincode"] = "must be exactly 6 digits"
	}

	switch r.Role() {
	case db.RoleConsumer:
	case db.RoleFarmer:
		if r.FarmDetails == nil || strings.TrimSpace(r.FarmDetails.FarmName) == "" {
			errs["farmDetails.farmName"] = "is required for farmers"
		}
	default:
		errs["userType"] = "must be consumer or farmer"
	}

	return errs
}
