package contact

import (
	"regexp"
	"strings"

	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	mobilePattern = regexp.MustCompile(`^\+?[0-9]{10,15}$`)
	whitespace    = regexp.MustCompile(`\s`)
)

// Submission is a stored contact form entry.
type Submission struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Mobile    string  `json:"mobile"`
	Email     string  `json:"email"`
	Address   *string `json:"address"`
	Message   string  `json:"message"`
	Read      bool    `json:"read"`
	CreatedAt string  `json:"createdAt"`
}

// Input is the form as posted.
type Input struct {
	Name    string  `json:"name"`
	Mobile  string  `json:"mobile"`
	Email   string  `json:"email"`
	Address *string `json:"address,omitempty"`
	Message string  `json:"message"`
}

// Normalize trims every field, lowercases the email and turns a blank address into nil.
func (in Input) Normalize() Input {
	out := Input{
		Name:    strings.TrimSpace(in.Name),
		Mobile:  strings.TrimSpace(in.Mobile),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Message: strings.TrimSpace(in.Message),
	}
	if in.Address != nil {
		if a := strings.TrimSpace(*in.Address); a != "" {
			out.Address = &a
		}
	}
	return out
}

// Validate returns a validation error keyed by field name.
func (in Input) Validate() error {
	fields := map[string]string{}
	if in.Name == "" {
		fields["name"] = "name is required"
	}
	switch {
	case in.Email == "":
		fields["email"] = "email is required"
	case !emailPattern.MatchString(in.Email):
		fields["email"] = "Invalid email address format"
	}
	switch {
	case in.Mobile == "":
		fields["mobile"] = "mobile is required"
	case !mobilePattern.MatchString(whitespace.ReplaceAllString(in.Mobile, "")):
		fields["mobile"] = "Invalid mobile number format"
	}
	if in.Message == "" {
		fields["message"] = "message is required"
	}
	if len(fields) > 0 {
		return apperrors.Validation(fields)
	}
	return nil
}
