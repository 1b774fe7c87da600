package validator

import (
	"fmt"
	"strings"

	"github.com/s21platform/user-stream-service/internal/model"
)

const maxNameLength = 255

type Validator struct{}

func New() *Validator {
	return &Validator{}
}

// ValidateUserRecord rejects records that cannot be keyed or stored.
func (v *Validator) ValidateUserRecord(u model.UserRecord) error {
	if strings.TrimSpace(u.UserID()) == "" {
		return fmt.Errorf("login.uuid is required")
	}

	if strings.TrimSpace(u.Name.First) == "" && strings.TrimSpace(u.Name.Last) == "" {
		return fmt.Errorf("user %s has no name", u.UserID())
	}

	if len([]rune(u.FullName())) > maxNameLength {
		return fmt.Errorf("name of user %s exceeds maximum length of %d characters", u.UserID(), maxNameLength)
	}

	if u.Email != "" && !strings.Contains(u.Email, "@") {
		return fmt.Errorf("email '%s' of user %s is malformed", u.Email, u.UserID())
	}

	return nil
}
