package validator

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vedran77/hive/internal/domain"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

const (
	MaxTags        = 10
	MaxTagLength   = 20
	MaxHobbies     = 10
	MaxBioLength   = 500
	MaxRestricted  = 100
	maxNameLength  = 100
	maxDescription = 1000
)

func ValidateRegister(email, displayName, password string) ValidationErrors {
	errs := make(ValidationErrors)

	// Email
	validateEmail(email, errs)

	// Display name
	validateDisplayName(displayName, errs)

	// Password
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateCommunity(name, description string, tags []string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Community name is required")
	} else if utf8.RuneCountInString(name) < 2 {
		errs.Add("name", "Community name must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs.Add("name", "Community name is too long")
	}

	if utf8.RuneCountInString(description) > maxDescription {
		errs.Add("description", "Description is too long")
	}

	validateTags("tags", tags, errs)

	return errs
}

// ValidateCommunityUpdate checks only the fields that are set.
func ValidateCommunityUpdate(name, description *string, tags *[]string) ValidationErrors {
	n, d, t := "", "", []string(nil)
	if name != nil {
		n = *name
	}
	if description != nil {
		d = *description
	}
	if tags != nil {
		t = *tags
	}
	errs := ValidateCommunity(n, d, t)
	if name == nil {
		delete(errs, "name")
	}
	return errs
}

func ValidateChannel(name string, icon domain.IconName, roles []domain.Role, types []domain.MessageType) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Channel name is required")
	} else if utf8.RuneCountInString(name) < 2 {
		errs.Add("name", "Channel name must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > maxNameLength {
		errs.Add("name", "Channel name is too long")
	}

	if icon != "" && !icon.Valid() {
		errs.Add("icon_name", fmt.Sprintf("Unknown icon %q", icon))
	}

	for _, r := range roles {
		if !r.Valid() {
			errs.Add("allowed_roles", fmt.Sprintf("Unknown role %q", r))
			break
		}
	}

	for _, t := range types {
		if !t.Valid() {
			errs.Add("allowed_message_types", fmt.Sprintf("Unknown message type %q", t))
			break
		}
	}

	return errs
}

// ValidateProfile checks only the fields that are set.
func ValidateProfile(displayName, bio *string, hobbies, tags *[]string) ValidationErrors {
	errs := make(ValidationErrors)

	if displayName != nil {
		validateDisplayName(*displayName, errs)
	}

	if bio != nil && utf8.RuneCountInString(strings.TrimSpace(*bio)) > MaxBioLength {
		errs.Add("bio", fmt.Sprintf("Bio must be at most %d characters", MaxBioLength))
	}

	if hobbies != nil && len(*hobbies) > MaxHobbies {
		errs.Add("hobbies", fmt.Sprintf("At most %d hobbies", MaxHobbies))
	}

	if tags != nil {
		validateTags("tags", *tags, errs)
	}

	return errs
}

func ValidateRestrictedWords(words []domain.RestrictedWord) ValidationErrors {
	errs := make(ValidationErrors)

	if len(words) > MaxRestricted {
		errs.Add("words", fmt.Sprintf("At most %d restricted words", MaxRestricted))
		return errs
	}

	for i, w := range words {
		word := strings.TrimSpace(w.Word)
		if strings.ContainsFunc(word, unicode.IsSpace) {
			errs.Add(fmt.Sprintf("words[%d].word", i), "A restricted word must be a single word")
		}
	}

	return errs
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validateDisplayName(displayName string, errs ValidationErrors) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if utf8.RuneCountInString(displayName) < 2 {
		errs.Add("display_name", "Display name must be at least 2 characters")
	} else if utf8.RuneCountInString(displayName) > maxNameLength {
		errs.Add("display_name", "Display name is too long")
	}
}

func validateTags(field string, tags []string, errs ValidationErrors) {
	if len(tags) > MaxTags {
		errs.Add(field, fmt.Sprintf("At most %d tags", MaxTags))
		return
	}
	for _, t := range tags {
		if utf8.RuneCountInString(strings.TrimSpace(t)) > MaxTagLength {
			errs.Add(field, fmt.Sprintf("Tags must be at most %d characters", MaxTagLength))
			return
		}
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
