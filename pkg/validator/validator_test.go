package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vedran77/hive/internal/domain"
)

func TestValidateRegister(t *testing.T) {
	assert.False(t, ValidateRegister("ana@example.com", "Ana", "Secret123").HasErrors())

	errs := ValidateRegister("not-an-email", "A", "short")
	assert.Contains(t, errs, "email")
	assert.Contains(t, errs, "display_name")
	assert.Contains(t, errs, "password")

	errs = ValidateRegister("ana@example.com", "Ana", "alllowercase1")
	assert.Equal(t, "Password must contain at least one uppercase letter", errs["password"])
}

func TestValidateLogin(t *testing.T) {
	assert.False(t, ValidateLogin("ana@example.com", "x").HasErrors())
	errs := ValidateLogin("", "")
	assert.Len(t, errs, 2)
}

func TestValidateCommunityTags(t *testing.T) {
	assert.False(t, ValidateCommunity("Gophers", "", []string{"go"}).HasErrors())
	assert.Contains(t, ValidateCommunity("Gophers", "", make([]string, 11)), "tags")
	assert.Contains(t, ValidateCommunity("Gophers", "", []string{strings.Repeat("x", 21)}), "tags")
	assert.Contains(t, ValidateCommunity(" ", "", nil), "name")
}

func TestValidateCommunityUpdate(t *testing.T) {
	assert.False(t, ValidateCommunityUpdate(nil, nil, nil).HasErrors())
	blank := " "
	assert.Contains(t, ValidateCommunityUpdate(&blank, nil, nil), "name")
	tags := []string{strings.Repeat("x", 21)}
	assert.Contains(t, ValidateCommunityUpdate(nil, nil, &tags), "tags")
}

func TestValidateChannel(t *testing.T) {
	assert.False(t, ValidateChannel("general", domain.IconHash, []domain.Role{domain.RoleMember}, []domain.MessageType{domain.MessageText}).HasErrors())
	assert.Contains(t, ValidateChannel("general", "rocket", nil, nil), "icon_name")
	assert.Contains(t, ValidateChannel("general", "", []domain.Role{domain.RoleGuest}, nil), "allowed_roles")
	assert.Contains(t, ValidateChannel("general", "", nil, []domain.MessageType{"sticker"}), "allowed_message_types")
}

func TestValidateProfile(t *testing.T) {
	long := strings.Repeat("b", MaxBioLength+1)
	hobbies := make([]string, MaxHobbies+1)
	errs := ValidateProfile(nil, &long, &hobbies, nil)
	assert.Contains(t, errs, "bio")
	assert.Contains(t, errs, "hobbies")
	assert.False(t, ValidateProfile(nil, nil, nil, nil).HasErrors())
}

func TestValidateRestrictedWords(t *testing.T) {
	assert.False(t, ValidateRestrictedWords([]domain.RestrictedWord{{Word: "darn"}}).HasErrors())
	assert.Contains(t, ValidateRestrictedWords([]domain.RestrictedWord{{Word: "two words"}}), "words[0].word")
}
