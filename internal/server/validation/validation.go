// Package validation is the single home of input rules shared by every
// mutation path: required fields, the institutional email pattern, the
// closed hashtag vocabulary and passwords. Rules are validator/v10 tags; all
// failures wrap common.ErrValidation.
package validation

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/campusfeed/campusfeed/internal/common"
	"github.com/go-playground/validator/v10"
)

// Vocabulary is the closed set of hashtags usable as interests and post tags.
var Vocabulary = []string{"sports", "society", "fun", "study"}

// institutionalTag names the email pattern rule registered on EmailValidator.
const institutionalTag = "institutional"

var (
	validate = validator.New(validator.WithRequiredStructEnabled())

	vocabularyRule = "oneof=" + strings.Join(Vocabulary, " ")
	passwordRule   = fmt.Sprintf("max=%d", common.MaxPasswordBytes)
	interestsRule  = fmt.Sprintf("min=1,max=%d", common.MaxInterestHashtags)
)

// Required fails when value is empty or whitespace only.
func Required(field, value string) error {
	if err := validate.Var(strings.TrimSpace(value), "required"); err != nil {
		return fmt.Errorf("%w: %s is required", common.ErrValidation, field)
	}
	return nil
}

// NormalizeTag lowercases and trims a tag and drops a leading '#'.
func NormalizeTag(tag string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tag)), "#")
}

// IsAllowedTag reports whether tag (after normalisation) is in Vocabulary.
func IsAllowedTag(tag string) bool {
	return validate.Var(NormalizeTag(tag), vocabularyRule) == nil
}

// FilterHashtags normalises tags, drops anything outside Vocabulary and
// removes duplicates, keeping first-seen order.
func FilterHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		n := NormalizeTag(t)
		if !IsAllowedTag(n) || slices.Contains(out, n) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// PostHashtags validates the tags of a new post. Unknown tags are stripped;
// the result must still be non-empty.
func PostHashtags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: at least one hashtag is required", common.ErrValidation)
	}
	valid := FilterHashtags(tags)
	if len(valid) == 0 {
		return nil, fmt.Errorf("%w: post must contain at least one valid hashtag from: %s",
			common.ErrValidation, strings.Join(Vocabulary, ", "))
	}
	return valid, nil
}

// InterestHashtags validates a profile's interest set: every tag from
// Vocabulary and, once duplicates are folded, between 1 and
// common.MaxInterestHashtags of them. Unlike post tags, unknown interests are
// rejected rather than stripped.
func InterestHashtags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, fmt.Errorf("%w: hashtags are required", common.ErrValidation)
	}
	var invalid []string
	for _, t := range tags {
		if !IsAllowedTag(t) {
			invalid = append(invalid, t)
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("%w: invalid hashtags: %s. Allowed hashtags are: %s",
			common.ErrValidation, strings.Join(invalid, ", "), strings.Join(Vocabulary, ", "))
	}

	unique := FilterHashtags(tags)
	if err := validate.Var(unique, interestsRule); err != nil {
		return nil, fmt.Errorf("%w: you can only add up to %d hashtags: %s",
			common.ErrValidation, common.MaxInterestHashtags, strings.Join(Vocabulary, ", "))
	}
	return unique, nil
}

// Username trims and lowercases a handle and checks it is present.
func Username(username string) (string, error) {
	if err := Required("username", username); err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(username)), nil
}

// PostContent trims content and checks it is present.
func PostContent(content string) (string, error) {
	if err := Required("content", content); err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// Password checks a password can be stored: present and no longer than
// bcrypt accepts.
func Password(password string) error {
	if err := Required("password", password); err != nil {
		return err
	}
	if err := validate.Var([]byte(password), passwordRule); err != nil {
		return fmt.Errorf("%w: password must be at most %d bytes", common.ErrValidation, common.MaxPasswordBytes)
	}
	return nil
}

// NewPassword checks a replacement password and its confirmation.
func NewPassword(password, confirm string) error {
	if strings.TrimSpace(password) == "" || strings.TrimSpace(confirm) == "" {
		return fmt.Errorf("%w: new password cannot be empty or contain only spaces", common.ErrValidation)
	}
	if validate.VarWithValue(confirm, password, "eqfield") != nil {
		return fmt.Errorf("%w: new passwords do not match", common.ErrValidation)
	}
	return Password(password)
}

// EmailValidator checks addresses for syntax and the institutional pattern.
type EmailValidator struct {
	v *validator.Validate
}

// NewEmailValidator compiles pattern and registers it as a rule.
func NewEmailValidator(pattern string) (*EmailValidator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile email pattern: %w", err)
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	err = v.RegisterValidation(institutionalTag, func(fl validator.FieldLevel) bool {
		return re.MatchString(fl.Field().String())
	})
	if err != nil {
		return nil, fmt.Errorf("register email pattern: %w", err)
	}
	return &EmailValidator{v: v}, nil
}

// Normalize trims and lowercases an address.
func (v *EmailValidator) Normalize(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Validate normalises email and checks both syntax and the pattern.
func (v *EmailValidator) Validate(email string) (string, error) {
	if err := Required("email", email); err != nil {
		return "", err
	}
	email = v.Normalize(email)
	if err := v.v.Var(email, "email"); err != nil {
		return "", fmt.Errorf("%w: invalid email format", common.ErrValidation)
	}
	if err := v.v.Var(email, institutionalTag); err != nil {
		return "", fmt.Errorf("%w: please provide a university official email", common.ErrValidation)
	}
	return email, nil
}
