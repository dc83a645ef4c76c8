package inbox

import (
	"fmt"
	"html"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/johndosdos/anonbox/internal/common"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultMaxContentLength is the content ceiling used when none is configured.
const DefaultMaxContentLength = 300

// Validator checks an inbound message before it is appended and returns the
// content that should be stored.
type Validator interface {
	Validate(username, content string) (string, error)
}

type sanitizer interface {
	Sanitize(s string) string
}

type messageInput struct {
	Username string `validate:"required,max=64"`
	Content  string `validate:"required"`
}

// SchemaValidator validates message shape with struct tags and strips any
// markup from the content.
type SchemaValidator struct {
	validate  *validator.Validate
	sanitizer sanitizer
	maxLength int
}

// NewSchemaValidator returns a SchemaValidator that rejects content longer
// than maxLength characters. A non-positive maxLength selects
// DefaultMaxContentLength.
func NewSchemaValidator(maxLength int) *SchemaValidator {
	if maxLength <= 0 {
		maxLength = DefaultMaxContentLength
	}

	return &SchemaValidator{
		validate:  validator.New(),
		sanitizer: bluemonday.StrictPolicy(),
		maxLength: maxLength,
	}
}

// Validate returns the trimmed content with markup removed, or an error
// wrapping common.ErrInvalidArgument.
func (v *SchemaValidator) Validate(username, content string) (string, error) {
	in := messageInput{
		Username: username,
		Content:  strings.TrimSpace(content),
	}

	if err := v.validate.Struct(in); err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrInvalidArgument, err)
	}

	if err := v.validate.Var(in.Content, fmt.Sprintf("max=%d", v.maxLength)); err != nil {
		return "", fmt.Errorf("%w: content must be at most %d characters", common.ErrInvalidArgument, v.maxLength)
	}

	// The policy escapes entities in the text it keeps; content is stored as
	// plain text, so only the tag stripping is wanted.
	sanitized := strings.TrimSpace(html.UnescapeString(v.sanitizer.Sanitize(in.Content)))
	if sanitized == "" {
		return "", fmt.Errorf("%w: content is empty after sanitization", common.ErrInvalidArgument)
	}

	return sanitized, nil
}
