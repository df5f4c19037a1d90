package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaxonomyStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    *AppError
		code   string
		status int
	}{
		{"validation", Validation("bad"), CodeValidation, http.StatusBadRequest},
		{"missing field", MissingField("emailType"), CodeValidation, http.StatusBadRequest},
		{"backend", Backend("optimize", errors.New("boom")), CodeBackend, http.StatusBadGateway},
		{"parse", Parse(errors.New("invalid character")), CodeParse, http.StatusInternalServerError},
		{"schema", Schema("body", "is empty"), CodeSchema, http.StatusInternalServerError},
		{"config", ConfigError("PORT is invalid"), CodeConfigError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.status, tt.err.HTTPStatus())
		})
	}
}

func TestParseMessageHidesCause(t *testing.T) {
	raw := errors.New("I'm sorry, I cannot help with that")
	err := Parse(raw)

	assert.NotContains(t, err.Message, "sorry")
	assert.ErrorIs(t, err, raw)
}

func TestAsAppErrorWrapsUnknown(t *testing.T) {
	plain := errors.New("plain")
	appErr := AsAppError(plain)
	assert.Equal(t, CodeInternalError, appErr.Code)

	wrapped := fmt.Errorf("outer: %w", Schema("body", "is empty"))
	assert.True(t, IsCode(wrapped, CodeSchema))
	assert.Equal(t, CodeSchema, AsAppError(wrapped).Code)
}
