package format

import (
	"errors"
	"fmt"
	"testing"

	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/types"
	"github.com/stretchr/testify/assert"
)

func TestCategorize(t *testing.T) {
	assert.Equal(t, CategoryNotFound, Categorize(fmt.Errorf("node h1: %w", store.ErrNotFound)))
	assert.Equal(t, CategoryConflict, Categorize(types.NewValidationError("node h1 already exists")))
	assert.Equal(t, CategoryInvalid, Categorize(types.NewValidationError("unknown flavor 'x'")))
	assert.Equal(t, CategoryInternal, Categorize(errors.New("disk full")))
}

func TestFormatError(t *testing.T) {
	EnableColor(false)
	assert.Equal(t, "", FormatError(nil))
	assert.Equal(t, "× error: disk full", FormatError(errors.New("disk full")))

	out := FormatError(types.NewValidationError("unknown flavor 'x'"))
	assert.Contains(t, out, "× invalid request: unknown flavor 'x'")
	assert.Contains(t, out, "--help")
}
