package format

import (
	"errors"
	"strings"

	"github.com/rzbill/provision/pkg/store"
	"github.com/rzbill/provision/pkg/types"
)

// Error categories shown to the user.
const (
	CategoryInvalid  = "invalid request"
	CategoryNotFound = "not found"
	CategoryConflict = "conflict"
	CategoryInternal = "error"
)

var hints = map[string]string{
	CategoryInvalid:  "Check the input against 'provision <command> --help'.",
	CategoryNotFound: "List what exists with 'provision nodes list' or 'provision apps list'.",
	CategoryConflict: "The resource already exists; patch it instead of adding it again.",
}

// Categorize maps err to one of the error categories.
func Categorize(err error) string {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return CategoryNotFound
	case errors.Is(err, store.ErrAlreadyExists), err != nil && strings.Contains(err.Error(), "already exists"):
		return CategoryConflict
	case types.IsValidationError(err):
		return CategoryInvalid
	}
	return CategoryInternal
}

// FormatError renders err with its category and, when known, a hint.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	category := Categorize(err)
	var b strings.Builder
	b.WriteString(ErrorColor.Sprint("× " + category + ": "))
	b.WriteString(err.Error())
	if hint, ok := hints[category]; ok {
		b.WriteString("\n  ")
		b.WriteString(DimColor.Sprint(hint))
	}
	return b.String()
}
