package errors

import (
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/openbench/jurisync/internal/errors"
)

// Classify returns a normalized error class suitable for tagging metrics/logs.
// Structured application errors classify by their code; everything else
// unwraps to the innermost concrete error and classifies by a snake_case-ish
// rendering of its type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	// A structured code carries more signal than a type name, except
	// internal, which classifies by its root cause below.
	var app *apperrors.AppError
	if goerrors.As(err, &app) && app.Code != "" && app.Code != apperrors.ErrCodeInternal {
		return string(app.Code)
	}

	// Unwrap to the innermost error for better signal.
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
