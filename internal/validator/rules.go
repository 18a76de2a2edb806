package validator

import (
	"errors"
	"sort"
	"strings"

	vd "github.com/go-ozzo/ozzo-validation/v4"
)

// MinTrimmedLength rejects strings shorter than n once surrounding whitespace is removed.
func MinTrimmedLength(n int, message string) vd.Rule {
	return vd.By(func(value interface{}) error {
		s, _ := value.(string)
		if len([]rune(strings.TrimSpace(s))) < n {
			return errors.New(message)
		}
		return nil
	})
}

// NotBlank is vd.Required that also treats whitespace-only strings as empty.
func NotBlank(message string) vd.Rule {
	return vd.By(func(value interface{}) error {
		s, _ := value.(string)
		if strings.TrimSpace(s) == "" {
			return errors.New(message)
		}
		return nil
	})
}

// FieldErrors flattens ozzo validation errors into field -> message.
// It returns nil for errors that are not validation errors.
func FieldErrors(err error) map[string]string {
	var errs vd.Errors
	if !errors.As(err, &errs) {
		return nil
	}
	out := make(map[string]string, len(errs))
	for field, e := range errs {
		if nested := FieldErrors(e); nested != nil {
			for k, v := range nested {
				out[field+"."+k] = v
			}
			continue
		}
		out[field] = e.Error()
	}
	return out
}

// ErrorMessage picks one user-facing message out of a validation error, preferring
// fields in the given order and falling back to the alphabetically first field.
func ErrorMessage(err error, order ...string) string {
	fields := FieldErrors(err)
	if len(fields) == 0 {
		if err == nil {
			return ""
		}
		return err.Error()
	}
	for _, f := range order {
		if m, ok := fields[f]; ok {
			return m
		}
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fields[keys[0]]
}
