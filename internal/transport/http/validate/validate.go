package validate

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"

	"github.com/baechuer/campus-coord/internal/domain"
)

// LocalDateTime is the zone-less ISO-8601 layout read in the campus timezone.
const LocalDateTime = "2006-01-02T15:04:05"

const maxBodyBytes = 1 << 20

var (
	v     *validator.Validate
	trans ut.Translator
)

func init() {
	v = validator.New(validator.WithRequiredStructEnabled())

	// report fields by their JSON names
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})

	enLocale := en.New()
	trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = enTranslations.RegisterDefaultTranslations(v, trans)

	_ = v.RegisterValidation("password_rule", validatePassword)
	_ = v.RegisterTranslation("password_rule", trans,
		func(u ut.Translator) error {
			return u.Add("password_rule", "{0} must contain at least one letter and one number", true)
		},
		func(u ut.Translator, fe validator.FieldError) string {
			t, _ := u.T("password_rule", fe.Field())
			return t
		},
	)
}

// validatePassword: at least one letter and one digit, drawn from letters,
// digits and @$!%*#?&.
func validatePassword(fl validator.FieldLevel) bool {
	var letter, digit bool
	for _, c := range fl.Field().String() {
		switch {
		case (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z'):
			letter = true
		case c >= '0' && c <= '9':
			digit = true
		case strings.ContainsRune("@$!%*#?&", c):
		default:
			return false
		}
	}
	return letter && digit
}

// DecodeJSON reads a single JSON object and rejects unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return domain.ErrInvalidJSON(err)
	}
	if dec.More() {
		return domain.ErrInvalidJSON(errors.New("trailing data after JSON object"))
	}
	return nil
}

// DecodeOptionalJSON accepts an empty body and leaves dst untouched.
func DecodeOptionalJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	err := DecodeJSON(r, dst)
	var de *domain.Error
	if errors.As(err, &de) && errors.Is(de.Cause, io.EOF) {
		return nil
	}
	return err
}

// Struct runs the validate tags of s and returns every failing field at once.
func Struct(s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.ErrInternal(err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		if _, seen := fields[fe.Field()]; !seen {
			fields[fe.Field()] = fe.Translate(trans)
		}
	}
	return domain.ErrValidationFailed(fields)
}

// ParseTime accepts RFC 3339, or the zone-less local layout read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if loc == nil {
		loc = time.UTC
	}
	if t, err := time.ParseInLocation(LocalDateTime, s, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// Times parses a set of named time fields, reporting all bad ones together.
// Missing values are left for Struct to report.
func Times(loc *time.Location, fields map[string]string) (map[string]time.Time, error) {
	out := make(map[string]time.Time, len(fields))
	bad := map[string]string{}
	for name, raw := range fields {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		t, ok := ParseTime(raw, loc)
		if !ok {
			bad[name] = name + " must be in ISO-8601 format"
			continue
		}
		out[name] = t
	}
	if len(bad) > 0 {
		return nil, domain.ErrValidationFailed(bad)
	}
	return out, nil
}
