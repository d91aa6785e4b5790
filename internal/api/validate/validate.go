package validate

import (
	"net/url"
	"strconv"
	"strings"
)

type ErrField struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

type Errs []ErrField

func (e Errs) Error() string {
	var b strings.Builder
	for i, ef := range e {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(ef.Field + ": " + ef.Msg)
	}
	return b.String()
}

// Collect drops nil results.
func Collect(checks ...*ErrField) Errs {
	var out Errs
	for _, c := range checks {
		if c != nil {
			out = append(out, *c)
		}
	}
	return out
}

func Required(field, value string) *ErrField {
	if strings.TrimSpace(value) == "" {
		return &ErrField{Field: field, Msg: "required"}
	}
	return nil
}

func MinInt(field string, v, min int64) *ErrField {
	if v < min {
		return &ErrField{Field: field, Msg: "must be >= " + strconv.FormatInt(min, 10)}
	}
	return nil
}

func MaxLen(field, value string, n int) *ErrField {
	if len(value) > n {
		return &ErrField{Field: field, Msg: "must be at most " + strconv.Itoa(n) + " characters"}
	}
	return nil
}

// OptionalURL accepts an empty value or an absolute http(s) URL.
func OptionalURL(field, value string) *ErrField {
	if value == "" {
		return nil
	}
	u, err := url.Parse(value)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return &ErrField{Field: field, Msg: "must be an http(s) url"}
	}
	return nil
}

func Currency(field, value string) *ErrField {
	if value == "" {
		return nil
	}
	if len(value) != 3 {
		return &ErrField{Field: field, Msg: "must be a 3-letter code"}
	}
	for _, c := range value {
		if (c < 'A' || c > 'Z') && (c < 'a' || c > 'z') {
			return &ErrField{Field: field, Msg: "must be a 3-letter code"}
		}
	}
	return nil
}
