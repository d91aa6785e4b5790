package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisplayNumber(t *testing.T) {
	cases := map[string]string{
		"4111111111111111":    "4111 1111 1111 1111",
		"4111 1111 1111 1111": "4111 1111 1111 1111",
		"+79991234567":        "+799 9123 4567",
		"№12345":              "№123 45",
		"ААААББББ":            "АААА ББББ",
		"":                    "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Requisite{CardNumber: in}.DisplayNumber(), in)
	}
}
