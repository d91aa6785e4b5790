package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCollect(t *testing.T) {
	errs := Collect(
		Required("orderId", "  "),
		MinInt("amount", 0, 1),
		MaxLen("orderId", "abc", 10),
		OptionalURL("callbackUri", "ftp://x"),
		OptionalURL("successUri", ""),
		Currency("currency", "RU"),
		Currency("currency", "rub"),
	)
	assert.Equal(t, Errs{
		{Field: "orderId", Msg: "required"},
		{Field: "amount", Msg: "must be >= 1"},
		{Field: "callbackUri", Msg: "must be an http(s) url"},
		{Field: "currency", Msg: "must be a 3-letter code"},
	}, errs)
	assert.Equal(t, "orderId: required; amount: must be >= 1; callbackUri: must be an http(s) url; currency: must be a 3-letter code", errs.Error())
}

func TestCollect_Clean(t *testing.T) {
	assert.Empty(t, Collect(Required("a", "x"), OptionalURL("u", "https://shop.test/cb")))
}
