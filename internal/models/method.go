package models

type PaymentMethod struct {
	ID               string  `json:"id"`
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Type             string  `json:"type"`
	Currency         string  `json:"currency"`
	MinPayin         int64   `json:"minPayin"`
	MaxPayin         int64   `json:"maxPayin"`
	MinPayout        int64   `json:"minPayout"`
	MaxPayout        int64   `json:"maxPayout"`
	CommissionPayin  float64 `json:"commissionPayin"`
	CommissionPayout float64 `json:"commissionPayout"`
	IsEnabled        bool    `json:"isEnabled"`
}
