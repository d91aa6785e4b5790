package models

import "time"

type Merchant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	APIKeyHash string    `json:"-"`
	Disabled   bool      `json:"disabled"`
	Banned     bool      `json:"banned"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Operator struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Banned    bool      `json:"banned"`
	CreatedAt time.Time `json:"createdAt"`
}
