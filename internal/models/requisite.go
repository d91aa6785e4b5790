package models

import (
	"strings"
	"time"
)

type Requisite struct {
	ID                 string    `json:"id"`
	OperatorID         string    `json:"operatorId"`
	MethodType         string    `json:"methodType"`
	BankType           string    `json:"bankType"`
	CardNumber         string    `json:"cardNumber"`
	RecipientName      string    `json:"recipientName"`
	MinAmount          int64     `json:"minAmount"`
	MaxAmount          int64     `json:"maxAmount"`
	DailyLimit         int64     `json:"dailyLimit"`
	MonthlyLimit       int64     `json:"monthlyLimit"`
	MaxCountPerDay     int       `json:"maxCountTransactions"`
	MinIntervalMinutes int       `json:"intervalMinutes"`
	IsArchived         bool      `json:"isArchived"`
	DeviceID           *string   `json:"deviceId,omitempty"`
	LastUsedAt         time.Time `json:"lastUsedAt"`
	CreatedAt          time.Time `json:"createdAt"`

	// joined from the owning operator
	OperatorName   string `json:"operatorName,omitempty"`
	OperatorBanned bool   `json:"-"`
}

func (r Requisite) HasDevice() bool { return r.DeviceID != nil }

// InRange reports whether amount lies inside the requisite's per-transaction bounds.
func (r Requisite) InRange(amount int64) bool {
	return amount >= r.MinAmount && amount <= r.MaxAmount
}

// DisplayNumber groups the instrument number in blocks of four.
func (r Requisite) DisplayNumber() string {
	n := strings.ReplaceAll(r.CardNumber, " ", "")
	var b strings.Builder
	i := 0
	for _, c := range n {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(c)
		i++
	}
	return b.String()
}
