package models

import "time"

type TransactionStatus string

const (
	TxnCreated  TransactionStatus = "CREATED"
	TxnReady    TransactionStatus = "READY"
	TxnDispute  TransactionStatus = "DISPUTE"
	TxnCanceled TransactionStatus = "CANCELED"
	TxnExpired  TransactionStatus = "EXPIRED"
)

// AllStatuses is the set exposed by the enums endpoint and used for validation.
var AllStatuses = []TransactionStatus{TxnCreated, TxnReady, TxnDispute, TxnCanceled, TxnExpired}

// TerminalStatuses never leave their state through the guarded path.
var TerminalStatuses = []TransactionStatus{TxnReady, TxnCanceled, TxnExpired}

func (s TransactionStatus) Valid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s TransactionStatus) Terminal() bool {
	for _, v := range TerminalStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type TransactionType string

const (
	TxnIn  TransactionType = "IN"
	TxnOut TransactionType = "OUT"
)

type Transaction struct {
	ID          string            `json:"id"`
	NumericID   int64             `json:"numericId"`
	MerchantID  string            `json:"merchantId"`
	OrderID     string            `json:"orderId"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Type        TransactionType   `json:"type"`
	MethodID    string            `json:"methodId"`
	RequisiteID string            `json:"requisiteId"`
	OperatorID  string            `json:"operatorId"`
	Status      TransactionStatus `json:"status"`
	Commission  int64             `json:"commission"`
	Rate        *float64          `json:"rate,omitempty"`
	PayerRef    string            `json:"payerRef"`
	PayerIP     *string           `json:"payerIp,omitempty"`
	ClientName  string            `json:"clientName,omitempty"`
	CallbackURI string            `json:"callbackUri"`
	SuccessURI  string            `json:"successUri"`
	FailURI     string            `json:"failUri"`
	IsMock      bool              `json:"isMock"`
	Version     int64             `json:"-"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	ExpiresAt   time.Time         `json:"expiresAt"`
}

// TransactionFilter narrows list queries. Empty fields are ignored.
type TransactionFilter struct {
	MerchantID string
	OperatorID string
	MethodID   string
	OrderID    string
	Status     TransactionStatus
	Limit      int
	Offset     int
}
