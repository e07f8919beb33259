package models

import "time"

const (
	PaymentCard       = "card"
	PaymentUPI        = "upi"
	PaymentNetBanking = "netbanking"
)

// PaymentRequest carries the payment form. Only the fields of the chosen
// method are read.
type PaymentRequest struct {
	Method     string `json:"method"`
	CardNumber string `json:"card_number,omitempty"`
	CardHolder string `json:"card_holder,omitempty"`
	Expiry     string `json:"expiry,omitempty"`
	CVV        string `json:"cvv,omitempty"`
	UPIID      string `json:"upi_id,omitempty"`
	BankCode   string `json:"bank_code,omitempty"`
}

// PaymentResult is returned by a successful charge.
type PaymentResult struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	Method        string    `json:"method"`
	ProcessedAt   time.Time `json:"processed_at"`
}
