package store

import (
	"encoding/base64"
	"fmt"
	"time"
)

// order status values persisted in the db. "not_found" is only ever a
// response to a status query for an unknown id, it is never stored.
const (
	StatusPending  = "pending"
	StatusPaid     = "paid"
	StatusNotFound = "not_found"
)

type Order struct {
	ID           string `gorm:"primaryKey;size:64" json:"order_id"`
	Amount       int64  `json:"amount"`        // requested amount, in micro USDT
	ActualAmount int64  `json:"actual_amount"` // unique amount the payer must send, in micro USDT

	Coin        string `json:"coin"`
	TargetPrice string `json:"target_price"`
	UnlockTime  string `json:"unlock_time"`
	Note        string `json:"note"`

	EncryptedPayload string `json:"encrypted_payload"`

	Status    string `gorm:"index;size:16" json:"status"`
	TxHash    string `json:"tx_hash"`    // set once, when the order is paid
	ProofHash string `json:"proof_hash"` // content hash of the published payload, set with TxHash

	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

// EncodePayload builds the order's timelock payload from its metadata.
// The format is a versioned placeholder, not real encryption.
func EncodePayload(coin, targetPrice, unlockTime, note string, amount int64) string {
	plain := fmt.Sprintf("timelock/v1|%s|%s|%s|%s|%s", coin, targetPrice, unlockTime, note, FormatAmount(amount))
	return base64.StdEncoding.EncodeToString([]byte(plain))
}
