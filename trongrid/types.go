package trongrid

// Response shapes of the TronGrid TRC20 transfer listing,
// GET /v1/accounts/{address}/transactions/trc20.

type trc20Response struct {
	Data    []trc20Event `json:"data"`
	Success bool         `json:"success"`
	Meta    meta         `json:"meta"`
}

type trc20Event struct {
	TransactionID  string    `json:"transaction_id"`
	TokenInfo      tokenInfo `json:"token_info"`
	BlockTimestamp int64     `json:"block_timestamp"`
	From           string    `json:"from"`
	To             string    `json:"to"`
	Type           string    `json:"type"`
	Value          string    `json:"value"` // amount in token base units, decimal string
}

type tokenInfo struct {
	Symbol   string `json:"symbol"`
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Name     string `json:"name"`
}

type meta struct {
	At       int64 `json:"at"`
	PageSize int   `json:"page_size"`
}

// Transfer is one inbound token transfer to the receiving address, amounts in
// micro USDT, newest first as returned by the api.
type Transfer struct {
	From      string
	To        string
	Amount    int64
	TxHash    string
	Timestamp int64
}
