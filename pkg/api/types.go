package api

import "encoding/json"

// Request and response shapes for the REST endpoints. Amounts travel as
// decimal strings; addresses as 0x-hex; signatures as hex of the 65-byte
// [R || S || V] form over the operation message (see sign.go).

// ==============================
// Requests
// ==============================

type DepositNativeRequest struct {
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type DepositTokenRequest struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type WithdrawNativeRequest struct {
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type WithdrawTokenRequest struct {
	Asset     string `json:"asset"`
	Amount    string `json:"amount"`
	Signature string `json:"signature"`
}

type MakeOrderRequest struct {
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	Signature  string `json:"signature"`
}

type OrderActionRequest struct {
	Signature string `json:"signature"`
}

// ==============================
// Responses
// ==============================

type ConfigInfo struct {
	FeeAccount string `json:"feeAccount"`
	FeePercent uint64 `json:"feePercent"`
}

type BalanceInfo struct {
	Asset   string `json:"asset"`
	Owner   string `json:"owner"`
	Balance string `json:"balance"`
}

type OrderInfo struct {
	ID         uint64 `json:"id"`
	Owner      string `json:"owner"`
	TokenGet   string `json:"tokenGet"`
	AmountGet  string `json:"amountGet"`
	TokenGive  string `json:"tokenGive"`
	AmountGive string `json:"amountGive"`
	Timestamp  int64  `json:"timestamp"`
	Cancelled  bool   `json:"cancelled"`
	Filled     bool   `json:"filled"`
}

type MakeOrderResponse struct {
	ID uint64 `json:"id"`
}

type EventInfo struct {
	Seq  uint64          `json:"seq"`
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}
