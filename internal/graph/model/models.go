package model

type Notice struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type PaymentResult struct {
	Result   string    `json:"result"`
	Redirect *string   `json:"redirect,omitempty"`
	Notices  []*Notice `json:"notices"`
}

type OrderReceipt struct {
	OrderID string    `json:"orderId"`
	Number  string    `json:"number"`
	Status  string    `json:"status"`
	Total   string    `json:"total"`
	Notices []*Notice `json:"notices"`
}

type GatewayReturnInput struct {
	Error            *string `json:"error,omitempty"`
	ErrorDescription *string `json:"errorDescription,omitempty"`
	Postback         *string `json:"postback,omitempty"`
}
