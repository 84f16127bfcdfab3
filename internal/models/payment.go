package models

// CheckoutPayment is returned to the client after a checkout preference is created.
type CheckoutPayment struct {
	ID               string `json:"id"`
	InitPoint        string `json:"init_point"`
	SandboxInitPoint string `json:"sandbox_init_point,omitempty"`
}

// PixPayment is returned to the client after a direct PIX payment is created.
type PixPayment struct {
	PaymentID    string `json:"payment_id"`
	Status       string `json:"status"`
	QRCode       string `json:"qr_code"`
	QRCodeBase64 string `json:"qr_code_base64"`
	TicketURL    string `json:"ticket_url,omitempty"`
}

// PaymentStatus is the answer of the status lookup endpoint.
type PaymentStatus struct {
	PaymentID string `json:"paymentId"`
	Status    string `json:"status"` // approved or pending
}
