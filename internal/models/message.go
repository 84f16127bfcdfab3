package models

// WhatsAppMessage is a plain text message sent to a bettor.
type WhatsAppMessage struct {
	Phone   string `json:"telefone"`
	Message string `json:"mensagem"`
}

// SentMessage is the messaging API acknowledgement.
type SentMessage struct {
	MessageID string `json:"message_id"`
	Phone     string `json:"telefone"`
}
