package models

// OutboundMessageRequest represents a WhatsApp message pushed by the hatchery,
// either by an operator over HTTP or by the notification hooks.
type OutboundMessageRequest struct {
	To         string `json:"to" binding:"required"`
	Message    string `json:"message" binding:"required"`
	PreviewURL bool   `json:"preview_url"`
}

// AutomationReply describes the response sent back to a farmer for an inbound command.
type AutomationReply struct {
	Title   string `json:"title"`
	Message string `json:"message"`
}
