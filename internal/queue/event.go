// Package queue defines message payloads exchanged over the message broker
// together with the publisher and the background consumers.
package queue

// Queue names.  Both are declared durable by publishers and consumers.
const (
	CheckoutCompletedQueue = "checkout.completed"
	EmailOutboundQueue     = "email.outbound"
)

// CheckoutCompletedEvent is published after a checkout commits.  It
// carries enough of the report for consumers to log or notify without
// querying the primary database.  Amount is a decimal string.
type CheckoutCompletedEvent struct {
	ReportID      uint64 `json:"relatorio_id"`
	TenantID      uint64 `json:"empresa_id"`
	SessionID     uint64 `json:"vaga_id"`
	Plate         string `json:"placa"`
	Category      string `json:"tipo"`
	EntryTime     string `json:"data_hora_entrada"`
	ExitTime      string `json:"data_hora_saida"`
	Duration      string `json:"duracao"`
	Amount        string `json:"valor_pago"`
	PaymentMethod string `json:"forma_pagamento,omitempty"`
	PaymentStatus string `json:"status_pagamento"`
}

// EmailMessage is a plain-text e-mail waiting to be delivered by the
// email.outbound consumer.
type EmailMessage struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}
