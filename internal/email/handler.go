// Package email is a development mail sink: it validates outgoing messages
// and keeps the most recent ones in memory for inspection.
package email

import (
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/joao-fontenele/storefront/internal/domain"
	"github.com/joao-fontenele/storefront/internal/httpx"
)

type Message struct {
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Outbox is a bounded in-memory log of sent messages, oldest dropped first.
type Outbox struct {
	mu       sync.Mutex
	messages []Message
	limit    int
}

func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = 100
	}
	return &Outbox{limit: limit}
}

func (o *Outbox) Add(m Message) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, m)
	if over := len(o.messages) - o.limit; over > 0 {
		o.messages = append([]Message(nil), o.messages[over:]...)
	}
}

// Sent returns the stored messages, optionally only those addressed to to.
func (o *Outbox) Sent(to string) []Message {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := []Message{}
	for _, m := range o.messages {
		if to == "" || strings.EqualFold(m.To, to) {
			out = append(out, m)
		}
	}
	return out
}

type Handler struct {
	outbox *Outbox
	logger *slog.Logger
}

func NewHandler(outbox *Outbox, logger *slog.Logger) *Handler {
	return &Handler{
		outbox: outbox,
		logger: logger,
	}
}

type sendRequest struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type sendResponse struct {
	Status string `json:"status"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := httpx.DecodeJSON(r, &req, false); err != nil {
		httpx.WriteError(w, h.logger, "", err)
		return
	}

	addr, err := mail.ParseAddress(strings.TrimSpace(req.To))
	if err != nil {
		httpx.WriteError(w, h.logger, "", domain.Validation("invalid_recipient", "to", "recipient must be a valid email address"))
		return
	}
	subject := strings.TrimSpace(req.Subject)
	if subject == "" {
		httpx.WriteError(w, h.logger, "", domain.Validation("subject_required", "subject", "subject is required"))
		return
	}

	h.outbox.Add(Message{To: addr.Address, Subject: subject, Body: req.Body, SentAt: time.Now().UTC()})
	h.logger.Info("email sent", "to", addr.Address, "subject", subject)

	httpx.WriteJSON(w, h.logger, http.StatusOK, sendResponse{Status: "sent"})
}

// HandleSent serves GET /sent?to=<address>.
func (h *Handler) HandleSent(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, h.logger, http.StatusOK, h.outbox.Sent(r.URL.Query().Get("to")))
}
