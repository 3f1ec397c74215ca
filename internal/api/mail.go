package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"learnhub/m/internal/mail"
)

// recipients accepts either a comma separated string or an array of addresses.
type recipients []string

func (r *recipients) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*r = nil
		for _, addr := range strings.Split(one, ",") {
			if addr = strings.TrimSpace(addr); addr != "" {
				*r = append(*r, addr)
			}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return errors.New("recipients must be a string or an array of strings")
	}
	*r = many
	return nil
}

type sendMailRequest struct {
	From    string     `json:"from" validate:"omitempty,max=320"`
	To      recipients `json:"to" validate:"required,dive,email"`
	Cc      recipients `json:"cc" validate:"omitempty,dive,email"`
	Bcc     recipients `json:"bcc" validate:"omitempty,dive,email"`
	Subject string     `json:"subject" validate:"required,max=998"`
	Text    string     `json:"text"`
	HTML    string     `json:"html"`
}

func (h *Handler) sendMail(w http.ResponseWriter, r *http.Request) {
	var req sendMailRequest
	if !h.bind(w, r, &req) {
		return
	}
	result, err := h.mailer.Send(r.Context(), mail.Message{
		From:    req.From,
		To:      req.To,
		Cc:      req.Cc,
		Bcc:     req.Bcc,
		Subject: req.Subject,
		Text:    req.Text,
		HTML:    req.HTML,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}
