package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"kinsluv/service"

	log "github.com/sirupsen/logrus"
)

// Admin moderation handlers. All of these sit behind the X-Admin-Pass gate
// applied in the route table.

const adminTransactionLimit = 500

// AdminListUsers returns every user record.
func (h *Handlers) AdminListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list users")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// AdminListTransactions returns the detailed gift audit log.
func (h *Handlers) AdminListTransactions(w http.ResponseWriter, r *http.Request) {
	transactions, err := h.gifts.ListTransactions(r.Context(), adminTransactionLimit)
	if err != nil {
		log.WithError(err).Error("Failed to list transactions")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, transactions)
}

type addCoinsRequest struct {
	UserID string `json:"userId"`
	Amount int64  `json:"amount"`
}

// AdminAddCoins credits coins to a user.
func (h *Handlers) AdminAddCoins(w http.ResponseWriter, r *http.Request) {
	var req addCoinsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.UserID == "" || req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "userId and amount required")
		return
	}

	user, err := h.users.GrantCoins(r.Context(), req.UserID, req.Amount)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.WithError(err).Error("Failed to grant coins")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

type banRequest struct {
	UserID string `json:"userId"`
}

// AdminBan bans a user. Live sessions are notified through the event bus.
func (h *Handlers) AdminBan(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, true)
}

// AdminUnban lifts a ban.
func (h *Handlers) AdminUnban(w http.ResponseWriter, r *http.Request) {
	h.setBanned(w, r, false)
}

func (h *Handlers) setBanned(w http.ResponseWriter, r *http.Request, banned bool) {
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "userId required")
		return
	}

	user, err := h.users.SetBanned(r.Context(), req.UserID, banned)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		log.WithError(err).Error("Failed to change ban state")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

type deleteMessageRequest struct {
	MessageID string `json:"messageId"`
}

// AdminDeleteMessage removes a message from history.
func (h *Handlers) AdminDeleteMessage(w http.ResponseWriter, r *http.Request) {
	var req deleteMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.MessageID == "" {
		writeError(w, http.StatusBadRequest, "messageId required")
		return
	}

	if err := h.messages.Delete(r.Context(), req.MessageID); err != nil {
		log.WithError(err).Error("Failed to delete message")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
