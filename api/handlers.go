package api

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"

	"kinsluv/realtime"
	"kinsluv/service"

	log "github.com/sirupsen/logrus"
)

// Handlers holds the services the HTTP surface delegates to.
type Handlers struct {
	users         service.UserService
	messages      service.MessageService
	gifts         service.GiftService
	stats         service.StatsService
	verifier      realtime.TokenVerifier
	adminPassword string
	historyLimit  int
	topUpDefault  int64
}

// NewHandlers creates the HTTP handler set.
func NewHandlers(users service.UserService, messages service.MessageService, gifts service.GiftService, stats service.StatsService, verifier realtime.TokenVerifier, adminPassword string, historyLimit int, topUpDefault int64) *Handlers {
	return &Handlers{
		users:         users,
		messages:      messages,
		gifts:         gifts,
		stats:         stats,
		verifier:      verifier,
		adminPassword: adminPassword,
		historyLimit:  historyLimit,
		topUpDefault:  topUpDefault,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListGifts returns the gift catalog.
func (h *Handlers) ListGifts(w http.ResponseWriter, r *http.Request) {
	gifts, err := h.gifts.ListGifts(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to list gifts")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, gifts)
}

// RecentMessages returns history for a room (default room when unspecified).
func (h *Handlers) RecentMessages(w http.ResponseWriter, r *http.Request) {
	room := r.URL.Query().Get("room")
	if room == "" {
		room = realtime.DefaultRoom
	}

	messages, err := h.messages.Recent(r.Context(), room, h.historyLimit)
	if err != nil {
		log.WithError(err).Error("Failed to load messages")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}

// Stats returns the aggregate counters. Shared by the public and admin routes.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.stats.Stats(r.Context())
	if err != nil {
		log.WithError(err).Error("Failed to load stats")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// Register creates an account and returns the user with a token.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}
	if req.Username == "" {
		writeError(w, http.StatusBadRequest, "username required")
		return
	}

	user, token, err := h.users.Register(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		if errors.Is(err, service.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		log.WithError(err).Error("Failed to register user")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login verifies credentials and returns the user with a token.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	user, token, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		log.WithError(err).Error("Failed to log in user")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user, "token": token})
}

type topUpRequest struct {
	Token  string `json:"token"`
	Amount int64  `json:"amount"`
}

// TopUp credits coins to the caller identified by the token in the body.
// A demo convenience kept from the original client.
func (h *Handlers) TopUp(w http.ResponseWriter, r *http.Request) {
	var req topUpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	claims, err := h.verifier.VerifyToken(req.Token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid token")
		return
	}

	amount := req.Amount
	if amount <= 0 {
		amount = h.topUpDefault
	}

	user, err := h.users.TopUp(r.Context(), claims.UserID, amount)
	if err != nil {
		log.WithError(err).Error("Failed to top up user")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

// adminOnly gates a handler behind the shared admin password header.
func (h *Handlers) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pass := r.Header.Get("X-Admin-Pass")
		if subtle.ConstantTimeCompare([]byte(pass), []byte(h.adminPassword)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next(w, r)
	}
}
