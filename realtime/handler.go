package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"kinsluv/auth"
	"kinsluv/events"
	"kinsluv/models"
	"kinsluv/service"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// DefaultRoom is joined when a client does not name one.
const DefaultRoom = "main"

// TokenVerifier recovers the identity bound into a bearer credential.
type TokenVerifier interface {
	VerifyToken(credential string) (*auth.Claims, error)
}

// Handler upgrades connections and drives the join/message/gift protocol
// for each session.
type Handler struct {
	hub          *Hub
	users        service.UserService
	messages     service.MessageService
	gifts        service.GiftService
	verifier     TokenVerifier
	historyLimit int
	upgrader     websocket.Upgrader
}

// NewHandler creates a realtime handler over the given services.
func NewHandler(hub *Hub, users service.UserService, messages service.MessageService, gifts service.GiftService, verifier TokenVerifier, historyLimit int) *Handler {
	return &Handler{
		hub:          hub,
		users:        users,
		messages:     messages,
		gifts:        gifts,
		verifier:     verifier,
		historyLimit: historyLimit,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The browser client is served from arbitrary hosts in dev;
			// origin enforcement lives on the reverse proxy in production.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and starts the session pumps.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}

	s := newSession(conn, h, r.RemoteAddr)
	log.WithField("addr", s.addr).Debug("Connection opened")

	go s.writePump()
	go s.readPump()
}

// dispatch routes one client frame. Handlers run on the session's read
// goroutine, so per-session frames are processed in order.
func (h *Handler) dispatch(s *Session, raw []byte) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		s.sendError("Invalid frame")
		return
	}

	// Operations deliberately run on a background context: a disconnect
	// mid-gift must not abort the debit, only the reply is lost.
	ctx := context.Background()

	switch env.Type {
	case TypeJoin:
		var req JoinRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.sendError("Invalid frame")
			return
		}
		h.handleJoin(ctx, s, req)
	case TypeMessage:
		var req MessageRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.sendError("Invalid frame")
			return
		}
		h.handleMessage(ctx, s, req)
	case TypeGift:
		var req GiftRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			s.sendError("Invalid frame")
			return
		}
		h.handleGift(ctx, s, req)
	default:
		s.sendError(fmt.Sprintf("Unknown frame type %q", env.Type))
	}
}

// handleJoin authenticates the session and enters it into a room.
func (h *Handler) handleJoin(ctx context.Context, s *Session, req JoinRequest) {
	user, errMsg := h.resolveUser(ctx, req)
	if user == nil {
		s.sendError(errMsg)
		return
	}
	if user.Banned {
		s.sendFrame(TypeBanned, struct{}{})
		return
	}

	room := req.Room
	if room == "" {
		room = DefaultRoom
	}

	s.bind(user)
	h.hub.Join(s, room)

	h.hub.Broadcast(room, encodeFrame(TypeSystem, SystemPayload{
		Text: user.Username + " joined",
		Room: room,
	}))

	gifts, err := h.gifts.ListGifts(ctx)
	if err != nil {
		log.WithError(err).Error("Failed to load gift catalog for join")
		s.sendError("Internal error")
		return
	}
	history, err := h.messages.Recent(ctx, room, h.historyLimit)
	if err != nil {
		log.WithError(err).Error("Failed to load room history for join")
		s.sendError("Internal error")
		return
	}

	s.sendFrame(TypeState, StatePayload{
		User:     user,
		Gifts:    gifts,
		Messages: history,
	})

	log.WithFields(log.Fields{
		"userId":   user.ID,
		"username": user.Username,
		"room":     room,
	}).Info("Session joined")
}

// resolveUser turns a join request into a user record, or returns the error
// message to send. The id+username fallback bypasses credential checks and
// is kept for legacy clients.
func (h *Handler) resolveUser(ctx context.Context, req JoinRequest) (user *models.User, errMsg string) {
	if req.Token != "" {
		claims, err := h.verifier.VerifyToken(req.Token)
		if err != nil {
			return nil, "Invalid token"
		}
		u, err := h.users.GetUser(ctx, claims.UserID)
		if err != nil {
			log.WithError(err).Error("Failed to resolve token user")
			return nil, "Internal error"
		}
		if u == nil {
			return nil, "Auth required"
		}
		return u, ""
	}

	if req.ID != "" && req.Username != "" {
		log.WithFields(log.Fields{
			"userId":   req.ID,
			"username": req.Username,
		}).Warn("Anonymous join fallback used; identity is unverified")
		u, err := h.users.GetOrCreateUser(ctx, req.ID, req.Username)
		if err != nil {
			log.WithError(err).Error("Failed to resolve anonymous user")
			return nil, "Internal error"
		}
		return u, ""
	}

	return nil, "Auth required"
}

// handleMessage persists and broadcasts one chat line. Nothing is broadcast
// unless persistence succeeded, so room history and live view stay in sync.
func (h *Handler) handleMessage(ctx context.Context, s *Session, req MessageRequest) {
	user := s.User()
	if user == nil {
		return
	}

	room := req.Room
	if room == "" {
		room = DefaultRoom
	}

	msg, err := h.messages.Post(ctx, user.ID, room, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBanned):
			// Banned sessions stay connected; their sends just do nothing.
		case errors.Is(err, service.ErrUserNotFound):
			s.sendError("Auth required")
		default:
			log.WithError(err).Error("Failed to post message")
			s.sendError("Internal error")
		}
		return
	}

	h.hub.Broadcast(room, encodeFrame(TypeMessage, msg))
}

// handleGift runs the purchase and broadcasts the receipt. All failures are
// targeted at the sender; the room only ever sees completed gifts.
func (h *Handler) handleGift(ctx context.Context, s *Session, req GiftRequest) {
	user := s.User()
	if user == nil {
		return
	}

	room := req.Room
	if room == "" {
		room = DefaultRoom
	}

	receipt, err := h.gifts.SendGift(ctx, user.ID, room, req.GiftID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrBanned):
			// Same silent treatment as messages.
		case errors.Is(err, service.ErrGiftNotFound):
			s.sendError("Gift not found")
		case errors.Is(err, service.ErrInsufficientCoins):
			s.sendError("Not enough coins")
		case errors.Is(err, service.ErrUserNotFound):
			s.sendError("Auth required")
		default:
			log.WithError(err).Error("Failed to send gift")
			s.sendError("Internal error")
		}
		return
	}

	h.hub.Broadcast(room, encodeFrame(TypeGift, receipt))
}

// handleDisconnect releases room membership and announces the departure.
// Runs exactly once per session, from the read pump's unwind.
func (h *Handler) handleDisconnect(s *Session) {
	room := h.hub.Leave(s)
	user := s.User()

	log.WithField("addr", s.addr).Debug("Connection closed")

	if user == nil || room == "" {
		return
	}

	h.hub.Broadcast(room, encodeFrame(TypeSystem, SystemPayload{
		Text: user.Username + " left",
		Room: room,
	}))
}

// SubscribeBusEvents pushes moderation and balance changes to live sessions:
// a ban lands as a banned frame on every session of that user, and a coin
// grant as a refreshed balance.
func (h *Handler) SubscribeBusEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeUserBanned, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.UserBannedEvent)
		if !ok || !e.Banned {
			return
		}
		for _, s := range h.hub.SessionsForUser(e.UserID) {
			s.sendFrame(TypeBanned, struct{}{})
		}
	})

	bus.Subscribe(events.EventTypeCoinsGranted, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.CoinsGrantedEvent)
		if !ok {
			return
		}
		for _, s := range h.hub.SessionsForUser(e.UserID) {
			s.sendFrame(TypeCoins, CoinsPayload{Coins: e.NewCoins})
		}
	})
}
