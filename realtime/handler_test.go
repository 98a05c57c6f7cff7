package realtime

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kinsluv/auth"
	"kinsluv/models"
	"kinsluv/service"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Stub services backing the protocol tests. State lives in maps so tests can
// arrange users and balances directly.

type stubUserService struct {
	users map[string]*models.User
}

func (s *stubUserService) GetUser(_ context.Context, id string) (*models.User, error) {
	return s.users[id], nil
}

func (s *stubUserService) GetOrCreateUser(_ context.Context, id, username string) (*models.User, error) {
	if user, ok := s.users[id]; ok {
		return user, nil
	}
	user := &models.User{ID: id, Username: username, Role: models.RoleViewer, Coins: 100}
	s.users[id] = user
	return user, nil
}

func (s *stubUserService) Register(context.Context, string, string, string) (*models.User, string, error) {
	panic("not used by the protocol")
}

func (s *stubUserService) Login(context.Context, string, string) (*models.User, string, error) {
	panic("not used by the protocol")
}

func (s *stubUserService) TopUp(context.Context, string, int64) (*models.User, error) {
	panic("not used by the protocol")
}

func (s *stubUserService) GrantCoins(context.Context, string, int64) (*models.User, error) {
	panic("not used by the protocol")
}

func (s *stubUserService) SetBanned(context.Context, string, bool) (*models.User, error) {
	panic("not used by the protocol")
}

func (s *stubUserService) ListUsers(context.Context) ([]*models.User, error) {
	panic("not used by the protocol")
}

type stubMessageService struct {
	history []*models.Message
	postErr error
}

func (s *stubMessageService) Post(_ context.Context, userID, room, text string) (*models.Message, error) {
	if s.postErr != nil {
		return nil, s.postErr
	}
	msg := &models.Message{
		ID:       "m1",
		Room:     room,
		UserID:   userID,
		Username: "alice",
		Text:     text,
		Time:     time.Now().UnixMilli(),
	}
	s.history = append(s.history, msg)
	return msg, nil
}

func (s *stubMessageService) Recent(context.Context, string, int) ([]*models.Message, error) {
	return s.history, nil
}

func (s *stubMessageService) Delete(context.Context, string) error {
	return nil
}

type stubGiftService struct {
	catalog []*models.Gift
	sendErr error
}

func (s *stubGiftService) SendGift(_ context.Context, userID, room, giftID string) (*models.GiftReceipt, error) {
	if s.sendErr != nil {
		return nil, s.sendErr
	}
	return &models.GiftReceipt{
		From:      "alice",
		Gift:      s.catalog[0],
		UserCoins: 95,
		Room:      room,
		Time:      time.Now().UnixMilli(),
	}, nil
}

func (s *stubGiftService) ListGifts(context.Context) ([]*models.Gift, error) {
	return s.catalog, nil
}

func (s *stubGiftService) ListTransactions(context.Context, int) ([]*models.TransactionDetail, error) {
	return nil, nil
}

type stubVerifier struct {
	claims map[string]*auth.Claims
}

func (s *stubVerifier) VerifyToken(credential string) (*auth.Claims, error) {
	if claims, ok := s.claims[credential]; ok {
		return claims, nil
	}
	return nil, auth.ErrInvalidToken
}

type protocolFixture struct {
	users    *stubUserService
	messages *stubMessageService
	gifts    *stubGiftService
	server   *httptest.Server
}

func newProtocolFixture(t *testing.T) *protocolFixture {
	users := &stubUserService{users: map[string]*models.User{
		"u1": {ID: "u1", Username: "alice", Role: models.RoleViewer, Coins: 100},
	}}
	messages := &stubMessageService{}
	gifts := &stubGiftService{catalog: []*models.Gift{{ID: "g1", Name: "Rose", Cost: 5}}}
	verifier := &stubVerifier{claims: map[string]*auth.Claims{
		"good-token": {UserID: "u1", Username: "alice"},
	}}

	handler := NewHandler(NewHub(), users, messages, gifts, verifier, 100)
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return &protocolFixture{users: users, messages: messages, gifts: gifts, server: server}
}

func (f *protocolFixture) dial(t *testing.T) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(f.server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, frameType string, payload any) {
	data, err := json.Marshal(payload)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Type: frameType, Data: data})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

// awaitFrame reads frames until one of the wanted type arrives. Broadcast
// frames like join announcements can interleave with targeted replies.
func awaitFrame(t *testing.T, conn *websocket.Conn, frameType string) Envelope {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))
	for {
		_, raw, err := conn.ReadMessage()
		require.NoError(t, err, "waiting for %q frame", frameType)

		var env Envelope
		require.NoError(t, json.Unmarshal(raw, &env))
		if env.Type == frameType {
			return env
		}
	}
}

func join(t *testing.T, conn *websocket.Conn, req JoinRequest) StatePayload {
	t.Helper()
	send(t, conn, TypeJoin, req)
	env := awaitFrame(t, conn, TypeState)

	var state StatePayload
	require.NoError(t, json.Unmarshal(env.Data, &state))
	return state
}

func TestHandler_JoinWithToken(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	state := join(t, conn, JoinRequest{Token: "good-token"})

	require.NotNil(t, state.User)
	assert.Equal(t, "u1", state.User.ID)
	assert.Equal(t, "alice", state.User.Username)
	require.Len(t, state.Gifts, 1)
	assert.Equal(t, "Rose", state.Gifts[0].Name)
	assert.Empty(t, state.Messages)
}

func TestHandler_JoinWithInvalidToken(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	send(t, conn, TypeJoin, JoinRequest{Token: "forged"})
	env := awaitFrame(t, conn, TypeError)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "Invalid token", payload.Message)
}

func TestHandler_JoinWithoutCredentials(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	send(t, conn, TypeJoin, JoinRequest{})
	env := awaitFrame(t, conn, TypeError)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "Auth required", payload.Message)
}

func TestHandler_AnonymousJoinCreatesUser(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	state := join(t, conn, JoinRequest{ID: "anon-1", Username: "drifter"})

	require.NotNil(t, state.User)
	assert.Equal(t, "anon-1", state.User.ID)
	assert.Equal(t, int64(100), state.User.Coins)

	// The fallback persisted the user
	created, ok := f.users.users["anon-1"]
	require.True(t, ok)
	assert.Equal(t, "drifter", created.Username)
}

func TestHandler_BannedUserJoin(t *testing.T) {
	f := newProtocolFixture(t)
	f.users.users["u1"].Banned = true
	conn := f.dial(t)

	send(t, conn, TypeJoin, JoinRequest{Token: "good-token"})
	awaitFrame(t, conn, TypeBanned)
}

func TestHandler_MessageBroadcast(t *testing.T) {
	f := newProtocolFixture(t)

	sender := f.dial(t)
	watcher := f.dial(t)

	join(t, sender, JoinRequest{Token: "good-token"})
	join(t, watcher, JoinRequest{ID: "anon-1", Username: "drifter"})

	send(t, sender, TypeMessage, MessageRequest{Text: "hello room"})

	for _, conn := range []*websocket.Conn{sender, watcher} {
		env := awaitFrame(t, conn, TypeMessage)
		var msg models.Message
		require.NoError(t, json.Unmarshal(env.Data, &msg))
		assert.Equal(t, "hello room", msg.Text)
		assert.Equal(t, "alice", msg.Username)
	}
}

func TestHandler_MessageBeforeJoinIsIgnored(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	send(t, conn, TypeMessage, MessageRequest{Text: "premature"})

	// The connection stays up and a join still works afterwards
	state := join(t, conn, JoinRequest{Token: "good-token"})
	assert.NotNil(t, state.User)
	assert.Empty(t, f.messages.history)
}

func TestHandler_GiftBroadcast(t *testing.T) {
	f := newProtocolFixture(t)

	sender := f.dial(t)
	watcher := f.dial(t)

	join(t, sender, JoinRequest{Token: "good-token"})
	join(t, watcher, JoinRequest{ID: "anon-1", Username: "drifter"})

	send(t, sender, TypeGift, GiftRequest{GiftID: "g1"})

	for _, conn := range []*websocket.Conn{sender, watcher} {
		env := awaitFrame(t, conn, TypeGift)
		var receipt models.GiftReceipt
		require.NoError(t, json.Unmarshal(env.Data, &receipt))
		assert.Equal(t, "alice", receipt.From)
		assert.Equal(t, "Rose", receipt.Gift.Name)
		assert.Equal(t, int64(95), receipt.UserCoins)
	}
}

func TestHandler_GiftFailuresTargetSender(t *testing.T) {
	cases := []struct {
		name    string
		sendErr error
		message string
	}{
		{"insufficient coins", service.ErrInsufficientCoins, "Not enough coins"},
		{"unknown gift", service.ErrGiftNotFound, "Gift not found"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newProtocolFixture(t)
			f.gifts.sendErr = tc.sendErr

			conn := f.dial(t)
			join(t, conn, JoinRequest{Token: "good-token"})

			send(t, conn, TypeGift, GiftRequest{GiftID: "g1"})
			env := awaitFrame(t, conn, TypeError)

			var payload ErrorPayload
			require.NoError(t, json.Unmarshal(env.Data, &payload))
			assert.Equal(t, tc.message, payload.Message)
		})
	}
}

func TestHandler_UnknownFrameType(t *testing.T) {
	f := newProtocolFixture(t)
	conn := f.dial(t)

	send(t, conn, "teleport", struct{}{})
	env := awaitFrame(t, conn, TypeError)

	var payload ErrorPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Contains(t, payload.Message, "teleport")
}

func TestHandler_JoinAnnouncements(t *testing.T) {
	f := newProtocolFixture(t)

	first := f.dial(t)
	join(t, first, JoinRequest{Token: "good-token"})

	second := f.dial(t)
	join(t, second, JoinRequest{ID: "anon-1", Username: "drifter"})

	env := awaitFrame(t, first, TypeSystem)
	var payload SystemPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "drifter joined", payload.Text)

	second.Close()

	env = awaitFrame(t, first, TypeSystem)
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "drifter left", payload.Text)
}

// Pulling the plug mid-session must release room membership even though the
// client never sent a leave.
func TestHandler_DisconnectLeavesRoom(t *testing.T) {
	f := newProtocolFixture(t)

	watcher := f.dial(t)
	join(t, watcher, JoinRequest{Token: "good-token"})

	doomed := f.dial(t)
	join(t, doomed, JoinRequest{ID: "anon-1", Username: "drifter"})
	awaitFrame(t, watcher, TypeSystem)

	doomed.Close()

	env := awaitFrame(t, watcher, TypeSystem)
	var payload SystemPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, "drifter left", payload.Text)
}
