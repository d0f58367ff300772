package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"driftchat/internal/auth"
	"driftchat/internal/middleware"
	"driftchat/internal/models"
	"driftchat/internal/pipeline"
	"driftchat/internal/registry"
	"driftchat/internal/types"
)

type fakeChats struct {
	members      map[uuid.UUID]map[uuid.UUID]bool
	participants map[uuid.UUID][]models.Participant
}

func (f *fakeChats) IsParticipant(_ context.Context, chatID, userID uuid.UUID) (bool, error) {
	return f.members[chatID][userID], nil
}

func (f *fakeChats) Participants(_ context.Context, chatID uuid.UUID) ([]models.Participant, error) {
	return f.participants[chatID], nil
}

type fakeMessages struct {
	saved []*models.Message
}

func (f *fakeMessages) Save(_ context.Context, m *models.Message) error {
	f.saved = append(f.saved, m)
	return nil
}

func (f *fakeMessages) HistoryByChat(_ context.Context, chatID uuid.UUID) ([]*models.Message, error) {
	var out []*models.Message
	for _, m := range f.saved {
		if m.ChatID == chatID {
			out = append(out, m)
		}
	}
	return out, nil
}

type wsFixture struct {
	server   *httptest.Server
	issuer   *auth.TokenIssuer
	reg      *registry.Registry
	chatID   uuid.UUID
	alice    auth.Principal
	bob      auth.Principal
	messages *fakeMessages
}

func newWSFixture(t *testing.T) *wsFixture {
	t.Helper()

	chatID := uuid.New()
	alice := auth.Principal{UserID: uuid.New(), Username: "alice"}
	bob := auth.Principal{UserID: uuid.New(), Username: "bob"}

	chats := &fakeChats{
		members: map[uuid.UUID]map[uuid.UUID]bool{
			chatID: {alice.UserID: true, bob.UserID: true},
		},
		participants: map[uuid.UUID][]models.Participant{
			chatID: {
				{UserID: alice.UserID, Username: "alice"},
				{UserID: bob.UserID, Username: "bob"},
			},
		},
	}
	messages := &fakeMessages{}

	reg := registry.New()
	pipe := pipeline.New(chats, messages, reg)
	issuer := auth.NewTokenIssuer("test-secret")

	r := mux.NewRouter()
	protected := r.NewRoute().Subrouter()
	protected.Use(middleware.Authenticate(issuer))
	protected.HandleFunc("/ws", ServeWS(reg, pipe)).Methods("GET")
	protected.HandleFunc("/chats/{id}/messages", HistoryHandler(pipe)).Methods("GET")

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)

	return &wsFixture{
		server:   server,
		issuer:   issuer,
		reg:      reg,
		chatID:   chatID,
		alice:    alice,
		bob:      bob,
		messages: messages,
	}
}

func (f *wsFixture) dial(t *testing.T, p auth.Principal) *websocket.Conn {
	t.Helper()

	token, err := f.issuer.Generate(p.UserID, p.Username)
	require.NoError(t, err)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	header := http.Header{"Authorization": {"Bearer " + token}}

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	// The handshake can complete before the server goroutine has attached
	// its receive end; wait for the subscription so no fan-out is missed.
	fanout := f.reg.Register(p.Username)
	require.Eventually(t, func() bool {
		return fanout.Subscribers() > 0
	}, 2*time.Second, 5*time.Millisecond)

	return conn
}

func readOutbound(t *testing.T, conn *websocket.Conn) models.Message {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg models.Message
	require.NoError(t, json.Unmarshal(frame, &msg))
	return msg
}

func TestWebsocketDialRequiresCredentials(t *testing.T) {
	f := newWSFixture(t)

	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLiveDeliveryToAllParticipants(t *testing.T) {
	f := newWSFixture(t)

	bobConn := f.dial(t, f.bob)
	aliceConn := f.dial(t, f.alice)

	frame := fmt.Sprintf(`{"chatId":%q,"content":"hi"}`, f.chatID)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(frame)))

	bobMsg := readOutbound(t, bobConn)
	require.Equal(t, f.chatID, bobMsg.ChatID)
	require.Equal(t, f.alice.UserID, bobMsg.SenderID)
	require.Equal(t, "hi", *bobMsg.Content)
	require.False(t, bobMsg.Timestamp.IsZero())

	// The sender's own sessions see the message too.
	aliceMsg := readOutbound(t, aliceConn)
	require.Equal(t, bobMsg.ID, aliceMsg.ID)
}

func TestMalformedFrameDoesNotKillSession(t *testing.T) {
	f := newWSFixture(t)

	bobConn := f.dial(t, f.bob)
	aliceConn := f.dial(t, f.alice)

	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	// The session must survive the bad frame and process the next one.
	frame := fmt.Sprintf(`{"chatId":%q,"content":"still here"}`, f.chatID)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(frame)))

	bobMsg := readOutbound(t, bobConn)
	require.Equal(t, "still here", *bobMsg.Content)
}

func TestHistoryAfterLiveDelivery(t *testing.T) {
	f := newWSFixture(t)

	bobConn := f.dial(t, f.bob)
	aliceConn := f.dial(t, f.alice)

	frame := fmt.Sprintf(`{"chatId":%q,"content":"hi"}`, f.chatID)
	require.NoError(t, aliceConn.WriteMessage(websocket.TextMessage, []byte(frame)))
	readOutbound(t, bobConn)

	token, err := f.issuer.Generate(f.alice.UserID, f.alice.Username)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", f.server.URL+"/chats/"+f.chatID.String()+"/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var history types.HistoryResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Equal(t, f.chatID, history.ChatID)
	require.Len(t, history.Messages, 1)
	require.Equal(t, "hi", *history.Messages[0].Content)
}

func TestHistoryRejectsNonParticipant(t *testing.T) {
	f := newWSFixture(t)

	token, err := f.issuer.Generate(uuid.New(), "mallory")
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", f.server.URL+"/chats/"+f.chatID.String()+"/messages", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
}
