package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"

	"driftchat/internal/auth"
	"driftchat/internal/middleware"
	"driftchat/internal/models"
	"driftchat/internal/types"
)

// stubChatRepo mimics the find-or-create contract in memory: the first call
// for a pair creates, every later call resolves the same id.
type stubChatRepo struct {
	direct map[[2]uuid.UUID]uuid.UUID
}

func newStubChatRepo() *stubChatRepo {
	return &stubChatRepo{direct: make(map[[2]uuid.UUID]uuid.UUID)}
}

func pairKey(a, b uuid.UUID) [2]uuid.UUID {
	if strings.Compare(a.String(), b.String()) > 0 {
		a, b = b, a
	}
	return [2]uuid.UUID{a, b}
}

func (s *stubChatRepo) FindOrCreateDirect(_ context.Context, a, b uuid.UUID) (uuid.UUID, bool, error) {
	key := pairKey(a, b)
	if id, ok := s.direct[key]; ok {
		return id, false, nil
	}
	id := uuid.New()
	s.direct[key] = id
	return id, true, nil
}

func (s *stubChatRepo) GetChat(_ context.Context, chatID uuid.UUID) (*models.Chat, error) {
	return &models.Chat{ID: chatID, Type: models.ChatDirect}, nil
}

func (s *stubChatRepo) ChatsForUser(context.Context, uuid.UUID) ([]*models.Chat, error) {
	return nil, nil
}

func (s *stubChatRepo) IsParticipant(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return true, nil
}

func (s *stubChatRepo) Participants(context.Context, uuid.UUID) ([]models.Participant, error) {
	return nil, nil
}

type stubUserRepo struct {
	users map[uuid.UUID]*models.User
}

func (s *stubUserRepo) CreateUser(context.Context, *models.User) error { return nil }

func (s *stubUserRepo) GetUserByUsername(context.Context, string) (*models.User, error) {
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) GetUserByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, pgx.ErrNoRows
}

func (s *stubUserRepo) SearchUsers(context.Context, string) ([]*models.User, error) {
	return nil, nil
}

func initiate(t *testing.T, handler http.HandlerFunc, caller auth.Principal, targetID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	body, err := json.Marshal(types.InitiateChatRequest{TargetID: targetID})
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/chats/initiate", strings.NewReader(string(body)))
	issuer := auth.NewTokenIssuer("test-secret")
	token, err := issuer.Generate(caller.UserID, caller.Username)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	rec := httptest.NewRecorder()
	middleware.Authenticate(issuer)(handler).ServeHTTP(rec, req)
	return rec
}

func TestInitiateDirectChatCreatedThenExists(t *testing.T) {
	alice := auth.Principal{UserID: uuid.New(), Username: "alice"}
	bob := &models.User{ID: uuid.New(), Username: "bob"}

	chats := newStubChatRepo()
	users := &stubUserRepo{users: map[uuid.UUID]*models.User{bob.ID: bob}}
	handler := InitiateDirectChatHandler(chats, users)

	rec := initiate(t, handler, alice, bob.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var first types.InitiateChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &first))
	require.Equal(t, types.ChatCreated, first.Status)
	require.NotEqual(t, uuid.Nil, first.ChatID)

	rec = initiate(t, handler, alice, bob.ID)
	require.Equal(t, http.StatusOK, rec.Code)

	var second types.InitiateChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &second))
	require.Equal(t, types.ChatExists, second.Status)
	require.Equal(t, first.ChatID, second.ChatID, "the pair must resolve to one canonical chat")
}

func TestInitiateDirectChatRejectsSelf(t *testing.T) {
	alice := auth.Principal{UserID: uuid.New(), Username: "alice"}
	handler := InitiateDirectChatHandler(newStubChatRepo(), &stubUserRepo{})

	rec := initiate(t, handler, alice, alice.UserID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateDirectChatRejectsMissingTarget(t *testing.T) {
	alice := auth.Principal{UserID: uuid.New(), Username: "alice"}
	handler := InitiateDirectChatHandler(newStubChatRepo(), &stubUserRepo{})

	rec := initiate(t, handler, alice, uuid.Nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInitiateDirectChatUnknownTargetIs404(t *testing.T) {
	alice := auth.Principal{UserID: uuid.New(), Username: "alice"}
	handler := InitiateDirectChatHandler(newStubChatRepo(), &stubUserRepo{})

	rec := initiate(t, handler, alice, uuid.New())
	require.Equal(t, http.StatusNotFound, rec.Code)
}
