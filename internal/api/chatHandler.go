package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"driftchat/internal/middleware"
	"driftchat/internal/pipeline"
	"driftchat/internal/repository"
	"driftchat/internal/types"
)

func InitiateDirectChatHandler(repoChat repository.ChatRepository, repoUser repository.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		var payload types.InitiateChatRequest
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		if payload.TargetID == uuid.Nil {
			http.Error(w, "target_id is required", http.StatusBadRequest)
			return
		}
		if payload.TargetID == principal.UserID {
			http.Error(w, "Cannot open a direct chat with yourself", http.StatusBadRequest)
			return
		}

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		target, err := repoUser.GetUserByID(dbctx, payload.TargetID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "Target user not found", http.StatusNotFound)
				return
			}
			log.Printf("[CHAT] Target lookup failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		chatID, created, err := repoChat.FindOrCreateDirect(dbctx, principal.UserID, target.ID)
		if err != nil {
			log.Printf("[CHAT] Direct chat resolution failed for %s -> %s: %v", principal.UserID, target.ID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		status := types.ChatExists
		if created {
			status = types.ChatCreated
		}
		writeJSON(w, http.StatusOK, types.InitiateChatResponse{
			ChatID: chatID,
			Status: status,
		})
	}
}

func ListChatsHandler(repoChat repository.ChatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		chats, err := repoChat.ChatsForUser(dbctx, principal.UserID)
		if err != nil {
			log.Printf("[CHAT] List failed for %s: %v", principal.UserID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, chats)
	}
}

func GetChatHandler(repoChat repository.ChatRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		chatID, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid chat id", http.StatusBadRequest)
			return
		}

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		isParticipant, err := repoChat.IsParticipant(dbctx, chatID, principal.UserID)
		if err != nil {
			log.Printf("[CHAT] Participant check failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if !isParticipant {
			http.Error(w, "Not authorized to view this chat", http.StatusForbidden)
			return
		}

		chat, err := repoChat.GetChat(dbctx, chatID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "Chat not found", http.StatusNotFound)
				return
			}
			log.Printf("[CHAT] Fetch failed for %s: %v", chatID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, chat)
	}
}

// HistoryHandler serves the ordered history read; authorization is the
// pipeline's, identical to the check a submit goes through.
func HistoryHandler(pipe *pipeline.Pipeline) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principal, ok := middleware.PrincipalFrom(r.Context())
		if !ok {
			http.Error(w, "Authentication required", http.StatusUnauthorized)
			return
		}

		chatID, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid chat id", http.StatusBadRequest)
			return
		}

		messages, err := pipe.History(r.Context(), principal, chatID)
		if err != nil {
			writeAppError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, types.HistoryResponse{
			ChatID:   chatID,
			Messages: messages,
		})
	}
}
