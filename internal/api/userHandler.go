package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5"

	"driftchat/internal/repository"
	"driftchat/internal/types"
)

func GetUserHandler(repoUser repository.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := uuid.Parse(mux.Vars(r)["id"])
		if err != nil {
			http.Error(w, "Invalid user id", http.StatusBadRequest)
			return
		}

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		user, err := repoUser.GetUserByID(dbctx, userID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				http.Error(w, "User not found", http.StatusNotFound)
				return
			}
			log.Printf("[USER] Lookup failed for %s: %v", userID, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, userDTO(user))
	}
}

func SearchUsersHandler(repoUser repository.UserRepository) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		users, err := repoUser.SearchUsers(dbctx, r.URL.Query().Get("username"))
		if err != nil {
			log.Printf("[USER] Search failed: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		dtos := make([]types.UserDTO, 0, len(users))
		for _, u := range users {
			dtos = append(dtos, userDTO(u))
		}
		writeJSON(w, http.StatusOK, dtos)
	}
}
