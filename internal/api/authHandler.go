package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"driftchat/internal/auth"
	"driftchat/internal/models"
	"driftchat/internal/repository"
	"driftchat/internal/types"
)

var validate = validator.New()

func userDTO(user *models.User) types.UserDTO {
	return types.UserDTO{
		ID:          user.ID,
		Username:    user.Username,
		DisplayName: user.DisplayName,
		Bio:         user.Bio,
		AvatarURL:   user.AvatarURL,
		CreatedAt:   user.CreatedAt,
	}
}

func SignupHandler(repoUser repository.UserRepository, issuer *auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.RegisterRequest

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			log.Printf("[SIGNUP] Decode error: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		payload.Username = strings.TrimSpace(payload.Username)

		if err := validate.Struct(payload); err != nil {
			log.Printf("[SIGNUP] Validation failed: %v", err)
			http.Error(w, "Username must be 3-32 alphanumeric characters and password at least 8 characters", http.StatusBadRequest)
			return
		}

		existingUser, err := repoUser.GetUserByUsername(dbctx, payload.Username)
		if err == nil && existingUser != nil {
			http.Error(w, "Username already taken", http.StatusConflict)
			return
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		hashed, err := auth.HashPassword(payload.Password)
		if err != nil {
			log.Printf("[SIGNUP] Hashing error: %v", err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		user := &models.User{
			ID:            uuid.New(),
			Username:      payload.Username,
			Password_Hash: hashed,
		}

		if err := repoUser.CreateUser(dbctx, user); err != nil {
			log.Printf("[SIGNUP] DB Create error for %s: %v", payload.Username, err)
			http.Error(w, "Failed to create user", http.StatusInternalServerError)
			return
		}

		token, err := issuer.Generate(user.ID, user.Username)
		if err != nil {
			log.Printf("[SIGNUP] Token generation failed: %v", err)
			http.Error(w, "User created, but failed to start session. Please login.", http.StatusCreated)
			return
		}

		log.Printf("[SIGNUP] Success: New user created: %s", user.Username)
		writeJSON(w, http.StatusCreated, types.AuthResponse{
			Token: token,
			User:  userDTO(user),
		})
	}
}

func LoginHandler(repoUser repository.UserRepository, issuer *auth.TokenIssuer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload types.LoginRequest

		dbctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			log.Printf("[LOGIN] Decode error: %v", err)
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		payload.Username = strings.TrimSpace(payload.Username)
		if payload.Username == "" || payload.Password == "" {
			log.Println("[LOGIN] Attempt with empty username or password")
			http.Error(w, "Username and password are required", http.StatusBadRequest)
			return
		}

		user, err := repoUser.GetUserByUsername(dbctx, payload.Username)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				log.Printf("[LOGIN] User not found: %s", payload.Username)
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
				return
			}
			log.Printf("[LOGIN] Database error for %s: %v", payload.Username, err)
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}

		if !auth.VerifyPassword(payload.Password, user.Password_Hash) {
			log.Printf("[LOGIN] Invalid password for user: %s", payload.Username)
			http.Error(w, "Invalid username or password", http.StatusUnauthorized)
			return
		}

		token, err := issuer.Generate(user.ID, user.Username)
		if err != nil {
			log.Printf("[LOGIN] Token generation failed for %s: %v", user.ID, err)
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		log.Printf("[LOGIN] Success: User %s logged in", user.Username)
		writeJSON(w, http.StatusOK, types.AuthResponse{
			Token: token,
			User:  userDTO(user),
		})
	}
}
