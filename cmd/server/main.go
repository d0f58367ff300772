package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	tasks "driftchat/internal/Tasks"
	"driftchat/internal/api"
	"driftchat/internal/auth"
	"driftchat/internal/config"
	"driftchat/internal/db"
	"driftchat/internal/middleware"
	"driftchat/internal/pipeline"
	"driftchat/internal/registry"
	"driftchat/internal/repository"
)

func main() {

	cfg := config.Load()

	pool, err := db.Connect(cfg.DatabaseURL)

	if err != nil {
		log.Fatal("Failed to connect to database:", err)
		return
	}
	defer pool.Close()

	issuer := auth.NewTokenIssuer(cfg.AuthKey)

	repoUser := repository.NewUserRepo(pool)
	repoChat := repository.NewChatRepo(pool)
	repoMessages := repository.NewMessagesRepo(pool)

	reg := registry.New()
	pipe := pipeline.New(repoChat, repoMessages, reg)

	sweeper := tasks.NewRegistrySweeper(reg)
	sweeper.Start()

	authn := middleware.Authenticate(issuer)

	r := mux.NewRouter()

	r.HandleFunc("/signup", api.SignupHandler(repoUser, issuer)).Methods("POST")
	r.HandleFunc("/login", api.LoginHandler(repoUser, issuer)).Methods("POST")

	protected := r.NewRoute().Subrouter()
	protected.Use(authn)
	protected.HandleFunc("/chats/initiate", api.InitiateDirectChatHandler(repoChat, repoUser)).Methods("POST")
	protected.HandleFunc("/chats", api.ListChatsHandler(repoChat)).Methods("GET")
	protected.HandleFunc("/chats/{id}", api.GetChatHandler(repoChat)).Methods("GET")
	protected.HandleFunc("/chats/{id}/messages", api.HistoryHandler(pipe)).Methods("GET")
	protected.HandleFunc("/users/search", api.SearchUsersHandler(repoUser)).Methods("GET")
	protected.HandleFunc("/users/{id}", api.GetUserHandler(repoUser)).Methods("GET")
	protected.HandleFunc("/upload", api.UploadHandler(cfg.UploadDir)).Methods("POST")
	protected.HandleFunc("/ws", api.ServeWS(reg, pipe)).Methods("GET")

	r.PathPrefix("/uploads/").Handler(
		http.StripPrefix("/uploads/", http.FileServer(http.Dir(cfg.UploadDir))))
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Printf("🚀 Server starting on :%s...\n", cfg.Port)
		if err := server.ListenAndServe(); err != nil {
			if err != http.ErrServerClosed {
				log.Fatalf("ListenAndServe: %v", err)
			}
		}
	}()

	<-stop

	fmt.Println("\nShutdown signal received. Cleaning up...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}

	fmt.Println("Graceful shutdown complete. Goodnight!")
}
