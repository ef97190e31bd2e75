package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	"chatroom/internal/chat"
	"chatroom/internal/config"
	"chatroom/internal/db"
	"chatroom/internal/middleware"
	"chatroom/internal/notify"
	"chatroom/internal/profile"
	"chatroom/internal/room"
	"chatroom/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	database, err := db.NewDatabase(cfg.DBDSN)
	if err != nil {
		log.Fatalf("failed to connect to DB: %v", err)
	}
	log.Println("connected to PostgreSQL")

	if err := database.AutoMigrate(); err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Println("database schema initialized")

	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.RedisAddr,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("connected to Redis")

	var mailer notify.Mailer = notify.NoopMailer{}
	if cfg.SMTPHost != "" {
		mailer = &notify.SMTPMailer{
			Host: cfg.SMTPHost,
			Port: cfg.SMTPPort,
			From: cfg.SMTPFrom,
			User: cfg.SMTPUser,
			Pass: cfg.SMTPPass,
		}
	}
	notifier := notify.NewService(mailer)

	profileRepo := profile.NewRepository(database.Conn)
	profileService := profile.NewService(profileRepo, notifier)
	profileHandler := profile.NewHandler(profileService)

	userRepo := user.NewRepository(database.Conn)
	userService := user.NewService(userRepo, profileService, cfg.JWTSecret)
	userHandler := user.NewHandler(userService)

	roomRepo := room.NewRepository(database.Conn)
	roomService := room.NewService(roomRepo, notifier)
	roomHandler := room.NewHandler(roomService)

	presence := chat.NewRedisPresence(redisClient)
	hub := chat.NewHub(roomRepo, presence, redisClient)
	go hub.Run()
	go hub.SubscribeRelay(context.Background())

	chatHandler := chat.NewHandler(hub, roomRepo, roomRepo)

	authMiddleware := middleware.NewAuthMiddleware(userService)
	loginLimiter := middleware.NewIPRateLimiter(10, 5, 5*time.Minute)

	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)

	// Public routes
	r.Group(func(r chi.Router) {
		r.Use(loginLimiter.Handle)
		r.Post("/register", userHandler.Register)
		r.Post("/login", userHandler.Login)
	})

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Handle)

		r.Get("/api/users/search", userHandler.SearchUsers)

		r.Get("/api/profile", profileHandler.List)
		r.Get("/api/profile/{userID}", profileHandler.Retrieve)
		r.Patch("/api/profile/{userID}", profileHandler.Update)
		r.Post("/api/profile/{userID}/friend-add", profileHandler.AddFriend)
		r.Delete("/api/profile/{userID}/friend-del", profileHandler.DeleteFriend)

		r.Get("/api/friend-requests-from", profileHandler.RequestsFrom)
		r.Delete("/api/friend-requests-from/{id}", profileHandler.Retract)
		r.Get("/api/friend-requests-to", profileHandler.RequestsTo)
		r.Patch("/api/friend-requests-to/{id}", profileHandler.Resolve)

		r.Get("/api/room", roomHandler.List)
		r.Post("/api/room", roomHandler.Create)
		r.Get("/api/room/{roomSlug}", roomHandler.Retrieve)
		r.Patch("/api/room/{roomSlug}", roomHandler.Update)
		r.Delete("/api/room/{roomSlug}", roomHandler.Delete)
		r.Post("/api/room/{roomSlug}/invite", roomHandler.Invite)
		r.Get("/api/room/{roomSlug}/messages", roomHandler.LazyLoadMessages)

		r.Get("/api/invite-from-me", roomHandler.InvitesFrom)
		r.Delete("/api/invite-from-me/{id}", roomHandler.Retract)
		r.Get("/api/invite-to-me", roomHandler.InvitesTo)
		r.Patch("/api/invite-to-me/{id}", roomHandler.Resolve)

		r.Get("/ws/chat/room/{roomSlug}/", chatHandler.ServeWs)
	})

	log.Printf("server starting on %s", cfg.Addr)
	if err := http.ListenAndServe(cfg.Addr, r); err != nil {
		log.Fatal(err)
	}
}
