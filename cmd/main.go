package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"radargo/backend/internal/api/handler"
	"radargo/backend/internal/matchhub"
	"radargo/backend/internal/models"
	"radargo/backend/internal/notify"
	"radargo/backend/internal/presence"
	"radargo/backend/internal/storage"
	"radargo/backend/internal/tasks"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := envOr("DATABASE_DSN",
		"host=localhost user=user password=password dbname=radargodb port=5432 sslmode=disable")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     envOr("REDIS_ADDR", "localhost:6379"),
		Password: "",
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Participant{},
		&models.QueueEntry{},
		&models.Session{},
		&models.Connection{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

func main() {
	log.Println("Starting RadarGo Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	// 1. Dependencies
	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)

	// 2. Notifier (only when a bot token is configured)
	var notifier notify.Notifier = notify.Noop{}
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tg, err := notify.NewTelegramNotifier(token, s)
		if err != nil {
			log.Printf("Warning: telegram notifier disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	// 3. Hub, matcher, presence
	hub := matchhub.NewHub(s)
	matcher := matchhub.NewMatcherService(hub, s, notifier)
	presenceSvc := presence.NewService(s)
	tracker := presence.NewTracker(s)

	go hub.Run()
	hub.StartChangeListener()
	go matcher.Run()
	go tracker.Run()
	go feedTracker(s, tracker)

	// 4. Scheduled maintenance (presence sweep, orphan session reaper)
	redisOpt := asynq.RedisClientOpt{Addr: envOr("REDIS_ADDR", "localhost:6379")}
	go tasks.StartWorker(redisOpt, tasks.NewHandlers(s))

	// 5. Gin routing
	r := gin.Default()
	h := handler.NewHandler(hub, matcher, presenceSvc, tracker, s)

	r.GET("/anonid", h.GetAnonID)
	r.GET("/ws", h.ServeWebSocket)

	r.POST("/presence/online", h.AnnounceOnline)
	r.POST("/presence/heartbeat", h.Heartbeat)
	r.POST("/presence/offline", h.AnnounceOffline)
	r.POST("/presence/profile", h.UpdateProfile)
	r.GET("/presence", h.ListPresence)
	r.GET("/presence/count", h.OnlineCount)

	r.POST("/queue/join", h.JoinQueue)
	r.POST("/queue/leave", h.LeaveQueue)
	r.GET("/queue/:participantId", h.QueueStatus)

	r.GET("/sessions/:id", h.GetSession)
	r.POST("/sessions/:id/end", h.EndSession)

	r.POST("/connections", h.CreateConnection)
	r.PATCH("/connections/:id/notes", h.UpdateConnectionNotes)
	r.GET("/connections/:participantId", h.ListConnections)

	server := &http.Server{
		Addr:           envOr("LISTEN_ADDR", ":8080"),
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}

// feedTracker replays the shared change channel into the presence tracker.
func feedTracker(s *storage.Service, tracker *presence.Tracker) {
	pubsub := s.SubscribeChanges()
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var ev models.ChangeEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			log.Printf("Error unmarshalling change event: %v", err)
			continue
		}
		tracker.EventCh <- ev
	}
}
