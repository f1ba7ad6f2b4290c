package server

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/konverge/devhub/internal/database"
	"github.com/konverge/devhub/internal/handlers"
	"github.com/konverge/devhub/internal/jobs"
	"github.com/konverge/devhub/internal/middleware"
	"github.com/konverge/devhub/internal/services"
	"github.com/konverge/devhub/internal/websocket"
	"github.com/konverge/devhub/pkg/auth"
	"github.com/konverge/devhub/pkg/secrets"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router     *gin.Engine
	DB         *database.Database
	Redis      *redis.Client
	JWTManager *auth.JWTManager
	Hub        *websocket.Hub
	Scheduler  *services.SaveScheduler
	Cleaner    *jobs.SnapshotCleaner

	AuthH    *handlers.AuthHandler
	UserH    *handlers.UserHandler
	RoomH    *handlers.RoomHandler
	MessageH *handlers.HTTPMessageHandler
	FileH    *handlers.FileHandler
	AIH      *handlers.AIHandler
	WSH      *handlers.WebSocketHandler
}

func NewServer() *Server {
	if err := godotenv.Load(".env.local"); err != nil {
		if err := godotenv.Load(); err != nil {
			logrus.Info(".env not found, using environment variables")
		}
	}

	dbConn := &database.Database{}
	if err := dbConn.Connect(); err != nil {
		logrus.Fatalf("Postgres connect failed: %v", err)
	}

	redisOpts, err := redis.ParseURL(os.Getenv("REDIS_URL"))
	if err != nil {
		logrus.Fatalf("invalid REDIS_URL: %v", err)
	}
	rdb := redis.NewClient(redisOpts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		logrus.Fatalf("Redis connect failed: %v", err)
	}

	jwtMgr := auth.NewJWTManager(
		os.Getenv("JWT_SECRET"),
		24*time.Hour,
	)

	cipher, err := secrets.NewCipher(os.Getenv("TOKEN_ENCRYPTION_KEY"))
	if err != nil {
		logrus.Fatalf("invalid TOKEN_ENCRYPTION_KEY: %v", err)
	}

	hub := websocket.NewHub()
	scheduler := services.NewSaveScheduler(dbConn, saveDelay())
	fileSvc := services.NewFileService(dbConn)
	snapshotSvc := services.NewSnapshotService(dbConn)
	assistant := services.NewAssistant(dbConn, cipher)
	cleaner := jobs.NewSnapshotCleaner(dbConn)

	authH := handlers.NewAuthHandler(dbConn, jwtMgr, rdb)
	userH := handlers.NewUserHandler(dbConn, cipher)
	roomH := handlers.NewRoomHandler(dbConn, hub)
	messageH := handlers.NewHTTPMessageHandler(dbConn)
	fileH := handlers.NewFileHandler(dbConn, fileSvc, snapshotSvc)
	aiH := handlers.NewAIHandler(dbConn, assistant, hub)
	editorH := handlers.NewEditorHandler(dbConn, hub, scheduler)
	wsH := handlers.NewWebSocketHandler(hub, editorH)

	router := gin.Default()
	s := &Server{
		Router:     router,
		DB:         dbConn,
		Redis:      rdb,
		JWTManager: jwtMgr,
		Hub:        hub,
		Scheduler:  scheduler,
		Cleaner:    cleaner,
		AuthH:      authH,
		UserH:      userH,
		RoomH:      roomH,
		MessageH:   messageH,
		FileH:      fileH,
		AIH:        aiH,
		WSH:        wsH,
	}
	APIEndpoints(router, s, middleware.AuthMiddleware(jwtMgr, rdb), middleware.WSAuthMiddleware(jwtMgr, rdb))

	return s
}

// saveDelay читает задержку отложенной записи из SAVE_DEBOUNCE_MS
func saveDelay() time.Duration {
	if raw := os.Getenv("SAVE_DEBOUNCE_MS"); raw != "" {
		if ms, err := strconv.Atoi(raw); err == nil && ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
		logrus.Warnf("invalid SAVE_DEBOUNCE_MS %q, using default", raw)
	}
	return services.DefaultSaveDelay
}

func (s *Server) Run() {
	go s.Hub.Run()
	s.Cleaner.Start()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	logrus.Infof("Server starting on port %s", port)
	if err := s.Router.Run(":" + port); err != nil {
		logrus.Fatalf("Server run error: %v", err)
	}
}
