package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"hixa-chat-service/internal/auth"
	"hixa-chat-service/internal/config"
	"hixa-chat-service/internal/db"
	"hixa-chat-service/internal/handlers"
	"hixa-chat-service/internal/middleware"
	"hixa-chat-service/internal/notifications"
	"hixa-chat-service/internal/observability"
	"hixa-chat-service/internal/rabbitmq"
	"hixa-chat-service/internal/repositories"
	"hixa-chat-service/internal/rooms"
	"hixa-chat-service/internal/telemetry"
	"hixa-chat-service/internal/ws"
)

const serviceName = "hixa-chat-service"

func main() {
	cfg := config.Load()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	shutdownTracing := observability.SetupTracing(context.Background(), serviceName, cfg.OTLPEndpoint)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	auditPublisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer auditPublisher.Close()
	audit := telemetry.NewAuditEmitter(auditPublisher, cfg.AuditRouting, serviceName, cfg.Environment)

	if cfg.AMQPURL != "" {
		eventPublisher, err := observability.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			log.Printf("event publisher disabled: %v", err)
		} else {
			observability.SetPublisher(eventPublisher)
			defer eventPublisher.Close()
		}
	}

	userRepo := repositories.NewUserRepo(database)
	projectRepo := repositories.NewProjectRepo(database)
	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)

	hub := ws.NewHub()
	defer hub.Close()

	verifier := auth.NewHMACVerifier(cfg.JWTSecret)
	access := rooms.NewAccessChecker(roomRepo, projectRepo)
	provisioner := rooms.NewProvisioner(userRepo, roomRepo, messageRepo)
	notifier := notifications.NewNotifier(notificationRepo, hub)

	chatHandler := handlers.NewChatHandler(roomRepo, messageRepo, access, notifier, hub, audit)
	notificationHandler := handlers.NewNotificationHandler(notificationRepo)
	proposalHandler := handlers.NewProposalHandler(projectRepo, provisioner, notifier, audit)
	wsHandler := ws.NewHandler(hub, access, userRepo, messageRepo, verifier)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(serviceName))
	router.Use(observability.HTTPMetricsMiddleware())

	authMiddleware := middleware.AuthMiddleware(verifier)

	router.GET("/rooms", authMiddleware, chatHandler.ListProjectRooms)
	router.GET("/rooms/:project_room_id/chat-rooms", authMiddleware, chatHandler.ListChatRooms)
	router.GET("/chat-rooms/:chat_room_id/messages", authMiddleware, chatHandler.GetChatRoomMessages)
	router.POST("/chat-rooms/:chat_room_id/messages", authMiddleware, chatHandler.PostChatMessage)
	router.POST("/chat-rooms/:chat_room_id/read", authMiddleware, chatHandler.MarkRoomRead)
	router.GET("/chat-rooms/:chat_room_id/unread", authMiddleware, chatHandler.GetChatRoomUnread)
	router.PATCH("/chat-rooms/:chat_room_id/archive", authMiddleware, chatHandler.ArchiveChatRoom)

	router.GET("/notifications", authMiddleware, notificationHandler.ListNotifications)
	router.PATCH("/notifications/:notification_id/read", authMiddleware, notificationHandler.MarkNotificationRead)
	router.PATCH("/notifications/read-all", authMiddleware, notificationHandler.MarkAllNotificationsRead)

	router.POST("/projects", authMiddleware, proposalHandler.CreateProject)
	router.POST("/projects/:project_id/proposals", authMiddleware, proposalHandler.SubmitProposal)
	router.POST("/proposals/:proposal_id/accept", authMiddleware, proposalHandler.AcceptProposal)

	router.GET("/ws", wsHandler.Handle)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	handlers.RegisterDebugRoutes(router, audit, hub, cfg.DebugEndpoint)

	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
