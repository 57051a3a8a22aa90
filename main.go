package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"notification_server/controllers"
	"notification_server/routes"
	"notification_server/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

func main() {
	host := "127.0.0.1"
	port := "8080"
	if len(os.Args) > 1 {
		host = os.Args[1]
	}
	if len(os.Args) > 2 {
		port = os.Args[2]
	}

	logger := newLogger(os.Getenv("LOG_LEVEL"))
	ctx := context.Background()

	logger.Info("initializing DynamoDB client")
	dynamoClient, err := services.InitializeDynamoDBClient(ctx, os.Getenv("AWS_REGION"), os.Getenv("DYNAMODB_ENDPOINT_URL"))
	if err != nil {
		logger.Error("failed to initialize DynamoDB client", "error", err)
		os.Exit(1)
	}
	dynamoService := &services.DynamoService{Client: dynamoClient, Logger: logger}

	snsClient, err := services.InitializeSNSClient(ctx, os.Getenv("AWS_REGION"))
	if err != nil {
		logger.Error("failed to initialize SNS client", "error", err)
		os.Exit(1)
	}

	githubService := &services.GitHubService{
		BaseURL: githubAPIURL(),
		Client:  &http.Client{Timeout: 30 * time.Second},
		Logger:  logger,
	}

	threadService := &services.ThreadService{
		Dynamo:    dynamoService,
		GitHub:    githubService,
		Publisher: &services.SNSService{Client: snsClient},
		Logger:    logger,
	}
	tagService := &services.TagService{Dynamo: dynamoService, Logger: logger}

	controller := &controllers.NotificationController{
		Dispatcher: &controllers.Dispatcher{Threads: threadService, Tags: tagService, Logger: logger},
		Config: controllers.BackendConfig{
			JWTSigningSecret: os.Getenv("JWT_SIGNING_SECRET"),
			DynamoDBEndpoint: os.Getenv("DYNAMODB_ENDPOINT_URL"),
			ThreadsTable:     os.Getenv("NOTIFICATION_USER_NOTIFICATION_DYNAMODB_TABLE_NAME"),
			ThreadsDateIndex: os.Getenv("NOTIFICATION_USER_NOTIFICATION_DATE_DYNAMODB_INDEX_NAME"),
			TagsTable:        os.Getenv("NOTIFICATION_TAGS_DYNAMODB_TABLE_NAME"),
			SNSTopicARN:      os.Getenv("NOTIFICATION_SNS_ARN"),
		},
		Logger: logger,
	}

	r := mux.NewRouter()

	// Health check endpoint
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "healthy"})
	}).Methods("GET")

	routes.RegisterNotificationRoutes(r, controller)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)

	addr := fmt.Sprintf("%s:%s", host, port)
	server := &http.Server{Addr: addr, Handler: corsHandler}

	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func githubAPIURL() string {
	if url := os.Getenv("GITHUB_API_URL"); url != "" {
		return url
	}
	return services.DefaultGitHubAPIURL
}
