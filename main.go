package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/weaviate/weaviate-go-client/v5/weaviate"

	"ragchat/backend/features/chat"
	"ragchat/backend/features/document"
	"ragchat/backend/features/system"
	"ragchat/backend/internal/adapter/gemini"
	wstore "ragchat/backend/internal/adapter/weaviate"
	"ragchat/backend/internal/config"
	"ragchat/backend/internal/embedding"
	"ragchat/backend/internal/logger"
	"ragchat/backend/internal/middleware"
	"ragchat/backend/internal/rag"
	"ragchat/backend/internal/retry"
	"ragchat/backend/internal/vectorstore"
)

func main() {
	log := slog.New(logger.NewContextHandler(slog.NewJSONHandler(os.Stdout, nil)))
	slog.SetDefault(log)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document registry
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPass, cfg.DBName)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("failed to open db connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	for i := 0; i < cfg.BootstrapRetryAttempts; i++ {
		if err := db.Ping(); err == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1, "max_attempts", cfg.BootstrapRetryAttempts)
		time.Sleep(time.Duration(cfg.BootstrapRetryDelaySeconds) * time.Second)
	}
	if err := db.Ping(); err != nil {
		slog.Error("failed to ping db after retries", "error", err)
		os.Exit(1)
	}

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		slog.Error("failed to create migration driver", "error", err)
		os.Exit(1)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.MigrationPath, "postgres", driver)
	if err != nil {
		slog.Error("failed to create migration instance", "error", err)
		os.Exit(1)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations applied successfully")

	// Vector store: Weaviate when configured, in-process otherwise.
	var store vectorstore.Store
	if cfg.WeaviateHost != "" {
		wClient, err := weaviate.NewClient(weaviate.Config{
			Host:   cfg.WeaviateHost,
			Scheme: cfg.WeaviateScheme,
		})
		if err != nil {
			slog.Error("failed to create weaviate client", "error", err)
			os.Exit(1)
		}
		store = wstore.NewStore(wClient, cfg.IndexClass)
		slog.Info("using weaviate vector store", "host", cfg.WeaviateHost, "class", cfg.IndexClass)
	} else {
		store = vectorstore.NewMemory()
		slog.Warn("WEAVIATE_HOST not set, using in-process vector store; vectors will not survive restarts")
	}

	schedule := retry.Schedule{
		Attempts:    cfg.RetryAttempts,
		InitialWait: time.Second,
		MaxWait:     10 * time.Second,
	}

	// Backends
	geminiClient, err := gemini.NewClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		slog.Error("failed to create gemini client", "error", err)
		os.Exit(1)
	}
	defer geminiClient.Close()

	embedGateway := embedding.NewGateway(
		gemini.NewEmbedder(geminiClient, cfg.EmbeddingModel),
		cfg.EmbeddingDimension, cfg.EmbedBatchSize, schedule)
	storeGateway := vectorstore.NewGateway(store, cfg.EmbeddingDimension, cfg.UpsertBatchSize, schedule)
	generator := gemini.NewGenerator(geminiClient, cfg.GenerationModel)

	queryLogger, err := rag.NewFileQueryLogger(cfg.QueryLogPath)
	if err != nil {
		slog.Warn("failed to create query logger, falling back to stdout", "error", err)
		queryLogger = rag.NewQueryLogger(os.Stdout)
	}

	ragService := rag.NewService(embedGateway, generator, storeGateway, rag.Options{
		ChunkSize:        cfg.ChunkSize,
		ChunkOverlap:     cfg.ChunkOverlap,
		TopK:             cfg.TopK,
		ContextChunks:    cfg.ContextChunks,
		DefaultNamespace: cfg.DefaultNamespace,
		EmbedBatchSize:   cfg.EmbedBatchSize,
		BackendTimeout:   cfg.BackendTimeout(),
		RetrySchedule:    schedule,
	}, queryLogger)

	// Features
	docRepo := document.NewPostgresRepo(db)
	docService := document.NewService(docRepo, ragService)
	docHandler := document.NewHandler(docService)

	chatHandler := chat.NewHandler(ragService)
	systemHandler := system.NewHandler(ragService, docRepo)

	enableCORS := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next(w, r)
		}
	}

	mux := http.NewServeMux()
	mux.Handle("POST /chat", middleware.CorrelationID(enableCORS(chatHandler.Chat)))

	mux.Handle("POST /documents", middleware.CorrelationID(enableCORS(docHandler.Create)))
	mux.Handle("GET /documents", middleware.CorrelationID(enableCORS(docHandler.List)))
	mux.Handle("GET /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Get)))
	mux.Handle("DELETE /documents/{id}", middleware.CorrelationID(enableCORS(docHandler.Delete)))

	mux.Handle("GET /stats", middleware.CorrelationID(enableCORS(systemHandler.GetStats)))
	mux.Handle("GET /health", middleware.CorrelationID(enableCORS(systemHandler.GetHealth)))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.ServerPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
	}()

	slog.Info("server starting", "port", cfg.ServerPort)
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
