package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/GATEWAY0710/gatewaystore-pos/internal/auth"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/events"
	h "github.com/GATEWAY0710/gatewaystore-pos/internal/http"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/journal"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/repository"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/service"
	"github.com/GATEWAY0710/gatewaystore-pos/internal/upstream"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Config struct {
	HTTPPort        string
	APIBaseURL      string
	LoginURL        string
	RedisAddr       string
	SnapshotBackend string // "redis" or "mongo"
	MongoURI        string
	MongoDatabase   string
	PostgresHost    string
	PostgresPort    int
	PostgresUser    string
	PostgresPass    string
	PostgresDB      string
	MigrationsPath  string
	KafkaBrokers    string
	ClearPolicy     string
	SubmitMode      string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		APIBaseURL:      getEnv("API_BASE_URL", "http://127.0.0.1:8000"),
		LoginURL:        getEnv("LOGIN_URL", "/static/html/user/login.html"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "redis"),
		MongoURI:        getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDatabase:   getEnv("MONGO_DB", "pos"),
		PostgresHost:    getEnv("POSTGRES_HOST", ""),
		PostgresPort:    getEnvInt("POSTGRES_PORT", 5432),
		PostgresUser:    getEnv("POSTGRES_USER", "postgres"),
		PostgresPass:    getEnv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:      getEnv("POSTGRES_DB", "pos"),
		MigrationsPath:  getEnv("MIGRATIONS_PATH", "migrations"),
		KafkaBrokers:    getEnv("KAFKA_BROKERS", ""),
		ClearPolicy:     getEnv("CHECKOUT_CLEAR_POLICY", string(service.ClearAfterVerified)),
		SubmitMode:      getEnv("CHECKOUT_SUBMIT_MODE", string(service.SubmitBatched)),
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func main() {
	cfg := loadConfig()
	ctx := context.Background()

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	snapshots, cleanup, err := buildSnapshotRepo(ctx, cfg, redisClient)
	if err != nil {
		log.Fatalf("failed to set up snapshot store: %v", err)
	}
	defer cleanup()

	jnl, jnlClose := buildJournal(cfg)
	defer jnlClose()

	pub, pubClose := buildPublisher(cfg)
	defer pubClose()

	salesClient := upstream.NewSalesClient(cfg.APIBaseURL)
	catalogClient := upstream.NewCatalogClient(cfg.APIBaseURL)
	authStore := auth.NewStore(redisClient)

	sessions := service.NewSessionManager(snapshots, salesClient, authStore, jnl, pub, service.CheckoutConfig{
		Policy: service.ClearPolicy(cfg.ClearPolicy),
		Mode:   service.SubmitMode(cfg.SubmitMode),
	})
	defer sessions.Close()

	router := h.NewRouter(h.RouterConfig{
		Sessions:       sessions,
		AuthStore:      authStore,
		Journal:        jnl,
		Catalog:        catalogClient,
		LoginURL:       cfg.LoginURL,
		RequestTimeout: cfg.RequestTimeout,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("POS gateway starting on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("server exited")
}

func buildSnapshotRepo(ctx context.Context, cfg *Config, redisClient *redis.Client) (repository.SnapshotRepository, func(), error) {
	if cfg.SnapshotBackend == "mongo" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		repo := repository.NewMongoRepository(client.Database(cfg.MongoDatabase))
		if err := repo.CreateIndexes(ctx); err != nil {
			log.Printf("mongo index creation error: %v", err)
		}
		cleanup := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				log.Printf("mongo disconnect error: %v", err)
			}
		}
		return repo, cleanup, nil
	}

	return repository.NewRedisRepository(redisClient), func() {}, nil
}

func buildJournal(cfg *Config) (journal.Journal, func()) {
	if cfg.PostgresHost == "" {
		return journal.Noop{}, func() {}
	}

	cred := &journal.Credentials{
		Host:              cfg.PostgresHost,
		Port:              cfg.PostgresPort,
		User:              cfg.PostgresUser,
		Password:          cfg.PostgresPass,
		DBName:            cfg.PostgresDB,
		MigrationsDirPath: cfg.MigrationsPath,
	}

	pg, err := journal.NewPostgresJournal(cred)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	if err := pg.RunMigrations(cred); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}

	return pg, func() {
		if err := pg.Close(); err != nil {
			log.Printf("journal close error: %v", err)
		}
	}
}

func buildPublisher(cfg *Config) (events.Publisher, func()) {
	if cfg.KafkaBrokers == "" {
		return events.Noop{}, func() {}
	}

	kp := events.NewKafkaPublisher(splitBrokers(cfg.KafkaBrokers)...)
	return kp, func() {
		if err := kp.Close(); err != nil {
			log.Printf("kafka close error: %v", err)
		}
	}
}

func splitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}
