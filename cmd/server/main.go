package main

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/tmkoushik/cfgvault-backend/internal/captcha"
	"github.com/tmkoushik/cfgvault-backend/internal/config"
	"github.com/tmkoushik/cfgvault-backend/internal/dashboard"
	"github.com/tmkoushik/cfgvault-backend/internal/database"
	"github.com/tmkoushik/cfgvault-backend/internal/handlers"
	"github.com/tmkoushik/cfgvault-backend/internal/routes"
	"github.com/tmkoushik/cfgvault-backend/internal/services"
	"github.com/tmkoushik/cfgvault-backend/internal/store"
)

func main() {
	// Load env
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found")
	}
	// Load configuration
	cfg := config.Load()

	// Load provider credentials; the server refuses to start without them.
	creds, err := config.LoadCredentials(cfg.CredentialsFile)
	if err != nil {
		log.Fatal("Failed to load credentials: ", err)
	}
	log.Printf("✅ Credentials loaded (project: %s)", creds.ProjectID)

	// Connect to PostgreSQL
	log.Printf("Connecting to PostgreSQL...")
	pg, err := database.ConnectPostgres(cfg.PostgresURI)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL:", err)
	}
	defer pg.Close()

	// Connect to Redis
	log.Printf("Connecting to Redis...")
	rdb, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer rdb.Close()

	// Log connection attempt (without showing password)
	log.Printf("Connecting to MongoDB...")
	if cfg.MongoURI != "" {
		maskedURI := cfg.MongoURI
		if strings.Contains(maskedURI, "@") {
			parts := strings.Split(maskedURI, "@")
			if len(parts) > 0 && strings.Contains(parts[0], ":") {
				userPass := strings.Split(parts[0], ":")
				if len(userPass) >= 3 {
					maskedURI = strings.Replace(maskedURI, userPass[2], "***", 1)
				}
			}
		}
		log.Printf("MongoDB URI: %s", maskedURI)
	}

	// Connect to MongoDB
	mongoClient, mongoDB, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal("Failed to connect to MongoDB:", err)
	}
	defer database.DisconnectMongo(mongoClient)

	// Ensure the configs (user_id, created_at) index so listing stays ordered
	// server-side. Queries fall back to a local sort when it is missing.
	if err := store.EnsureIndexes(context.Background(), mongoDB); err != nil {
		log.Printf("⚠️  WARNING: failed to ensure MongoDB config indexes: %v", err)
	} else {
		log.Println("✅ MongoDB config indexes ensured")
	}

	// Wire services
	users := services.NewUserService(pg)
	sessions := services.NewSessionService(rdb)
	gateway := services.NewIdentityGateway(users, sessions)
	challenges := captcha.NewService(captcha.NewRedisStore(rdb))
	records := store.NewRecordStore(mongoDB)
	bus := services.NewEventBus(rdb)

	registry := dashboard.NewRegistry(records, challenges, bus)
	registry.Attach(gateway, bus)

	bus.Start(context.Background())

	// Setup router
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Setup routes
	routes.SetupRoutes(r, routes.Handlers{
		Auth:      handlers.NewAuthHandler(gateway, users),
		Dashboard: handlers.NewDashboardHandler(gateway, registry),
		Events:    handlers.NewEventsHandler(gateway, bus),
	})

	log.Printf("🚀 cfgvault backend running on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
