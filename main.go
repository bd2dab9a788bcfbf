package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"crumb/auth"
	"crumb/comments"
	"crumb/db"
	"crumb/home"
	"crumb/likes"
	"crumb/middleware"
	"crumb/notify"
	"crumb/posts"
	"crumb/profile"
	"crumb/ratelim"
	"crumb/rdx"
	"crumb/routes"
	"crumb/saves"
	"crumb/search"
	"crumb/storage"
	"crumb/suggestions"

	"github.com/joho/godotenv"
	"github.com/julienschmidt/httprouter"
	"github.com/rs/cors"
)

// Security headers middleware
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		next.ServeHTTP(w, r)
	})
}

// Middleware: Simple request logging
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Printf("[%s] %s %s", r.Method, r.RequestURI, r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func setupRouter(database *db.Database, cache *rdx.Cache, store *storage.Store,
	hub *notify.Hub, mw *middleware.Auth, rateLimiter *ratelim.RateLimiter,
	staticRoot, jwtSecret string) http.Handler {

	router := httprouter.New()
	router.GET("/health", func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Write([]byte("200"))
	})

	authHandler := auth.NewHandler(database, cache, jwtSecret)
	profileHandler := profile.NewHandler(database, store, hub)
	postHandler := posts.NewHandler(database, store, cache, hub)
	likeHandler := likes.NewHandler(database, hub)
	saveHandler := saves.NewHandler(database)
	commentHandler := comments.NewHandler(database, hub)
	searchHandler := search.NewHandler(database)
	suggestionHandler := suggestions.NewHandler(database)
	homeHandler := home.NewHandler(database)

	routes.AddAuthRoutes(router, authHandler, mw, rateLimiter)
	routes.AddProfileRoutes(router, profileHandler, mw, rateLimiter)
	routes.AddPostRoutes(router, postHandler, mw)
	routes.AddLikeRoutes(router, likeHandler, mw)
	routes.AddSaveRoutes(router, saveHandler, mw)
	routes.AddCommentsRoutes(router, commentHandler, mw)
	routes.AddSearchRoutes(router, searchHandler, rateLimiter)
	routes.AddSuggestionsRoutes(router, suggestionHandler, mw, rateLimiter)
	routes.AddHomeRoutes(router, homeHandler, mw)
	routes.AddNotifyRoutes(router, hub, mw)
	routes.AddStaticRoutes(router, staticRoot)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})

	return middleware.RecoverMiddleware(loggingMiddleware(securityHeaders(c.Handler(router))))
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on the environment")
	}

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		log.Fatalf("MONGODB_URI environment variable is not set")
	}
	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatalf("JWT_SECRET environment variable is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	database, err := db.Connect(ctx, mongoURI)
	cancel()
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := database.Close(context.Background()); err != nil {
			log.Printf("MongoDB disconnect failed: %v", err)
		}
	}()
	log.Println("Pinged your deployment. You successfully connected to MongoDB!")

	cache := rdx.New(envOr("REDIS_ADDR", "localhost:6379"))

	staticRoot := envOr("STATIC_ROOT", "./static/uploads")
	baseURL := envOr("PUBLIC_BASE_URL", "http://localhost:"+envOr("PORT", "8080")) + "/static"
	store := storage.New(staticRoot, baseURL)

	hub := notify.NewHub()
	mw := middleware.NewAuth(jwtSecret, cache)
	rateLimiter := ratelim.NewRateLimiter()

	handler := setupRouter(database, cache, store, hub, mw, rateLimiter, staticRoot, jwtSecret)

	port := envOr("PORT", "8080")
	server := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		// Read must outlive the 60s image-upload guard for multi-image posts.
		ReadTimeout:       70 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}

	go func() {
		log.Printf("Server started on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Could not listen on port %s: %v", port, err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)
	<-shutdownChan

	log.Println("🛑 Shutdown signal received. Shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server shutdown failed: %v", err)
	}

	log.Println("✅ Server stopped cleanly")
}
