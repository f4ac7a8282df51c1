package main

import (
	"log"
	"os"

	"crosspoll/internal/db"
	"crosspoll/internal/router"
	"crosspoll/internal/store"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, finding env vars from system")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		// Fallback for local dev if not set
		dsn = "host=localhost user=postgres password=postgres dbname=crosspoll port=5432 sslmode=disable"
	}

	gdb, err := db.Open(dsn)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	st := store.New(gdb)

	r := gin.Default()

	// Setup Sessions
	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		secret = "secret_key_change_me"
	}
	r.Use(sessions.Sessions("crosspoll_session", cookie.NewStore([]byte(secret))))

	router.RegisterRoutes(r, st)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("crosspoll server starting on :%s", port)
	if err := r.Run(":" + port); err != nil {
		log.Fatal(err)
	}
}
