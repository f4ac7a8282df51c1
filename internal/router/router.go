package router

import (
	"crosspoll/internal/handlers"
	"crosspoll/internal/middleware"
	"crosspoll/internal/services"
	"crosspoll/internal/store"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine, st *store.Store) {
	polls := services.NewPollService(st)

	pollHandler := handlers.NewPollHandler(polls)
	voteHandler := handlers.NewVoteHandler(polls)
	authHandler := handlers.NewAuthHandler(st)

	r.Use(middleware.LoadIdentity(st))

	// Identity
	r.GET("/auth/google", authHandler.GoogleLogin)            // start external login
	r.GET("/auth/google/callback", authHandler.GoogleCallback) // profile sync + sign in
	r.GET("/logout", authHandler.Logout)
	r.GET("/api/me", authHandler.Me)

	// Public reads
	api := r.Group("/api")
	{
		api.GET("/polls", pollHandler.List)                       // paginated feed
		api.GET("/polls/:id", pollHandler.Detail)                 // detail + cross-references
		api.GET("/polls/:id/candidates", pollHandler.Candidates) // cross-reference targets
	}

	// Writes need an authenticated identity
	authorized := r.Group("/api")
	authorized.Use(middleware.AuthRequired())
	{
		authorized.POST("/polls", pollHandler.Create)
		authorized.POST("/polls/:id/votes", voteHandler.Cast)
	}
}
