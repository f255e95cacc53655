package server

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"social-publisher/infrastructure/configuration"
	httpHandler "social-publisher/interfaces/http"
	"social-publisher/interfaces/middleware"
)

func InitiateRouter(
	postHandler httpHandler.IPostHandler,
	automationHandler httpHandler.IAutomationHandler,
	accountHandler httpHandler.IAccountHandler,
	healthHandler httpHandler.IHealthHandler,
	facebookOAuthHandler httpHandler.IFacebookOAuthHandler,
	instagramOAuthHandler httpHandler.IInstagramOAuthHandler,
	twitterOAuthHandler httpHandler.ITwitterOAuthHandler,
	linkedinOAuthHandler httpHandler.ILinkedInOAuthHandler,
) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	allowedOrigins := []string{"http://localhost:4200", "http://localhost:4201", "http://localhost:3000"}
	if configuration.C.App.FrontendURL != "" {
		allowedOrigins = append(allowedOrigins, configuration.C.App.FrontendURL)
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/healthz", healthHandler.Healthz)

	// OAuth connect flows. Auth URLs are issued to a logged-in user; the
	// callbacks arrive unauthenticated from the provider and resolve the owner
	// through the stored state record.
	api := router.Group("api")
	api.Use(middleware.Auth())

	if facebookOAuthHandler != nil {
		api.GET("/auth/facebook", facebookOAuthHandler.GetAuthURL)
		router.GET("/auth/facebook/callback", facebookOAuthHandler.Callback)
		api.GET("/facebook/status", facebookOAuthHandler.Status)
	}
	if instagramOAuthHandler != nil {
		api.GET("/auth/instagram", instagramOAuthHandler.GetAuthURL)
		router.GET("/auth/instagram/callback", instagramOAuthHandler.Callback)
		api.GET("/instagram/status", instagramOAuthHandler.Status)
	}
	if twitterOAuthHandler != nil {
		api.GET("/auth/twitter", twitterOAuthHandler.GetAuthURL)
		router.GET("/auth/twitter/callback", twitterOAuthHandler.Callback)
		router.GET("/auth/twitter/session", twitterOAuthHandler.VerifySession)
		api.GET("/twitter/status", twitterOAuthHandler.Status)
	}
	if linkedinOAuthHandler != nil {
		api.GET("/auth/linkedin", linkedinOAuthHandler.GetAuthURL)
		router.GET("/auth/linkedin/callback", linkedinOAuthHandler.Callback)
		api.GET("/linkedin/status", linkedinOAuthHandler.Status)
	}

	api.POST("/posts", postHandler.Create)
	api.GET("/posts", postHandler.List)
	api.DELETE("/posts/:id", postHandler.Delete)
	api.GET("/posts/history", postHandler.History)

	api.POST("/automations", automationHandler.Create)

	api.GET("/accounts", accountHandler.List)
	api.POST("/accounts/disconnect", accountHandler.Disconnect)
	api.GET("/facebook/pages/:pageId", accountHandler.FacebookPageDetails)

	return router
}
