package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"anoa.com/fandomspace/internal/config"
	"anoa.com/fandomspace/internal/middleware"
	"anoa.com/fandomspace/internal/store"
	"anoa.com/fandomspace/pkg/metrics"

	attachmentHttp "anoa.com/fandomspace/internal/modules/attachment/delivery/http"
	commerceHttp "anoa.com/fandomspace/internal/modules/commerce/delivery/http"
	feedHttp "anoa.com/fandomspace/internal/modules/feed/delivery/http"
	moderationHttp "anoa.com/fandomspace/internal/modules/moderation/delivery/http"
	notiHttp "anoa.com/fandomspace/internal/modules/notification/delivery/http"
	socialHttp "anoa.com/fandomspace/internal/modules/social/delivery/http"
	statHttp "anoa.com/fandomspace/internal/modules/stat/delivery/http"
	userHttp "anoa.com/fandomspace/internal/modules/user/delivery/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	engine *gin.Engine
	http   *http.Server
}

func NewServer(cfg *config.Config, st *store.Store, redisClient *redis.Client) *Server {
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authMiddleware := middleware.NewAuthMiddleware(st.UserRepo, cfg.JWTSecret, cfg.JWTTTL)

	userHandler := userHttp.NewUserHandler(st.Users, authMiddleware)
	socialHandler := socialHttp.NewSocialHandler(st.Social)
	feedHandler := feedHttp.NewFeedHandler(st.Feed)
	commerceHandler := commerceHttp.NewCommerceHandler(st.Commerce)
	moderationHandler := moderationHttp.NewModerationHandler(st.Moderation)
	notificationHandler := notiHttp.NewNotificationHandler(st.Notifications, redisClient)
	statHandler := statHttp.NewStatHandler(st.Stats)
	attachmentHandler := attachmentHttp.NewAttachmentHandler(st.Attachments)

	router := gin.New()

	setupCORS(router, cfg.AllowedOrigins)

	router.Use(gin.Recovery())
	router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/metrics", "/healthz"},
	}))
	router.Use(metrics.GinMiddleware())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	// Public routes (no auth required)
	auth := api.Group("/auth")
	{
		auth.POST("/register", userHandler.Register)
		auth.POST("/login", userHandler.Login)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	{
		adminGroup := protected.Group("/admin")
		adminGroup.Use(authMiddleware.RequireAdmin())
		{
			adminGroup.GET("/summary", statHandler.GetSummary)
			adminGroup.PUT("/artists/:id/approve", userHandler.ApproveArtist)

			adminGroup.GET("/reports", moderationHandler.GetReports)
			adminGroup.PUT("/reports/:id", moderationHandler.ResolveReport)
			adminGroup.POST("/users/:id/warnings", moderationHandler.WarnUser)
			adminGroup.GET("/users/:id/warnings", moderationHandler.GetUserWarnings)
			adminGroup.POST("/users/:id/suspend", moderationHandler.SuspendUser)
			adminGroup.POST("/users/:id/unsuspend", moderationHandler.UnsuspendUser)
			adminGroup.DELETE("/users/:id", moderationHandler.DeleteUser)
		}

		// Profile routes
		protected.GET("/me", userHandler.Me)
		protected.PUT("/me", userHandler.UpdateProfile)
		protected.PUT("/me/fandom", userHandler.UpdateFandomSettings)
		protected.POST("/me/revert-to-fan", userHandler.RevertToFan)
		protected.GET("/me/warnings", moderationHandler.GetMyWarnings)
		protected.GET("/profiles/:username", userHandler.GetByUsername)
		protected.GET("/artists", userHandler.ListArtists)

		// Social graph
		protected.POST("/users/:id/follow", socialHandler.ToggleFollow)
		protected.POST("/users/:id/block", socialHandler.ToggleBlock)
		protected.GET("/users/:id/relationship", socialHandler.Relationship)
		protected.GET("/users/:id/followers", socialHandler.GetFollowers)
		protected.GET("/following", socialHandler.GetFollowedArtists)
		protected.GET("/blocks", socialHandler.GetBlockedUsers)

		// Feed
		protected.GET("/feed", feedHandler.GetFeed)
		protected.GET("/saved", feedHandler.GetSavedPosts)
		protected.GET("/artists/:id/threads", feedHandler.GetFanThreads)
		protected.GET("/artists/:id/posts", feedHandler.GetOfficialPosts)
		protected.POST("/posts", feedHandler.CreatePost)
		protected.GET("/posts/:id", feedHandler.GetPost)
		protected.PUT("/posts/:id", feedHandler.UpdatePost)
		protected.DELETE("/posts/:id", feedHandler.DeletePost)
		protected.POST("/posts/:id/save", feedHandler.ToggleSave)
		protected.GET("/posts/:id/likes", feedHandler.CountPostLikes)
		protected.GET("/posts/:id/comments", feedHandler.GetComments)
		protected.POST("/posts/:id/comments", feedHandler.AddComment)
		protected.PUT("/comments/:id", feedHandler.UpdateComment)
		protected.DELETE("/comments/:id", feedHandler.DeleteComment)
		protected.POST("/likes", feedHandler.ToggleLike)

		// Commerce
		protected.POST("/products", commerceHandler.CreateProduct)
		protected.GET("/products/:id", commerceHandler.GetProduct)
		protected.PUT("/products/:id", commerceHandler.UpdateProduct)
		protected.DELETE("/products/:id", commerceHandler.DeleteProduct)
		protected.GET("/artists/:id/products", commerceHandler.GetArtistProducts)

		protected.GET("/cart", commerceHandler.GetCart)
		protected.POST("/cart", commerceHandler.AddToCart)
		protected.PUT("/cart/:product_id", commerceHandler.UpdateCartQuantity)
		protected.DELETE("/cart/:product_id", commerceHandler.RemoveFromCart)

		protected.POST("/orders", commerceHandler.Checkout)
		protected.GET("/orders", commerceHandler.GetOrders)
		protected.GET("/orders/:id", commerceHandler.GetOrder)
		protected.PUT("/orders/:id/status", commerceHandler.UpdateOrderStatus)
		protected.GET("/sales", commerceHandler.GetArtistOrders)

		protected.GET("/subscriptions", commerceHandler.GetUserSubscriptions)
		protected.GET("/artists/:id/subscription", commerceHandler.GetSubscription)
		protected.POST("/artists/:id/subscription", commerceHandler.RenewSubscription)
		protected.PUT("/artists/:id/subscription/cancel", commerceHandler.ToggleCancel)
		protected.GET("/artists/:id/dm", commerceHandler.CanDirectMessage)

		// Moderation and statistics
		protected.POST("/reports", moderationHandler.Report)
		protected.GET("/artists/:id/dashboard", statHandler.GetDashboard)

		// Notification routes
		protected.GET("/notifications", notificationHandler.GetNotifications)
		protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
		protected.PUT("/notifications/:id/read", notificationHandler.MarkAsRead)
		protected.PUT("/notifications/read-all", notificationHandler.MarkAllAsRead)
		protected.GET("/notifications/ws", notificationHandler.HandleWebSocket)

		protected.POST("/upload", attachmentHandler.UploadAttachment)

		// Live queries, one websocket per query
		live := protected.Group("/live")
		{
			live.GET("/me", userHandler.LiveMe)
			live.GET("/artists", userHandler.LiveArtists)
			live.GET("/following", socialHandler.LiveFollowedArtists)
			live.GET("/blocks", socialHandler.LiveBlockedUsers)
			live.GET("/users/:id/followers", socialHandler.LiveFollowers)
			live.GET("/users/:id/following", socialHandler.LiveIsFollowing)

			live.GET("/feed", feedHandler.LiveFeed)
			live.GET("/saved", feedHandler.LiveSavedPosts)
			live.GET("/artists/:id/threads", feedHandler.LiveFanThreads)
			live.GET("/artists/:id/posts", feedHandler.LiveOfficialPosts)
			live.GET("/posts/:id", feedHandler.LivePost)
			live.GET("/posts/:id/comments", feedHandler.LiveComments)
			live.GET("/posts/:id/likes", feedHandler.LivePostLikes)

			live.GET("/artists/:id/products", commerceHandler.LiveArtistProducts)
			live.GET("/artists/:id/subscription", commerceHandler.LiveSubscription)
			live.GET("/cart", commerceHandler.LiveCart)
			live.GET("/orders", commerceHandler.LiveOrders)
			live.GET("/sales", commerceHandler.LiveArtistOrders)

			live.GET("/notifications", notificationHandler.LiveNotifications)
			live.GET("/notifications/unread-count", notificationHandler.LiveUnreadCount)
			live.GET("/warnings", moderationHandler.LiveMyWarnings)
			live.GET("/artists/:id/dashboard", statHandler.LiveDashboard)
			live.GET("/reports", authMiddleware.RequireAdmin(), moderationHandler.LiveReports)
		}
	}

	return &Server{
		engine: router,
		http: &http.Server{
			Addr:              ":" + cfg.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run blocks until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func setupCORS(router *gin.Engine, allowedOrigins string) {
	var origins []string
	for _, origin := range strings.Split(allowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
}
