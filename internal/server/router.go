package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"videohub/internal/auth"
	"videohub/internal/config"
	"videohub/internal/metrics"
	"videohub/internal/mw"
)

// SetupRouter 统一初始化 Gin 中间件与 REST API。limiter 为 nil 时不限速。
func SetupRouter(cfg config.Config, svc Services, limiter mw.Limiter) *gin.Engine {
	h := NewHandler(svc, cfg)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinMiddleware())
	r.Use(mw.CORS(cfg.Env, cfg.CORSOrigins))
	if limiter != nil {
		r.Use(mw.RateLimit(limiter))
	}

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	required := auth.Middleware(svc.Tokens)
	optional := auth.Optional(svc.Tokens)

	api := r.Group("/api/v1")

	users := api.Group("/users")
	users.POST("/register", h.Register)
	users.POST("/login", h.Login)
	users.POST("/refresh-token", h.RefreshToken)
	users.GET("/c/:username", optional, h.ChannelProfile)
	users.POST("/logout", required, h.Logout)
	users.POST("/change-password", required, h.ChangePassword)
	users.GET("/current-user", required, h.CurrentUser)
	users.PATCH("/update-account", required, h.UpdateAccount)
	users.PATCH("/avatar", required, h.UpdateAvatar)
	users.PATCH("/cover-image", required, h.UpdateCoverImage)
	users.GET("/history", required, h.WatchHistory)

	videos := api.Group("/videos")
	videos.GET("", optional, h.ListVideos)
	videos.GET("/suggestions", optional, h.VideoSuggestions)
	videos.POST("", required, h.PublishVideo)
	videos.GET("/:videoId", optional, h.GetVideo)
	videos.PATCH("/:videoId", required, h.UpdateVideo)
	videos.DELETE("/:videoId", required, h.DeleteVideo)
	videos.PATCH("/:videoId/publish", required, h.TogglePublish)
	videos.PATCH("/:videoId/views", optional, h.RecordView)
	videos.GET("/:videoId/comments", optional, h.ListComments)
	videos.POST("/:videoId/comments", required, h.AddComment)

	comments := api.Group("/comments", required)
	comments.PATCH("/:commentId", h.UpdateComment)
	comments.DELETE("/:commentId", h.DeleteComment)

	likes := api.Group("/likes", required)
	likes.POST("/toggle/:kind/:targetId", h.ToggleLike)
	likes.GET("/toggle/:kind/:targetId", h.LikeStatus)
	likes.GET("/videos", h.LikedVideos)

	subs := api.Group("/subscriptions", required)
	subs.POST("/c/:channelId", h.ToggleSubscription)
	subs.GET("/c/:channelId", h.SubscriptionStatus)
	subs.GET("/c/:channelId/subscribers", h.SubscriberCount)
	subs.GET("/u", h.SubscribedChannels)

	tweets := api.Group("/tweets", required)
	tweets.POST("", h.CreateTweet)
	tweets.PATCH("/:tweetId", h.UpdateTweet)
	tweets.DELETE("/:tweetId", h.DeleteTweet)

	channels := api.Group("/channels", optional)
	channels.GET("/:userId/tweets", h.UserTweets)
	channels.GET("/:userId/playlists", h.UserPlaylists)

	playlists := api.Group("/playlists", required)
	playlists.POST("", h.CreatePlaylist)
	playlists.GET("/:playlistId", h.GetPlaylist)
	playlists.PATCH("/:playlistId", h.UpdatePlaylist)
	playlists.DELETE("/:playlistId", h.DeletePlaylist)
	playlists.PATCH("/:playlistId/videos/:videoId", h.AddPlaylistVideo)
	playlists.DELETE("/:playlistId/videos/:videoId", h.RemovePlaylistVideo)

	dashboard := api.Group("/dashboard", required)
	dashboard.GET("/stats", h.DashboardStats)
	dashboard.GET("/videos", h.DashboardVideos)

	return r
}
