package routes

import (
	"net/http"

	"crumb/auth"
	"crumb/comments"
	"crumb/home"
	"crumb/likes"
	"crumb/middleware"
	"crumb/notify"
	"crumb/posts"
	"crumb/profile"
	"crumb/ratelim"
	"crumb/saves"
	"crumb/search"
	"crumb/suggestions"

	"github.com/julienschmidt/httprouter"
)

func AddStaticRoutes(router *httprouter.Router, staticRoot string) {
	router.ServeFiles("/static/posts/*filepath", http.Dir(staticRoot+"/posts"))
	router.ServeFiles("/static/profile_pictures/*filepath", http.Dir(staticRoot+"/profile_pictures"))
}

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.POST("/api/v1/auth/register", rl.Limit(h.Register))
	router.POST("/api/v1/auth/login", rl.Limit(h.Login))
	router.POST("/api/v1/auth/logout", mw.Authenticate(h.Logout))
	router.POST("/api/v1/auth/token/refresh", rl.Limit(h.RefreshToken))
}

func AddProfileRoutes(router *httprouter.Router, h *profile.Handler, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.GET("/api/v1/profile/profile", mw.Authenticate(h.GetProfile))
	router.PUT("/api/v1/profile/edit", mw.Authenticate(h.EditProfile))
	router.PUT("/api/v1/profile/avatar", mw.Authenticate(h.EditProfilePic))

	router.GET("/api/v1/user/:username", rl.Limit(h.GetUserProfile))

	router.PUT("/api/v1/follows/:id", rl.Limit(mw.Authenticate(h.Follow)))
	router.DELETE("/api/v1/follows/:id", rl.Limit(mw.Authenticate(h.Unfollow)))
	router.GET("/api/v1/follows/:id/status", rl.Limit(mw.Authenticate(h.DoesFollow)))
	router.GET("/api/v1/followers/:id", rl.Limit(mw.Authenticate(h.GetFollowers)))
	router.GET("/api/v1/following/:id", rl.Limit(mw.Authenticate(h.GetFollowing)))
}

func AddPostRoutes(router *httprouter.Router, h *posts.Handler, mw *middleware.Auth) {
	router.POST("/api/v1/posts", mw.Authenticate(h.CreatePost))
	router.GET("/api/v1/posts/post/:id", mw.OptionalAuth(h.GetPost))
	router.PUT("/api/v1/posts/post/:id", mw.Authenticate(h.UpdatePost))
	router.DELETE("/api/v1/posts/post/:id", mw.Authenticate(h.DeletePost))

	router.GET("/api/v1/feed", mw.Authenticate(h.Feed))
	router.GET("/api/v1/posts/user/:id", mw.OptionalAuth(h.GetUserPosts))

	// Recipe connections
	router.POST("/api/v1/posts/post/:id/connect", mw.Authenticate(h.ConnectPost))
	router.POST("/api/v1/posts/post/:id/remakes", mw.Authenticate(h.CreateConnectedPost))
	router.GET("/api/v1/posts/post/:id/remakes", mw.OptionalAuth(h.GetConnectedPosts))
}

func AddLikeRoutes(router *httprouter.Router, h *likes.Handler, mw *middleware.Auth) {
	router.PUT("/api/v1/posts/post/:id/rise", mw.Authenticate(h.Like))
	router.DELETE("/api/v1/posts/post/:id/rise", mw.Authenticate(h.Unlike))
	router.GET("/api/v1/posts/post/:id/rise/status", mw.Authenticate(h.HasLiked))
}

func AddSaveRoutes(router *httprouter.Router, h *saves.Handler, mw *middleware.Auth) {
	router.PUT("/api/v1/posts/post/:id/save", mw.Authenticate(h.Save))
	router.DELETE("/api/v1/posts/post/:id/save", mw.Authenticate(h.Unsave))
	router.GET("/api/v1/posts/post/:id/save/status", mw.Authenticate(h.HasSaved))
	router.GET("/api/v1/posts/saved", mw.Authenticate(h.GetSaved))
}

func AddCommentsRoutes(router *httprouter.Router, h *comments.Handler, mw *middleware.Auth) {
	router.POST("/api/v1/comments/:postid", mw.Authenticate(h.Create))
	router.GET("/api/v1/comments/:postid", mw.OptionalAuth(h.GetForPost))
	router.DELETE("/api/v1/comments/:postid/:commentid", mw.Authenticate(h.Delete))
}

func AddSearchRoutes(router *httprouter.Router, h *search.Handler, rl *ratelim.RateLimiter) {
	router.GET("/api/v1/search/users", rl.Limit(h.Users))
	router.GET("/api/v1/search/posts", rl.Limit(h.Posts))
}

func AddSuggestionsRoutes(router *httprouter.Router, h *suggestions.Handler, mw *middleware.Auth, rl *ratelim.RateLimiter) {
	router.GET("/api/v1/suggestions/follow", rl.Limit(mw.Authenticate(h.SuggestBakers)))
}

func AddHomeRoutes(router *httprouter.Router, h *home.Handler, mw *middleware.Auth) {
	router.GET("/api/v1/home/:apiRoute", mw.OptionalAuth(h.GetHomeContent))
}

func AddNotifyRoutes(router *httprouter.Router, hub *notify.Hub, mw *middleware.Auth) {
	router.GET("/ws/activity", mw.Authenticate(hub.HandleWebSocket))
}
