package http

import (
	"github.com/gin-gonic/gin"

	"researchhub/internal/bootstrap"
	"researchhub/internal/transport/http/handler"
	"researchhub/internal/transport/http/middleware"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(app.Logger),
		middleware.CORS(app.Config.App.CORSOrigins),
	)

	healthHandler := handler.NewHealthHandler(app)
	router.GET("/health", healthHandler.Liveness)
	router.GET("/healthz", healthHandler.Readiness)

	authHandler := handler.NewAuthHandler(app.Auth)
	researchHandler := handler.NewResearchHandler(app.Research, app.Config.MaxUploadBytes())
	workspaceHandler := handler.NewWorkspaceHandler(app.Workspaces)
	searchHandler := handler.NewSearchHandler(app.Search)
	authRequired := middleware.AuthJWT(app.Auth)

	authGroup := router.Group("/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/token", authHandler.Token)
	authGroup.GET("/me", authRequired, authHandler.Me)

	researchGroup := router.Group("/research")
	researchGroup.Use(authRequired)
	researchGroup.POST("/upload", researchHandler.Upload)
	researchGroup.POST("/import", researchHandler.Import)
	researchGroup.POST("/ask", researchHandler.Ask)
	researchGroup.GET("/chat/history", researchHandler.ChatHistory)
	researchGroup.GET("/papers", researchHandler.Papers)

	workspaceGroup := router.Group("/workspaces")
	workspaceGroup.Use(authRequired)
	workspaceGroup.POST("/", workspaceHandler.Create)
	workspaceGroup.GET("/", workspaceHandler.List)
	workspaceGroup.DELETE("/:id", workspaceHandler.Delete)

	searchGroup := router.Group("/search")
	searchGroup.GET("/arxiv", searchHandler.Arxiv)

	return router
}
