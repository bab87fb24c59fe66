package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"vehicle-spec-rag/internal/bootstrap"
	"vehicle-spec-rag/internal/transport/http/handler"
)

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.Server.GinMode)
	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	// multipart parts above this spill to disk
	router.MaxMultipartMemory = 8 << 20

	healthHandler := handler.NewHealthHandler(app.Store, app.Config.RAG.CollectionName, app.StartedAt)
	ragHandler := handler.NewRAGHandler(
		app.RAG,
		app.Ingestor,
		app.Config.RAG.CollectionName,
		app.Config.DataDir,
		app.Config.Server.MaxUploadMB,
	)

	router.GET("/healthz", healthHandler.Check)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(app.Registry, promhttp.HandlerOpts{Registry: app.Registry})))
	router.POST("/query", ragHandler.Query)
	router.POST("/upload", ragHandler.Upload)

	return router
}
