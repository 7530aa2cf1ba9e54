package web

import (
	"homehub/internal/db"
	"homehub/internal/ingest"
	"homehub/internal/web/api"
	"homehub/internal/web/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WebServer struct {
	router *gin.Engine
}

func NewWebServer(dbConn *db.DB, ingestSvc *ingest.Service, jwtSecret string) *WebServer {
	router := gin.Default()

	middlewareManager := middleware.NewMiddlewareManager(jwtSecret)

	api.RegisterSampleRoutes(router, middlewareManager, ingestSvc)
	api.RegisterValueRoutes(router, middlewareManager, dbConn)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &WebServer{router: router}
}

func (ws *WebServer) Start(addr string) error {
	return ws.router.Run(addr)
}
