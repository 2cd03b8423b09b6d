package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/mbruun/roadlog/internal/api/handlers"
)

type Deps struct {
	Observation *handlers.ObservationHandler
}

// RegisterRoutes wires the ingestion boundary. Authentication lives in the
// surrounding system; callers arrive here with project and actor identifiers
// already established.
func RegisterRoutes(r *gin.Engine, d Deps) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	r.POST("/projects/:project_id/observations", d.Observation.Ingest)
	r.GET("/projects/:project_id/observations", d.Observation.List)
	r.GET("/projects/:project_id/observations/:id", d.Observation.Get)
	r.DELETE("/projects/:project_id/observations/:id", d.Observation.Delete)
}
