package api

import (
	"github.com/gin-gonic/gin"
)

// Middleware are the optional guards RegisterRoutes puts in front of the
// write routes. Nil entries are skipped.
type Middleware struct {
	RateLimit gin.HandlerFunc
	Breaker   gin.HandlerFunc
}

func chain(handlers ...gin.HandlerFunc) []gin.HandlerFunc {
	out := make([]gin.HandlerFunc, 0, len(handlers))
	for _, h := range handlers {
		if h != nil {
			out = append(out, h)
		}
	}
	return out
}

// RegisterRoutes registers all the routes for the deck service.
func RegisterRoutes(router *gin.Engine, api *API, mw Middleware) {
	router.GET("/healthz", api.HealthHandler)

	v1 := router.Group("/api")
	{
		v1.POST("/jobs", chain(mw.RateLimit, api.SubmitJobHandler)...)
		v1.GET("/events/:jobId", api.EventsHandler)
		v1.POST("/pushDummy", chain(mw.RateLimit, api.PushDummyHandler)...)
	}

	presentations := v1.Group("/presentations")
	{
		presentations.GET("", api.ListPresentationsHandler)
		presentations.POST("/template", chain(mw.RateLimit, api.CreateFromTemplateHandler)...)
		presentations.GET("/:id", api.GetPresentationHandler)
		presentations.DELETE("/:id", api.DeletePresentationHandler)
		presentations.POST("/:id/export", chain(mw.RateLimit, mw.Breaker, api.ExportHandler)...)

		presentations.GET("/:id/slides", api.ListSlidesHandler)
		presentations.POST("/:id/slides", api.AppendSlideHandler)
		presentations.PUT("/:id/slides/:index", api.UpdateSlideHandler)
		presentations.DELETE("/:id/slides/:index", api.DeleteSlideHandler)
		presentations.GET("/:id/slides/:index/render", api.RenderSlideHandler)
	}

	charts := v1.Group("/charts")
	{
		charts.GET("", api.ListChartsHandler)
		charts.POST("", api.CreateChartHandler)
		charts.POST("/render", chain(mw.RateLimit, api.RenderChartHandler)...)
		charts.GET("/:id", api.GetChartHandler)
		charts.DELETE("/:id", api.DeleteChartHandler)
	}

	texts := v1.Group("/text-components")
	{
		texts.GET("", api.ListTextComponentsHandler)
		texts.POST("", api.CreateTextComponentHandler)
		texts.GET("/:id", api.GetTextComponentHandler)
		texts.DELETE("/:id", api.DeleteTextComponentHandler)
	}

	datasets := v1.Group("/datasets")
	{
		datasets.GET("", api.ListDatasetsHandler)
		datasets.POST("", chain(mw.RateLimit, api.UploadWorkbookHandler)...)
	}

	// WebSocket route
	router.GET("/ws/presentations/:id", api.WebSocketHandler)
}
