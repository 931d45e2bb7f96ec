package telemetry

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tifi_http_requests_total",
	Help: "Inbound HTTP requests by route template.",
}, []string{"route", "method"})

// Middleware counts the request before handing it to the rest of the chain.
// Prometheus gets the route template only; addresses stay in the counter.
func Middleware(c *RequestCounter) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		c.Observe(ctx.Request.URL.Path, ctx.ClientIP())

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestsTotal.WithLabelValues(route, ctx.Request.Method).Inc()

		ctx.Next()
	}
}
