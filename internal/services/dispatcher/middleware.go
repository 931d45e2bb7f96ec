package dispatcher

import "github.com/gin-gonic/gin"

// Middleware gives every request its own task list and flushes it to the pool
// once the rest of the chain has returned, panics included.
func Middleware(d *Dispatcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, tasks := WithTasks(c.Request.Context())
		c.Request = c.Request.WithContext(ctx)
		defer d.Flush(tasks)
		c.Next()
	}
}
