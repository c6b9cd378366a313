package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
)

// Middleware records request count, duration and in-flight requests.
// Requests that match no route are labelled "unmatched" to bound cardinality.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		InFlightRequests.Inc()
		defer InFlightRequests.Dec()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		// Middleware mounted with Use reports the "/" route when nothing
		// else matched.
		route := c.Route().Path
		if (route == "" || route == "/") && c.Path() != "/" {
			route = "unmatched"
		}

		// Label values outlive the request; fiber strings point into a
		// reused buffer.
		method := utils.CopyString(c.Method())
		RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status/100)+"xx").Inc()
		RequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}
