package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// RequestTimeout bounds how long a handler may run. It is built on echo's
// timeout middleware, which buffers the handler's writes and discards them
// once the deadline response has been sent, so a late handler cannot write
// over the timed-out response. The deadline is also set on the request
// context; handlers that need a tighter bound (e.g. outbound prediction
// calls) derive their own from it.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return echomw.TimeoutWithConfig(echomw.TimeoutConfig{
		Timeout:      timeout,
		ErrorMessage: `{"error":{"kind":"internal","message":"request timed out"}}`,
	})
}
