package tracing

import "github.com/sirupsen/logrus"

// Context identifies a single inbound request across log lines.
type Context struct {
	RequestID     string             `json:"request_id"`
	RequestSource string             `json:"request_source"`
	Logger        logrus.FieldLogger `json:"-"`
}

// Log returns the request-scoped logger, falling back to the standard logger.
func (c *Context) Log() logrus.FieldLogger {
	if c == nil || c.Logger == nil {
		return logrus.StandardLogger()
	}
	return c.Logger
}
