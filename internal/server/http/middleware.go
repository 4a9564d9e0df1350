package http

import (
	"errors"
	"strings"
	"time"

	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/dmitrijs2005/servicios/internal/server/auth"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type ctxKey string

const (
	requestIDKey ctxKey = "requestID"
	subjectKey   ctxKey = "subject"
)

// requestLogger tags every request with an ID (kept from the caller when
// present) and writes one access log line after the handler ran.
func (s *HTTPServer) requestLogger(c *fiber.Ctx) error {
	start := time.Now()

	requestID := c.Get(common.RequestIDHeaderName)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Locals(requestIDKey, requestID)
	c.Set(common.RequestIDHeaderName, requestID)

	chainErr := c.Next()
	if chainErr != nil {
		if err := c.App().ErrorHandler(c, chainErr); err != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	s.logger.Info(c.UserContext(), "request",
		"request_id", requestID,
		"method", c.Method(),
		"path", c.Path(),
		"status", c.Response().StatusCode(),
		"latency", time.Since(start).String(),
	)
	return nil
}

// bearerAuth rejects /api calls that do not carry a valid HS256 token.
func (s *HTTPServer) bearerAuth(c *fiber.Ctx) error {
	header := c.Get(common.AuthorizationHeaderName)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return fiber.NewError(fiber.StatusUnauthorized, "missing token")
	}

	subject, err := auth.SubjectFromToken(strings.TrimSpace(token), s.jwtSecret)
	if err != nil {
		if errors.Is(err, common.ErrTokenExpired) {
			return fiber.NewError(fiber.StatusUnauthorized, "token expired")
		}
		return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}

	c.Locals(subjectKey, subject)
	return c.Next()
}
