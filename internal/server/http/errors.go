package http

import (
	"errors"

	"github.com/dmitrijs2005/servicios/internal/common"
	"github.com/gofiber/fiber/v2"
)

const problemContentType = "application/problem+json"

// Problem is the error payload of every failed request.
type Problem struct {
	Title      string `json:"title"`
	Status     int    `json:"status"`
	Message    string `json:"message,omitempty"`
	EntityName string `json:"entityName,omitempty"`
	ErrorKey   string `json:"errorKey,omitempty"`
}

func (s *HTTPServer) errorHandler(c *fiber.Ctx, err error) error {
	var alert *common.AlertError
	if errors.As(err, &alert) {
		c.Set(s.headerName("error"), "error."+alert.ErrorKey)
		c.Set(s.headerName("params"), alert.EntityName)
		return writeProblem(c, Problem{
			Title:      alert.Message,
			Status:     fiber.StatusBadRequest,
			Message:    "error." + alert.ErrorKey,
			EntityName: alert.EntityName,
			ErrorKey:   alert.ErrorKey,
		})
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return writeProblem(c, Problem{Title: fe.Message, Status: fe.Code})
	}

	s.logger.Error(c.UserContext(), "request failed",
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return writeProblem(c, Problem{Title: "Internal Server Error", Status: fiber.StatusInternalServerError})
}

func writeProblem(c *fiber.Ctx, p Problem) error {
	if err := c.Status(p.Status).JSON(p); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, problemContentType)
	return nil
}
