package http

import (
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/servicios/internal/server/models"
	"github.com/dmitrijs2005/servicios/internal/server/services"
	"github.com/gofiber/fiber/v2"
)

func (s *HTTPServer) createServicio(c *fiber.Ctx) error {
	servicio, err := parseServicio(c)
	if err != nil {
		return err
	}
	s.logger.Debug(c.UserContext(), "REST request to save Servicio", "servicio", servicio)

	result, err := s.servicios.Create(c.UserContext(), servicio)
	if err != nil {
		return err
	}

	id := strconv.FormatInt(*result.ID, 10)
	c.Location(fmt.Sprintf("/api/servicios/%s", id))
	s.setAlert(c, "created", id)
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (s *HTTPServer) updateServicio(c *fiber.Ctx) error {
	servicio, err := parseServicio(c)
	if err != nil {
		return err
	}
	s.logger.Debug(c.UserContext(), "REST request to update Servicio", "servicio", servicio)

	result, err := s.servicios.Update(c.UserContext(), servicio)
	if err != nil {
		return err
	}

	s.setAlert(c, "updated", strconv.FormatInt(*result.ID, 10))
	return c.JSON(result)
}

func (s *HTTPServer) getAllServicios(c *fiber.Ctx) error {
	s.logger.Debug(c.UserContext(), "REST request to get all Servicios")

	result, err := s.servicios.ListAll(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *HTTPServer) getServicio(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.logger.Debug(c.UserContext(), "REST request to get Servicio", "id", id)

	result, found, err := s.servicios.GetByID(c.UserContext(), id)
	if err != nil {
		return err
	}
	if !found {
		return fiber.ErrNotFound
	}
	return c.JSON(result)
}

func (s *HTTPServer) deleteServicio(c *fiber.Ctx) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	s.logger.Debug(c.UserContext(), "REST request to delete Servicio", "id", id)

	if err := s.servicios.DeleteByID(c.UserContext(), id); err != nil {
		return err
	}

	s.setAlert(c, "deleted", strconv.FormatInt(id, 10))
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *HTTPServer) searchServicios(c *fiber.Ctx) error {
	if !c.Context().QueryArgs().Has("query") {
		return fiber.NewError(fiber.StatusBadRequest, "query parameter is required")
	}
	query := c.Query("query")
	s.logger.Debug(c.UserContext(), "REST request to search Servicios", "query", query)

	result, err := s.servicios.Search(c.UserContext(), query)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (s *HTTPServer) presignIcon(c *fiber.Ctx) error {
	s.logger.Debug(c.UserContext(), "REST request to presign Servicio icon upload")

	upload, err := s.icons.PresignUpload(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(upload)
}

func parseServicio(c *fiber.Ctx) (*models.Servicio, error) {
	var servicio models.Servicio
	if err := c.BodyParser(&servicio); err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	return &servicio, nil
}

func pathID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// setAlert sets the X-<app>-alert / X-<app>-params pair the UI shows as a toast.
func (s *HTTPServer) setAlert(c *fiber.Ctx, action, param string) {
	c.Set(s.headerName("alert"), fmt.Sprintf("%s.%s.%s", s.appName, services.EntityName, action))
	c.Set(s.headerName("params"), param)
}

func (s *HTTPServer) headerName(kind string) string {
	return fmt.Sprintf("X-%s-%s", s.appName, kind)
}
