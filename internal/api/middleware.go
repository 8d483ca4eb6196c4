package api

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	apperrors "github.com/gmsas95/invoice-audit/internal/errors"
	"github.com/gmsas95/invoice-audit/internal/security"
)

// metricsMiddleware records the status and latency of every request under
// its route pattern.
func (s *Server) metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			status = statusOf(err)
		}
		s.metrics.RecordRequest(c.Route().Path, status, time.Since(start))
		return err
	}
}

// errorHandler answers errors that escape a handler, such as unknown routes
// or an oversized body.
func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	return s.respondError(c, err)
}

// respondError writes err as an ErrorResponse. The cause is included as
// detail outside production.
func (s *Server) respondError(c *fiber.Ctx, err error) error {
	status := statusOf(err)

	resp := ErrorResponse{
		Message: apperrors.GetMessage(err),
		Error:   utils.StatusMessage(status),
	}
	if apperrors.IsAppError(err) {
		resp.Code = apperrors.GetCode(err)
	}
	if !s.config.IsProduction() && err.Error() != resp.Message {
		resp.Detail = security.RedactSecrets(err.Error())
	}

	if status >= fiber.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("path", c.Path()),
			zap.Int("status", status),
			zap.Error(err),
		)
	}
	return c.Status(status).JSON(resp)
}

func statusOf(err error) int {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code
	}
	return apperrors.HTTPStatus(err)
}
