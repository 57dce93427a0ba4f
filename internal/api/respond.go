package api

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

// respondError sends the uniform JSON error envelope.
func respondError(c *fiber.Ctx, statusCode int, message string) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status":  "error",
		"message": message,
	})
}

// respondJSON sends the uniform JSON success envelope.
func respondJSON(c *fiber.Ctx, statusCode int, data interface{}) error {
	return c.Status(statusCode).JSON(fiber.Map{
		"status": "success",
		"data":   data,
	})
}

// formatValidationErrors flattens validator/v10 errors into messages fit
// for an API response.
func formatValidationErrors(err error) []string {
	var out []string
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{err.Error()}
	}
	for _, ve := range verrs {
		msg := fmt.Sprintf("Field '%s' failed on the '%s' tag", ve.Field(), ve.Tag())
		if ve.Param() != "" {
			msg = fmt.Sprintf("%s (value: %s)", msg, ve.Param())
		}
		out = append(out, msg)
	}
	return out
}
