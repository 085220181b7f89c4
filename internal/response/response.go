// Package response writes the uniform JSON envelope used by every endpoint.
package response

import (
	"electric-inventory/internal/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

func init() {
	// quantities and prices are rendered as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

type Envelope struct {
	Success bool                    `json:"success"`
	Message string                  `json:"message,omitempty"`
	Data    any                     `json:"data,omitempty"`
	Errors  []validation.FieldError `json:"errors,omitempty"`
}

func OK(c *fiber.Ctx, data any) error {
	return c.JSON(Envelope{Success: true, Data: data})
}

func Created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(Envelope{Success: true, Data: data})
}

func Message(c *fiber.Ctx, msg string) error {
	return c.JSON(Envelope{Success: true, Message: msg})
}

func Fail(c *fiber.Ctx, status int, msg string, fields []validation.FieldError) error {
	return c.Status(status).JSON(Envelope{Success: false, Message: msg, Errors: fields})
}
