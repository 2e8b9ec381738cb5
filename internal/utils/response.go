package utils

import "github.com/gofiber/fiber/v2"

// correlationLocal is the request local set by the correlation middleware.
const correlationLocal = "correlation_id"

// APIResponse is the envelope of every hub endpoint. Failed responses echo
// the correlation id so that a reported error can be traced in the logs.
type APIResponse struct {
	Success       bool        `json:"success"`
	Data          interface{} `json:"data,omitempty"`
	Message       string      `json:"message"`
	Details       interface{} `json:"details,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// SendSuccess replies 200 with data.
func SendSuccess(c *fiber.Ctx, message string, data interface{}) error {
	return SendSuccessWithStatus(c, fiber.StatusOK, message, data)
}

// SendSuccessWithStatus replies with data using a custom status, such as 201
// for created activities.
func SendSuccessWithStatus(c *fiber.Ctx, status int, message string, data interface{}) error {
	if status == 0 {
		status = fiber.StatusOK
	}
	if message == "" {
		message = "success"
	}

	return c.Status(status).JSON(APIResponse{Success: true, Data: data, Message: message})
}

// SendError replies with a failure envelope without details.
func SendError(c *fiber.Ctx, status int, message string) error {
	return Fail(c, status, message, nil)
}

// Fail replies with a failure envelope. Details carry structured context such
// as the failing fields of a validation error or the stores of a partial write.
func Fail(c *fiber.Ctx, status int, message string, details interface{}) error {
	if status == 0 {
		status = fiber.StatusInternalServerError
	}
	if message == "" {
		message = "error"
	}

	response := APIResponse{Message: message, Details: details}
	if id, ok := c.Locals(correlationLocal).(string); ok {
		response.CorrelationID = id
	}
	return c.Status(status).JSON(response)
}
