package models

// Response is the uniform envelope every operation returns. Business
// outcomes, including expected failures, travel through it rather than
// through error values or panics.
type Response struct {
	HTTPStatus int         `json:"http_status"`
	Data       interface{} `json:"data"`
}

// FormatResponse wraps a payload and status code into the response envelope.
func FormatResponse(httpStatusCode int, payload interface{}) Response {
	return Response{
		HTTPStatus: httpStatusCode,
		Data:       payload,
	}
}

// FormatErrorPayload builds the JSON:API error payload for a single error.
func FormatErrorPayload(httpStatusCode int, message string) map[string]interface{} {
	return map[string]interface{}{
		"errors": []map[string]interface{}{
			{
				"status": httpStatusCode,
				"detail": message,
			},
		},
	}
}

// ErrorResponse wraps an error payload into the response envelope.
func ErrorResponse(httpStatusCode int, message string) Response {
	return FormatResponse(httpStatusCode, FormatErrorPayload(httpStatusCode, message))
}

// MetaResponse wraps a human-readable message into a success envelope.
func MetaResponse(httpStatusCode int, message string) Response {
	return FormatResponse(httpStatusCode, map[string]interface{}{
		"meta": map[string]interface{}{
			"message": message,
		},
	})
}
