package handler

// Response is the envelope every endpoint returns. Status is "success"
// or "error"; Data carries the payload when there is one.
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// NewPartialResponse reports a failed operation that still produced a
// usable payload, such as a dispatch whose per-channel outcomes help the
// caller decide whether to retry.
func NewPartialResponse(message string, data interface{}) *Response {
	return &Response{
		Status:  "error",
		Message: message,
		Data:    data,
	}
}
