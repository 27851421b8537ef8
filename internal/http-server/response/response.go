// Package response единый формат JSON-ответов http-сервера.
package response

type Response struct {
	Status string         `json:"status"`
	Error  string         `json:"error,omitempty"`
	Checks map[string]any `json:"checks,omitempty"`
}

const (
	StatusOK    = "OK"
	StatusError = "Error"
)

func OK() Response {
	return Response{
		Status: StatusOK,
	}
}

func Error(msg string) Response {
	return Response{
		Status: StatusError,
		Error:  msg,
	}
}
