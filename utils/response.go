package utils

import "github.com/gin-gonic/gin"

// JSONResponse is the envelope every handler writes: a numeric application
// code (0 on success, per-endpoint codes on failure), a short message, and
// the payload. Cached responses store the whole envelope so a cache hit can
// be served byte-for-byte.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes the envelope with the given HTTP status and application code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success writes a 200 envelope with code 0.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, 200, 0, "success", data)
}

// Error writes an error envelope with no payload.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}
