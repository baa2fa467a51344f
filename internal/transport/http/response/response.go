package response

import "github.com/gin-gonic/gin"

const (
	CodeBadRequest         = 40000
	CodeEmailExists        = 40002
	CodeNotPDF             = 40003
	CodeEmptyExtraction    = 40004
	CodeDownloadFailed     = 40005
	CodeFileTooLarge       = 40006
	CodeUnauthorized       = 40100
	CodeInvalidCredentials = 40101
	CodeInactiveUser       = 40102
	CodeWorkspaceNotFound  = 40401
	CodeInternalServer     = 50000
)

// APIResponse is the error envelope. Detail repeats Message for clients
// that read the FastAPI-style field.
type APIResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail"`
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.JSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Detail:  message,
	})
}

// Abort writes the error envelope and stops the handler chain.
func Abort(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIResponse{
		Code:    code,
		Message: message,
		Detail:  message,
	})
}
