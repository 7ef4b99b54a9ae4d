package api

import (
	"net/http"

	"github.com/aoma-tools/aoma-mesh/pkg/tools"
)

// toolErrorStatus maps tool error codes to HTTP status codes.
func toolErrorStatus(err *tools.Error) int {
	switch err.Code {
	case tools.CodeInvalidRequest, tools.CodeInvalidParams:
		return http.StatusBadRequest
	case tools.CodeMethodNotFound:
		return http.StatusNotFound
	case tools.CodeTimeout:
		return http.StatusGatewayTimeout
	case tools.CodeUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
