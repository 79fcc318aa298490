package delivery

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/nifty-xyz/gomarket/domain"
)

type JsonResponseStatus string

const (
	JsonResponseStatusSuccess JsonResponseStatus = "success"
	JsonResponseStatusFail    JsonResponseStatus = "fail"
)

type JsonResponse struct {
	Data   interface{}        `json:"data"`
	Status JsonResponseStatus `json:"status"`
}

// MakeJsonResp writes the standard response envelope. Errors are mapped onto
// HTTP statuses by kind: validation 400, authorization 403, state conflicts
// 409 (except not-found 404), transfer failures 502.
func MakeJsonResp(c echo.Context, status int, data interface{}) error {
	if err, ok := data.(error); ok {
		switch {
		case domain.IsValidationError(err):
			status = http.StatusBadRequest
		case domain.IsAuthorizationError(err):
			status = http.StatusForbidden
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case domain.IsStateError(err):
			status = http.StatusConflict
		case domain.IsTransferFailure(err):
			status = http.StatusBadGateway
		}
		data = err.Error()
	}

	if status >= 400 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusFail})
	}

	if status >= 200 && status < 300 {
		return c.JSON(status, JsonResponse{data, JsonResponseStatusSuccess})
	}

	return c.JSON(status, data)
}
