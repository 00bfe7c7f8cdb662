package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/reservaterrain/core/internal/identity"
	"github.com/reservaterrain/core/internal/middlewares"
)

var errNoPrincipal = errors.New("no principal in request context")

// httpStatus переводит код ошибки сервиса в HTTP-статус.
func httpStatus(code codes.Code) int {
	switch code {
	case codes.OK:
		return http.StatusOK
	case codes.InvalidArgument, codes.OutOfRange, codes.FailedPrecondition:
		return http.StatusBadRequest
	case codes.NotFound:
		return http.StatusNotFound
	case codes.Aborted, codes.AlreadyExists:
		return http.StatusConflict
	case codes.PermissionDenied:
		return http.StatusForbidden
	case codes.Unauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	st, ok := status.FromError(err)
	if !ok {
		// Ошибка не из сервиса — наружу только общий текст.
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	c.JSON(httpStatus(st.Code()), gin.H{"error": st.Message()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func principal(c *gin.Context) (identity.Principal, bool) {
	p, ok := middlewares.Principal(c)
	if !ok {
		writeError(c, status.Error(codes.Unauthenticated, errNoPrincipal.Error()))
	}
	return p, ok
}
