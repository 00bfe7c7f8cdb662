package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// internalError логирует причину и отдаёт наружу общий текст.
func internalError(ctx context.Context, log *slog.Logger, op string, err error) error {
	log.ErrorContext(ctx, op+" failed", "err", err)
	return status.Error(codes.Internal, "internal error")
}

// finishSpan закрывает span, помечая его ошибкой, если она не из
// ожидаемых (NotFound, InvalidArgument и т.п. — обычный ответ).
func finishSpan(span trace.Span, err error) {
	if err != nil {
		code := status.Code(err)
		span.SetAttributes(attribute.String("rpc.code", code.String()))
		if code == codes.Internal || code == codes.Unknown {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, err.Error())
		}
	}
	span.End()
}

// validationError переводит ошибки validator в InvalidArgument.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s: must satisfy %s=%s", fe.Field(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.Field(), fe.Tag()))
		}
	}
	return status.Error(codes.InvalidArgument, strings.Join(parts, "; "))
}
