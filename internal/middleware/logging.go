package middleware

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"connectrpc.com/connect"

	"github.com/yuv5120/SplitPay/internal/metrics"
)

// LoggingInterceptor returns a Connect interceptor that logs every RPC call
// and records it in m. Client errors log at Warn, server errors at Error.
// Install it after the auth interceptor so the user ID is in the context.
func LoggingInterceptor(m *metrics.Metrics) connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			start := time.Now()
			procedure := req.Spec().Procedure

			resp, err := next(ctx, req)

			elapsed := time.Since(start)
			userID := GetUserID(ctx) // empty if pre-auth
			code := "ok"
			if err != nil {
				code = connect.CodeOf(err).String()
				var connectErr *connect.Error
				msg := err.Error()
				if errors.As(err, &connectErr) {
					msg = connectErr.Message()
				}
				level := slog.LevelWarn
				if isServerError(connect.CodeOf(err)) {
					level = slog.LevelError
				}
				slog.Log(ctx, level, "RPC error",
					"procedure", procedure,
					"code", code,
					"error", msg,
					"user_id", userID,
					"duration_ms", elapsed.Milliseconds(),
				)
			} else {
				slog.Info("RPC ok",
					"procedure", procedure,
					"user_id", userID,
					"duration_ms", elapsed.Milliseconds(),
				)
			}

			m.RPC(procedure, code, elapsed)
			return resp, err
		}
	}
}

func isServerError(code connect.Code) bool {
	switch code {
	case connect.CodeInternal, connect.CodeUnknown, connect.CodeDataLoss, connect.CodeUnavailable:
		return true
	default:
		return false
	}
}
