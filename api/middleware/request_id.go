package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/tillworks/posedge/pkg/logger"
)

const (
	requestIDHeader = "X-PosEdge-Request-Id"

	// set by proxies and the till UI's fetch wrapper
	genericIDHeader = "X-Request-Id"
)

func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := r.Header.Get(requestIDHeader)
			if reqID == "" {
				reqID = r.Header.Get(genericIDHeader)
			}
			if reqID == "" {
				reqID = uuid.NewString()
			}

			w.Header().Set(requestIDHeader, reqID)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, reqID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
