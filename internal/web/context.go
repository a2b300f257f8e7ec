package web

import (
	"context"
	"net/http"

	"github.com/JonMunkholm/csvcleaner/internal/history"
)

// withClientMetadata adds the client IP and User-Agent to ctx for history
// entries.
func withClientMetadata(ctx context.Context, r *http.Request) context.Context {
	return history.ContextWithClient(ctx, clientIP(r), r.UserAgent())
}
