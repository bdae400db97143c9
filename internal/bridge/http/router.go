// Package http adapts the bridge's logical request surface to HTTP. Each
// handler is a thin shim that builds an rpc.Request and writes back the
// dispatcher's response; all semantics live in the rpc package.
package http

import (
	"log/slog"
	"net/http"

	"github.com/ArcheWizard/Password-Manager/internal/bridge/rpc"
	"github.com/ArcheWizard/Password-Manager/pkg/httpx"
	"github.com/ArcheWizard/Password-Manager/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	dispatcher *rpc.Dispatcher
	logger     *slog.Logger
}

func NewRouter(dispatcher *rpc.Dispatcher, logger *slog.Logger) *Router {
	r := &Router{
		Mux:        http.NewServeMux(),
		dispatcher: dispatcher,
		logger:     logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.ExtensionCORS(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	handler := &BridgeHandler{Dispatcher: r.dispatcher}

	// GET /status - public discovery endpoint, high limit
	r.Mux.Handle("GET /v1/status",
		httpx.Chain(http.HandlerFunc(handler.Handle),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)

	// POST /pair - strict rate limit (code guessing attempts)
	r.Mux.Handle("POST /v1/pair",
		httpx.Chain(http.HandlerFunc(handler.Handle),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// Credential endpoints - moderate limit keyed by bearer token
	for _, path := range []string{
		"POST /v1/credentials/query",
		"POST /v1/credentials/check",
		"POST /v1/credentials/store",
	} {
		r.Mux.Handle(path,
			httpx.Chain(http.HandlerFunc(handler.Handle),
				httpx.RateLimitByClient(httpx.ModerateLimit),
			),
		)
	}

	for _, path := range []string{
		"POST /v1/audit/report",
		"POST /v1/clipboard/clear",
		"POST /v1/tokens/revoke",
	} {
		r.Mux.Handle(path,
			httpx.Chain(http.HandlerFunc(handler.Handle),
				httpx.RateLimitByClient(httpx.LenientLimit),
			),
		)
	}
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}
