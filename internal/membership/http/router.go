package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/clearcomply/membership/internal/membership/service"
	"github.com/clearcomply/membership/internal/membership/store"
	"github.com/clearcomply/membership/pkg/httpx"
	"github.com/clearcomply/membership/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     httpx.TokenVerifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	MembershipService *service.MembershipService
	ClientService     *service.ClientService
}

func NewRouter(
	verifier httpx.TokenVerifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.MetricsMiddleware(),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerClients()
	r.registerMembers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerClients() {
	h := &ClientsHandler{ClientService: r.ClientService}

	// POST /v1/clients - moderate rate limit (account provisioning)
	r.Mux.Handle("POST /v1/clients",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// GET /v1/clients - lenient rate limit (read)
	r.Mux.Handle("GET /v1/clients",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/clients/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("PATCH /v1/clients/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleUpdate),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerMembers() {
	h := &MembersHandler{MembershipService: r.MembershipService}
	myRole := &MyRoleHandler{MembershipService: r.MembershipService}

	// GET /v1/clients/{id}/role - the hot path, lenient rate limit
	r.Mux.Handle("GET /v1/clients/{id}/role",
		httpx.Chain(myRole,
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	r.Mux.Handle("GET /v1/clients/{id}/members",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)

	// POST /v1/clients/{id}/members - strict rate limit (email enumeration
	// and invite spam prevention)
	r.Mux.Handle("POST /v1/clients/{id}/members",
		httpx.Chain(http.HandlerFunc(h.HandleInvite),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	// POST /v1/members/{id}/accept - strict rate limit (invitation id
	// guessing prevention)
	r.Mux.Handle("POST /v1/members/{id}/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)

	r.Mux.Handle("PUT /v1/clients/{id}/members/{memberID}/role",
		httpx.Chain(http.HandlerFunc(h.HandleUpdateRole),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	r.Mux.Handle("DELETE /v1/clients/{id}/members/{memberID}",
		httpx.Chain(http.HandlerFunc(h.HandleRemove),
			httpx.AuthnMiddleware(r.verifier),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerSystem() {
	// Health endpoints - lenient rate limits (monitoring systems may poll
	// frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", httpx.MetricsHandler())
}
