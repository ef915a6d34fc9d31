package handlers

import (
	"net/http"

	"github.com/danghamo/stride/pkg/autorouter"
	"github.com/danghamo/stride/pkg/logger"
)

// Set bundles the JSON-RPC handlers of the service
type Set struct {
	Auth     *AuthHandler
	Account  *AccountHandler
	Session  *SessionHandler
	Activity *ActivityHandler
	Profile  *ProfileHandler
	Server   *ServerHandler
}

// RouteOptions configures how the set is mounted
type RouteOptions struct {
	Prefix string
	// Auth guards every method except auth.Register, auth.Login and server.*
	Auth autorouter.Middleware
	// FixLimit additionally wraps session.PushFix; nil disables it
	FixLimit autorouter.Middleware
	Logger   *logger.Logger
}

type group struct {
	methodPrefix string
	handler      interface{}
	auth         bool
	perMethod    map[string][]autorouter.Middleware
}

// Register mounts every JSON-RPC method of the set on mux and returns the
// registered routes
func (s *Set) Register(mux *http.ServeMux, opts RouteOptions) ([]autorouter.HandlerInfo, error) {
	perFix := map[string][]autorouter.Middleware{}
	if opts.FixLimit != nil {
		perFix["PushFix"] = []autorouter.Middleware{opts.FixLimit}
	}

	groups := []group{
		{methodPrefix: "server.", handler: s.Server},
		{methodPrefix: "auth.", handler: s.Auth},
		{methodPrefix: "auth.", handler: s.Account, auth: true},
		{methodPrefix: "session.", handler: s.Session, auth: true, perMethod: perFix},
		{methodPrefix: "activity.", handler: s.Activity, auth: true},
		{methodPrefix: "profile.", handler: s.Profile, auth: true},
	}

	var routes []autorouter.HandlerInfo
	for _, g := range groups {
		router := autorouter.NewAutoRouter(mux, autorouter.RegistrationOptions{
			Prefix:           opts.Prefix,
			MethodPrefix:     g.methodPrefix,
			MethodMiddleware: g.perMethod,
			Logger:           opts.Logger,
		})

		var err error
		if g.auth {
			err = router.RegisterHandlersWithAuth(g.handler, opts.Auth)
		} else {
			err = router.RegisterHandlers(g.handler)
		}
		if err != nil {
			return nil, err
		}
		routes = append(routes, router.Routes()...)
	}
	return routes, nil
}
