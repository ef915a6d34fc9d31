package autorouter

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lapHandler struct {
	name string
}

func (h *lapHandler) Start(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusCreated)
	fmt.Fprintf(w, "started by %s", h.name)
}

func (h *lapHandler) Status(w http.ResponseWriter, r *http.Request) {
	fmt.Fprintf(w, "status from %s", h.name)
}

func (h *lapHandler) Stop(w http.ResponseWriter, r *http.Request) error {
	return errors.New("nothing to stop")
}

// HandleLegacy is skipped
func (h *lapHandler) HandleLegacy(w http.ResponseWriter, r *http.Request) {}

func (h *lapHandler) wrongArity(w http.ResponseWriter) {}

func (h *lapHandler) unexported(w http.ResponseWriter, r *http.Request) {}

func (h *lapHandler) Label() string { return h.name }

func serve(mux *http.ServeMux, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestBasicRegistration(t *testing.T) {
	mux := http.NewServeMux()
	router := NewAutoRouter(mux, RegistrationOptions{
		Prefix:       "/api/v1/",
		MethodPrefix: "lap.",
	})

	require.NoError(t, router.RegisterHandlers(&lapHandler{name: "test"}))

	w := serve(mux, http.MethodPost, "/api/v1/lap.Start", nil)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), "started by test")

	w = serve(mux, http.MethodPost, "/api/v1/lap.HandleLegacy", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuickRegister(t *testing.T) {
	mux := http.NewServeMux()
	require.NoError(t, QuickRegister(mux, "/api/v1/", "lap.", &lapHandler{name: "quick"}))

	w := serve(mux, http.MethodGet, "/api/v1/lap.Status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status from quick")
}

func TestLowercasePathWithoutMethodPrefix(t *testing.T) {
	mux := http.NewServeMux()
	router := NewAutoRouter(mux, RegistrationOptions{Prefix: "/"})
	require.NoError(t, router.RegisterHandlers(&lapHandler{name: "lower"}))

	w := serve(mux, http.MethodGet, "/status", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	tag := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test-Middleware", "applied")
			next.ServeHTTP(w, r)
		})
	}
	limited := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Limited", "yes")
			next.ServeHTTP(w, r)
		})
	}

	router := NewAutoRouter(mux, RegistrationOptions{
		Prefix:           "/api/v1/",
		MethodPrefix:     "lap.",
		Middleware:       []Middleware{tag},
		MethodMiddleware: map[string][]Middleware{"Start": {limited}},
	})
	require.NoError(t, router.RegisterHandlers(&lapHandler{name: "mw"}))

	w := serve(mux, http.MethodGet, "/api/v1/lap.Status", nil)
	assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	assert.Empty(t, w.Header().Get("X-Limited"))

	w = serve(mux, http.MethodPost, "/api/v1/lap.Start", nil)
	assert.Equal(t, "applied", w.Header().Get("X-Test-Middleware"))
	assert.Equal(t, "yes", w.Header().Get("X-Limited"))
}

func TestRegistrationWithAuth(t *testing.T) {
	mux := http.NewServeMux()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer test-token" {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}

	router := NewAutoRouter(mux, RegistrationOptions{
		Prefix:       "/api/v1/",
		MethodPrefix: "lap.",
	})
	require.NoError(t, router.RegisterHandlersWithAuth(&lapHandler{name: "auth"}, auth))

	w := serve(mux, http.MethodGet, "/api/v1/lap.Status", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = serve(mux, http.MethodGet, "/api/v1/lap.Status", http.Header{"Authorization": {"Bearer test-token"}})
	assert.Equal(t, http.StatusOK, w.Code)

	for _, route := range router.Routes() {
		assert.True(t, route.HasAuth, route.URLPath)
	}
}

func TestErrorReturningMethod(t *testing.T) {
	mux := http.NewServeMux()
	var captured error
	router := NewAutoRouter(mux, RegistrationOptions{
		Prefix:       "/api/v1/",
		MethodPrefix: "lap.",
		ErrorHandler: func(w http.ResponseWriter, _ *http.Request, err error) {
			captured = err
			w.WriteHeader(http.StatusConflict)
		},
	})
	require.NoError(t, router.RegisterHandlers(&lapHandler{}))

	w := serve(mux, http.MethodPost, "/api/v1/lap.Stop", nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.Error(t, captured)
	assert.Equal(t, "nothing to stop", captured.Error())
}

func TestGetRegisteredHandlers(t *testing.T) {
	router := NewAutoRouter(http.NewServeMux(), RegistrationOptions{
		Prefix:       "/api/v1/",
		MethodPrefix: "lap.",
	})

	handlers := router.GetRegisteredHandlers(&lapHandler{name: "info"})

	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		names = append(names, h.MethodName)
		assert.Equal(t, "/api/v1/lap."+h.MethodName, h.URLPath)
	}
	assert.ElementsMatch(t, []string{"Start", "Status", "Stop"}, names)
	assert.Empty(t, router.Routes())
}

func TestSingleMethodRegistration(t *testing.T) {
	mux := http.NewServeMux()
	handler := &lapHandler{name: "single"}
	router := NewAutoRouter(mux, RegistrationOptions{Prefix: "/api/v1/"})

	require.NoError(t, router.RegisterSingleMethod(handler, "Status", "custom/path"))
	assert.Error(t, router.RegisterSingleMethod(handler, "Missing", "missing"))
	assert.Error(t, router.RegisterSingleMethod(handler, "Label", "label"))

	w := serve(mux, http.MethodGet, "/api/v1/custom/path", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "status from single")
}

func TestDuplicateRegistrationFails(t *testing.T) {
	router := NewAutoRouter(http.NewServeMux(), RegistrationOptions{
		Prefix:       "/api/v1/",
		MethodPrefix: "lap.",
	})
	handler := &lapHandler{}

	require.NoError(t, router.RegisterSingleMethod(handler, "Start", "lap.Start"))
	assert.Error(t, router.RegisterHandlers(handler))
}

func TestRejectsNonStructHandler(t *testing.T) {
	router := NewAutoRouter(http.NewServeMux(), RegistrationOptions{})
	assert.Error(t, router.RegisterHandlers(func() {}))
	assert.Nil(t, router.GetRegisteredHandlers(42))
}
