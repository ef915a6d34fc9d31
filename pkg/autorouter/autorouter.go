package autorouter

import (
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/danghamo/stride/pkg/logger"
)

// HandlerFunc represents the expected handler function signature
type HandlerFunc func(http.ResponseWriter, *http.Request)

// Middleware represents middleware function signature
type Middleware func(http.Handler) http.Handler

// ErrorHandler writes the response for a handler method that returned an error
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// RegistrationOptions configures how handlers are registered
type RegistrationOptions struct {
	Prefix       string       // URL prefix (e.g., "/api/v1/")
	MethodPrefix string       // Method prefix (e.g., "session." -> "session.Start")
	Middleware   []Middleware // Middleware chain to apply
	// MethodMiddleware wraps individual methods, inside the shared chain
	MethodMiddleware map[string][]Middleware
	ErrorHandler     ErrorHandler
	Logger           *logger.Logger
}

// HandlerInfo provides information about registered handlers
type HandlerInfo struct {
	URLPath    string
	MethodName string
	HasAuth    bool
}

// AutoRouter handles automatic registration of HTTP handlers using reflection
type AutoRouter struct {
	mux     *http.ServeMux
	options RegistrationOptions
	routes  []HandlerInfo
	seen    map[string]bool
}

var (
	errorInterface     = reflect.TypeOf((*error)(nil)).Elem()
	responseWriterType = reflect.TypeOf((*http.ResponseWriter)(nil)).Elem()
	requestType        = reflect.TypeOf((*http.Request)(nil))
)

// NewAutoRouter creates a new auto router
func NewAutoRouter(mux *http.ServeMux, options RegistrationOptions) *AutoRouter {
	if options.Logger == nil {
		options.Logger = logger.NewNop()
	}
	if options.ErrorHandler == nil {
		options.ErrorHandler = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
	return &AutoRouter{
		mux:     mux,
		options: options,
		seen:    make(map[string]bool),
	}
}

// RegisterHandlers registers every exported method of handler that matches
// HandlerFunc, except those starting with "Handle"
func (ar *AutoRouter) RegisterHandlers(handler interface{}) error {
	return ar.register(handler, nil, false)
}

// RegisterHandlersWithAuth registers handlers behind an authentication middleware
func (ar *AutoRouter) RegisterHandlersWithAuth(handler interface{}, authMiddleware Middleware) error {
	return ar.register(handler, authMiddleware, true)
}

func (ar *AutoRouter) register(handler interface{}, auth Middleware, hasAuth bool) error {
	methods, err := ar.handlerMethods(handler)
	if err != nil {
		return err
	}

	for _, name := range methods {
		method := reflect.ValueOf(handler).MethodByName(name)
		if err := ar.registerMethod(name, ar.buildURLPath(name), method, auth, hasAuth); err != nil {
			return fmt.Errorf("failed to register method %s: %w", name, err)
		}
	}
	return nil
}

// RegisterSingleMethod registers a single method with custom path
func (ar *AutoRouter) RegisterSingleMethod(handler interface{}, methodName string, customPath string) error {
	method := reflect.ValueOf(handler).MethodByName(methodName)
	if !method.IsValid() {
		return fmt.Errorf("method %s not found", methodName)
	}
	if !isValidHandlerFunc(method) {
		return fmt.Errorf("method %s does not match handler signature", methodName)
	}
	return ar.registerMethod(methodName, ar.options.Prefix+customPath, method, nil, false)
}

// RegisterSingleMethodWithAuth registers a single method with custom path behind auth
func (ar *AutoRouter) RegisterSingleMethodWithAuth(handler interface{}, methodName, customPath string, authMiddleware Middleware) error {
	method := reflect.ValueOf(handler).MethodByName(methodName)
	if !method.IsValid() {
		return fmt.Errorf("method %s not found", methodName)
	}
	if !isValidHandlerFunc(method) {
		return fmt.Errorf("method %s does not match handler signature", methodName)
	}
	return ar.registerMethod(methodName, ar.options.Prefix+customPath, method, authMiddleware, true)
}

// Routes returns every route registered through this router, in order
func (ar *AutoRouter) Routes() []HandlerInfo {
	out := make([]HandlerInfo, len(ar.routes))
	copy(out, ar.routes)
	return out
}

// GetRegisteredHandlers returns the routes RegisterHandlers would create for
// handler without registering them
func (ar *AutoRouter) GetRegisteredHandlers(handler interface{}) []HandlerInfo {
	methods, err := ar.handlerMethods(handler)
	if err != nil {
		return nil
	}

	handlers := make([]HandlerInfo, 0, len(methods))
	for _, name := range methods {
		handlers = append(handlers, HandlerInfo{
			URLPath:    ar.buildURLPath(name),
			MethodName: name,
			HasAuth:    len(ar.options.Middleware) > 0,
		})
	}
	return handlers
}

// handlerMethods lists the names of the methods eligible for registration
func (ar *AutoRouter) handlerMethods(handler interface{}) ([]string, error) {
	handlerType := reflect.TypeOf(handler)
	if handlerType == nil {
		return nil, fmt.Errorf("handler must be a struct or pointer to struct")
	}
	elem := handlerType
	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}
	if elem.Kind() != reflect.Struct {
		return nil, fmt.Errorf("handler must be a struct or pointer to struct")
	}

	handlerValue := reflect.ValueOf(handler)
	var names []string
	for i := 0; i < handlerValue.NumMethod(); i++ {
		name := handlerType.Method(i).Name
		if !isExported(name) || strings.HasPrefix(name, "Handle") {
			continue
		}
		if !isValidHandlerFunc(handlerValue.Method(i)) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// isValidHandlerFunc checks for func(http.ResponseWriter, *http.Request) [error]
func isValidHandlerFunc(method reflect.Value) bool {
	methodType := method.Type()
	if methodType.Kind() != reflect.Func || methodType.NumIn() != 2 {
		return false
	}
	if methodType.NumOut() > 1 {
		return false
	}
	if methodType.NumOut() == 1 && !methodType.Out(0).Implements(errorInterface) {
		return false
	}
	if !methodType.In(0).Implements(responseWriterType) {
		return false
	}
	return methodType.In(1) == requestType
}

func (ar *AutoRouter) registerMethod(methodName, urlPath string, method reflect.Value, auth Middleware, hasAuth bool) error {
	if ar.seen[urlPath] {
		return fmt.Errorf("path %s already registered", urlPath)
	}

	chain := make([]Middleware, 0, len(ar.options.Middleware)+2)
	if auth != nil {
		chain = append(chain, auth)
	}
	chain = append(chain, ar.options.Middleware...)
	chain = append(chain, ar.options.MethodMiddleware[methodName]...)

	ar.mux.Handle(urlPath, applyMiddleware(ar.createHandlerFunc(method), chain))
	ar.seen[urlPath] = true
	ar.routes = append(ar.routes, HandlerInfo{URLPath: urlPath, MethodName: methodName, HasAuth: hasAuth})

	ar.options.Logger.Debug("Auto-registered route",
		zap.String("path", urlPath),
		zap.String("method", methodName),
		zap.Bool("auth", hasAuth))
	return nil
}

// buildURLPath constructs the URL path from method name
func (ar *AutoRouter) buildURLPath(methodName string) string {
	if ar.options.MethodPrefix != "" {
		return ar.options.Prefix + ar.options.MethodPrefix + methodName
	}
	return ar.options.Prefix + strings.ToLower(methodName)
}

func (ar *AutoRouter) createHandlerFunc(method reflect.Value) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := method.Call([]reflect.Value{reflect.ValueOf(w), reflect.ValueOf(r)})
		if len(results) == 0 || results[0].IsNil() {
			return
		}
		if err, ok := results[0].Interface().(error); ok && err != nil {
			ar.options.ErrorHandler(w, r, err)
		}
	}
}

// applyMiddleware wraps handler so that chain[0] runs first
func applyMiddleware(handler http.Handler, chain []Middleware) http.Handler {
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

// isExported reports whether name is an exported Go symbol
func isExported(name string) bool {
	r := rune(name[0])
	return r >= 'A' && r <= 'Z'
}

// QuickRegister is a convenience function for simple handler registration
func QuickRegister(mux *http.ServeMux, prefix string, methodPrefix string, handler interface{}) error {
	router := NewAutoRouter(mux, RegistrationOptions{
		Prefix:       prefix,
		MethodPrefix: methodPrefix,
	})
	return router.RegisterHandlers(handler)
}
