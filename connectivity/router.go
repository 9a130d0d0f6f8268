// Package connectivity routes extraction calls by service name. A service
// is either served in-process by a handler registered with RegisterLocal,
// forwarded to a remote extractor through a transport factory, or disabled.
// Which one applies is read from a SQLite routes table that can change
// while the process runs.
//
//	router := connectivity.New(connectivity.WithLogger(logger))
//	router.Use(connectivity.Recovery(logger), connectivity.Timeout(30*time.Second))
//	router.RegisterTransport("http", connectivity.HTTPFactory())
//	pipeline.RegisterConnectivity(router)
//	go router.Watch(ctx, db, time.Second)
//
//	out, err := router.Call(ctx, "legacydoc_extract", payload)
package connectivity

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/hazyhaar/legacydoc/safeio"
)

// Handler is a service function: request bytes in, response bytes out.
type Handler func(ctx context.Context, payload []byte) ([]byte, error)

// TransportFactory builds a Handler for a remote endpoint. The close
// function, which may be nil, runs when the route is replaced or removed.
type TransportFactory func(endpoint string, config json.RawMessage) (handler Handler, close func(), err error)

type route struct {
	Service  string
	Strategy string
	Endpoint string
	Config   json.RawMessage
}

func (rt route) key() string {
	return rt.Strategy + "|" + rt.Endpoint + "|" + string(rt.Config)
}

type remote struct {
	handler Handler
	close   func()
}

// Router dispatches calls by service name. Safe for concurrent use.
type Router struct {
	mu        sync.RWMutex
	locals    map[string]Handler
	remotes   map[string]remote
	routes    map[string]route
	factories map[string]TransportFactory
	mw        []HandlerMiddleware
	logger    *slog.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the router logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(r *Router) { r.logger = l }
}

// New returns a Router with no services.
func New(opts ...Option) *Router {
	r := &Router{
		locals:    make(map[string]Handler),
		remotes:   make(map[string]remote),
		routes:    make(map[string]route),
		factories: make(map[string]TransportFactory),
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// RegisterLocal registers the in-process handler for service.
func (r *Router) RegisterLocal(service string, h Handler) {
	r.mu.Lock()
	r.locals[service] = h
	r.mu.Unlock()
}

// RegisterTransport registers the factory used for routes whose strategy
// equals protocol.
func (r *Router) RegisterTransport(protocol string, f TransportFactory) {
	r.mu.Lock()
	r.factories[protocol] = f
	r.mu.Unlock()
}

// Use appends middlewares applied to every dispatched call. The first one
// is the outermost.
func (r *Router) Use(mws ...HandlerMiddleware) {
	r.mu.Lock()
	r.mw = append(r.mw, mws...)
	r.mu.Unlock()
}

// Services returns the sorted names of every local or routed service.
func (r *Router) Services() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.locals)+len(r.routes))
	for name := range r.locals {
		names = append(names, name)
	}
	for name := range r.routes {
		if _, ok := r.locals[name]; !ok {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Call dispatches payload to service. A noop route returns (nil, nil), a
// remote route wins over a local handler, and a service with neither
// returns *ErrServiceNotFound.
func (r *Router) Call(ctx context.Context, service string, payload []byte) ([]byte, error) {
	r.mu.RLock()
	rem, hasRemote := r.remotes[service]
	local := r.locals[service]
	rt, hasRoute := r.routes[service]
	mw := r.mw
	r.mu.RUnlock()

	var h Handler
	switch {
	case hasRoute && rt.Strategy == "noop":
		r.logger.DebugContext(ctx, "routing noop", "service", service)
		return nil, nil
	case hasRemote:
		r.logger.DebugContext(ctx, "routing remote", "service", service, "strategy", rt.Strategy, "endpoint", rt.Endpoint)
		h = rem.handler
	case local != nil:
		r.logger.DebugContext(ctx, "routing local", "service", service)
		h = local
	default:
		return nil, &ErrServiceNotFound{Service: service}
	}

	if len(mw) > 0 {
		h = Chain(mw...)(h)
	}
	return h(ctx, payload)
}

// Reload reads the routes table and rebuilds remote handlers whose
// strategy, endpoint or config changed. Unchanged routes keep their
// handler.
func (r *Router) Reload(ctx context.Context, db *sql.DB) error {
	rows, err := db.QueryContext(ctx,
		`SELECT service_name, strategy, COALESCE(endpoint, ''), COALESCE(config, '{}') FROM routes`)
	if err != nil {
		return fmt.Errorf("connectivity: query routes: %w", err)
	}
	defer rows.Close()

	next := make(map[string]route)
	for rows.Next() {
		var rt route
		var cfg string
		if err := rows.Scan(&rt.Service, &rt.Strategy, &rt.Endpoint, &cfg); err != nil {
			return fmt.Errorf("connectivity: scan route: %w", err)
		}
		if err := safeio.ValidateName(rt.Service); err != nil {
			r.logger.Warn("route skipped", "service", rt.Service, "error", err)
			continue
		}
		rt.Config = json.RawMessage(cfg)
		next[rt.Service] = rt
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("connectivity: rows: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	built := make(map[string]remote, len(next))
	for name, rt := range next {
		if rt.Strategy == "local" || rt.Strategy == "noop" {
			continue
		}
		if old, ok := r.routes[name]; ok && old.key() == rt.key() {
			if existing, ok := r.remotes[name]; ok {
				built[name] = existing
				continue
			}
		}
		factory, ok := r.factories[rt.Strategy]
		if !ok {
			r.logger.Warn("route skipped", "error", &ErrNoFactory{Service: name, Strategy: rt.Strategy})
			continue
		}
		h, closeFn, err := factory(rt.Endpoint, rt.Config)
		if err != nil {
			r.logger.Error("route skipped", "error",
				&ErrFactoryFailed{Service: name, Strategy: rt.Strategy, Endpoint: rt.Endpoint, Cause: err})
			continue
		}
		built[name] = remote{handler: h, close: closeFn}
		r.logger.Info("route built", "service", name, "strategy", rt.Strategy, "endpoint", rt.Endpoint)
	}

	for name, old := range r.remotes {
		if old.close == nil {
			continue
		}
		if _, kept := built[name]; !kept || r.routes[name].key() != next[name].key() {
			old.close()
		}
	}

	r.remotes = built
	r.routes = next
	r.logger.Info("routes reloaded", "total", len(next), "remote", len(built))
	return nil
}

// Close releases every remote handler and forgets all routes. Local
// handlers stay registered.
func (r *Router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rem := range r.remotes {
		if rem.close != nil {
			rem.close()
		}
	}
	r.remotes = make(map[string]remote)
	r.routes = make(map[string]route)
	return nil
}
