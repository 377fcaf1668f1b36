package guard

import (
	"sync"

	"github.com/yndnr/calbook-go/internal/core/service"
	"github.com/yndnr/calbook-go/internal/telemetry/logger"
)

// maxRedirects bounds a redirect chain. Guards never loop, so hitting it
// means a guard is wrong.
const maxRedirects = 4

// StateSource is the part of the auth service the router reads.
type StateSource interface {
	State() service.State
	Subscribe(fn service.Listener) func()
}

// ChangeFunc observes route changes.
type ChangeFunc func(from, to Route, d Decision)

// Router tracks the current route.
type Router struct {
	source StateSource
	logger logger.Logger

	mu       sync.Mutex
	current  Route
	onChange ChangeFunc

	unsubscribe func()
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithLogger sets the router's logger.
func WithLogger(l logger.Logger) RouterOption {
	return func(r *Router) { r.logger = l }
}

// OnChange registers fn for every route change.
func OnChange(fn ChangeFunc) RouterOption {
	return func(r *Router) { r.onChange = fn }
}

// NewRouter starts at start, guarded against the current state, and
// follows every later state change.
func NewRouter(source StateSource, start Route, opts ...RouterOption) *Router {
	r := &Router{source: source, logger: logger.Discard()}
	for _, opt := range opts {
		opt(r)
	}
	r.current, _ = resolve(source.State(), start)
	r.unsubscribe = source.Subscribe(r.stateChanged)
	return r
}

// Current returns the current route.
func (r *Router) Current() Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Go navigates to dest. The returned decision is the guard's verdict on
// dest itself; the router may have landed elsewhere.
func (r *Router) Go(dest Route) (Route, Decision) {
	return r.move(r.source.State(), dest)
}

// Navigate implements connection.Navigator for forced navigation.
func (r *Router) Navigate(route string) {
	r.Go(Route(route))
}

// Close stops following state changes.
func (r *Router) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// stateChanged re-checks the current route. It runs inside the service's
// notification and must not call back into it.
func (r *Router) stateChanged(st service.State) {
	if st.Busy {
		return
	}
	r.move(st, r.Current())
}

func (r *Router) move(st service.State, dest Route) (Route, Decision) {
	landed, first := resolve(st, dest)

	r.mu.Lock()
	from := r.current
	r.current = landed
	onChange := r.onChange
	r.mu.Unlock()

	if from != landed {
		r.logger.Debug("route changed", "from", from, "to", landed, "requested", dest, "reason", first.Reason)
		if onChange != nil {
			onChange(from, landed, first)
		}
	}
	return landed, first
}

// resolve follows redirects from dest and returns where it lands together
// with the decision on dest.
func resolve(st service.State, dest Route) (Route, Decision) {
	first := Check(st, dest)
	at, d := dest, first
	for i := 0; !d.Allowed() && i < maxRedirects; i++ {
		at = d.Redirect
		d = Check(st, at)
	}
	return at, first
}
