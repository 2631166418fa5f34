// Package locker provides an HTTP middleware which allows a handler tree to be locked, returning 423 (locked)
package locker

import (
	"encoding/json"
	"go/types"
	"net/http"
	"strings"

	"github.com/beamline-tools/newportxps/generichttp"
)

// ManipulableLock can be locked, unlocked, and queried over HTTP, and
// provides a middleware that enforces the lock
type ManipulableLock interface {
	// Check is the middleware which rejects mutating requests when locked
	Check(http.Handler) http.Handler

	// HTTPGet returns the lock state over HTTP
	HTTPGet(w http.ResponseWriter, r *http.Request)

	// HTTPSet adjusts the lock state over HTTP
	HTTPSet(w http.ResponseWriter, r *http.Request)
}

// Inject adds lock routes to an HTTPer which are used to manipulate the lock
func Inject(other generichttp.HTTPer, l ManipulableLock) {
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/lock"}] = l.HTTPGet
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/lock"}] = l.HTTPSet
}

// Locker is a type which behaves like a sync.Mutex without the blocking,
// and holds a list of paths to not protect
type Locker struct {
	isLocked bool

	// DoNotProtect is a list of paths not to apply the lock to
	DoNotProtect []string
}

// New returns a new Locker with DoNotProtect prepopulated with "lock"
func New() *Locker {
	return &Locker{DoNotProtect: []string{"lock"}}
}

// Lock the locker
func (l *Locker) Lock() {
	l.isLocked = true
}

// Unlock the locker
func (l *Locker) Unlock() {
	l.isLocked = false
}

// Locked returns true if the locker is locked
func (l *Locker) Locked() bool {
	return l.isLocked
}

// Check is an HTTP middleware that returns http.StatusLocked if Locked() is true, otherwise passes down the line
func (l *Locker) Check(next http.Handler) http.Handler {
	// return a handlerfunc wrapping a handler, middleware/generator pattern
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.Locked() {
			// check if the path is protected
			protected := true
			url := r.URL.Path
			for _, str := range l.DoNotProtect {
				if strings.Contains(url, str) {
					protected = false
				}
			}
			// if it is, bounce the request - locked
			if protected {
				w.WriteHeader(http.StatusLocked)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// HTTPSet calls Lock or Unlock based on json:bool on the request body
func (l *Locker) HTTPSet(w http.ResponseWriter, r *http.Request) {
	b := generichttp.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Bool {
		l.Lock()
	} else {
		l.Unlock()
	}
	w.WriteHeader(http.StatusOK)
}

// HTTPGet returns Locked() over HTTP as JSON
func (l *Locker) HTTPGet(w http.ResponseWriter, r *http.Request) {
	b := l.Locked()
	hp := generichttp.HumanPayload{T: types.Bool, Bool: b}
	hp.EncodeAndRespond(w, r)
}

// AxisLocker is a Locker that tracks lock state per axis.  Requests that
// do not mention an axis fall back to the global lock.
type AxisLocker struct {
	Locker

	axes map[string]bool
}

// NewAL returns a new AxisLocker
func NewAL() *AxisLocker {
	return &AxisLocker{Locker: Locker{DoNotProtect: []string{"lock"}}, axes: map[string]bool{}}
}

// LockAxis locks a single axis
func (a *AxisLocker) LockAxis(axis string) {
	a.axes[axis] = true
}

// UnlockAxis unlocks a single axis
func (a *AxisLocker) UnlockAxis(axis string) {
	a.axes[axis] = false
}

// AxisLocked returns true if the named axis, or the whole device, is locked
func (a *AxisLocker) AxisLocked(axis string) bool {
	return a.Locked() || a.axes[axis]
}

// axisFromPath extracts the axis name from a path like /axis/X/pos.
// Middleware runs before the router matches the route, so URL parameters
// are not populated yet and the path must be parsed directly.
func axisFromPath(path string) string {
	const marker = "/axis/"
	i := strings.Index(path, marker)
	if i == -1 {
		return ""
	}
	rest := path[i+len(marker):]
	if j := strings.IndexByte(rest, '/'); j != -1 {
		rest = rest[:j]
	}
	return rest
}

// Check behaves as Locker.Check, but consults the per-axis state when the
// request names an axis
func (a *AxisLocker) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		axis := axisFromPath(r.URL.Path)
		if axis != "" {
			if a.AxisLocked(axis) {
				w.WriteHeader(http.StatusLocked)
				return
			}
			next.ServeHTTP(w, r)
			return
		}
		a.Locker.Check(next).ServeHTTP(w, r)
	})
}

// HTTPSet locks or unlocks; if an axis query parameter is present only that
// axis is affected
func (a *AxisLocker) HTTPSet(w http.ResponseWriter, r *http.Request) {
	axis := r.URL.Query().Get("axis")
	if axis == "" {
		a.Locker.HTTPSet(w, r)
		return
	}
	b := generichttp.BoolT{}
	err := json.NewDecoder(r.Body).Decode(&b)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.Bool {
		a.LockAxis(axis)
	} else {
		a.UnlockAxis(axis)
	}
	w.WriteHeader(http.StatusOK)
}
