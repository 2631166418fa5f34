// Package motion provides an HTTP interface to motion controllers
package motion

import (
	"bytes"
	"encoding/json"
	"errors"
	"go/types"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi"

	"github.com/beamline-tools/newportxps/generichttp"
	"github.com/beamline-tools/newportxps/util"
)

var errClamped = errors.New("requested position violates software limits, aborted")

// Enabler describes an interface with enable/disable methods for axes
type Enabler interface {
	// Enable enables an axis
	Enable(string) error

	// Disable disables an axis
	Disable(string) error

	// GetEnabled gets if an axis is enabled
	GetEnabled(string) (bool, error)
}

// HTTPEnable adds routes for the enabler to the route table
func HTTPEnable(iface Enabler, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/enabled"}] = GetEnabled(iface)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/enabled"}] = SetEnabled(iface)
}

// SetEnabled returns an HTTP handler func from an enabler that enables or disables the axis
func SetEnabled(e Enabler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		boolT := generichttp.BoolT{}
		err := json.NewDecoder(r.Body).Decode(&boolT)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if boolT.Bool {
			err = e.Enable(axis)
		} else {
			err = e.Disable(axis)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetEnabled returns an HTTP handler func from an enabler that returns if the axis is enabled
func GetEnabled(e Enabler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		enabled, err := e.GetEnabled(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := generichttp.HumanPayload{T: types.Bool, Bool: enabled}
		hp.EncodeAndRespond(w, r)
	}
}

// Mover describes an interface with position-related methods for axes
type Mover interface {
	// GetPos gets the current position of an axis
	GetPos(string) (float64, error)

	// MoveAbs moves an axis to an absolute position
	MoveAbs(string, float64) error

	// MoveRel moves an axis a relative amount
	MoveRel(string, float64) error

	// Home homes an axis
	Home(string) error
}

// HTTPMove adds routes for the mover to the route table
func HTTPMove(iface Mover, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/home"}] = Home(iface)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/pos"}] = GetPos(iface)
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/pos"}] = SetPos(iface)
}

// GetPos returns an HTTP handler func from a mover that gets the position of an axis
func GetPos(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		pos, err := m.GetPos(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := generichttp.HumanPayload{T: types.Float64, Float: pos}
		hp.EncodeAndRespond(w, r)
	}
}

func popAxisRelative(r *http.Request) (string, bool, error) {
	axis := chi.URLParam(r, "axis")
	relative := r.URL.Query().Get("relative")
	if relative == "" {
		relative = "false"
	}
	b, err := strconv.ParseBool(relative)
	return axis, b, err
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

// SetPos returns an HTTP handler func from a mover that triggers an absolute or
// relative move on an axis based on the relative query parameter
func SetPos(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis, b, err := popAxisRelative(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f := generichttp.FloatT{}
		err = json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if b {
			err = m.MoveRel(axis, f.F64)
		} else {
			err = m.MoveAbs(axis, f.F64)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Home returns an HTTP handler func from a mover that homes an axis
func Home(m Mover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		err := m.Home(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// HomeQuerier is a type that can query if an axis is homed
type HomeQuerier interface {
	// Homed returns True if the axis is homed
	Homed(string) (bool, error)
}

// HTTPHomeQuery adds routes for home state queries to the route table
func HTTPHomeQuery(iface HomeQuerier, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/homed"}] = Homed(iface)
}

// Homed returns an HTTP handler func that queries if an axis is homed
func Homed(h HomeQuerier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		homed, err := h.Homed(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := generichttp.HumanPayload{T: types.Bool, Bool: homed}
		hp.EncodeAndRespond(w, r)
	}
}

// Speeder describes an interface with velocity-related methods for axes
type Speeder interface {
	// SetVelocity sets the velocity setpoint on the axis
	SetVelocity(string, float64) error

	// GetVelocity gets the velocity setpoint on the axis
	GetVelocity(string) (float64, error)
}

// HTTPSpeed adds routes for the speeder to the route table
func HTTPSpeed(iface Speeder, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/velocity"}] = SetVelocity(iface)
	table[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/velocity"}] = GetVelocity(iface)
}

// SetVelocity returns an HTTP handler func which sets the velocity setpoint on an axis
func SetVelocity(s Speeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		floatT := generichttp.FloatT{}
		err := json.NewDecoder(r.Body).Decode(&floatT)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = s.SetVelocity(axis, floatT.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetVelocity returns an HTTP handler func which gets the velocity setpoint on an axis
func GetVelocity(s Speeder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		vel, err := s.GetVelocity(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := generichttp.HumanPayload{T: types.Float64, Float: vel}
		hp.EncodeAndRespond(w, r)
	}
}

// Initializer is a type which may initialize an axis
type Initializer interface {
	// Initialize an axis, engaging the control electronics
	Initialize(string) error
}

// HTTPInitialize adds routes for initialization to the route table
func HTTPInitialize(i Initializer, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/initialize"}] = Initialize(i)
}

// Initialize returns an HTTP handler func that calls Initialize for an axis
func Initialize(i Initializer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		err := i.Initialize(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// Stopper describes an interface with stop-related methods for axes
type Stopper interface {
	// Stop aborts motion of the axis
	Stop(string) error
}

// HTTPStop adds routes for the stopper to the route table
func HTTPStop(iface Stopper, table generichttp.RouteTable) {
	table[generichttp.MethodPath{Method: http.MethodPost, Path: "/axis/{axis}/stop"}] = Stop(iface)
}

// Stop returns an HTTP handler func from a stopper that aborts motion on an axis
func Stop(m Stopper) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		err := m.Stop(axis)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// LimitMiddleware is a type that can impose axis-specific limits on motion
// it stops the chain of handling calls if a motion would violate a limit
type LimitMiddleware struct {
	// Limits contains the server imposed limits on the controller
	Limits map[string]util.Limiter

	// Mov is a reference to the mover, used to query axis positions
	Mov Mover
}

// Check verifies if a motion would violate the axis limit, if it exists,
// and if it does, responds with StatusBadRequest
// otherwise, flows control to the next handler
func (l *LimitMiddleware) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.String(), "pos") || r.Method != http.MethodPost {
			next.ServeHTTP(w, r)
			return
		}
		// URL parameters are not filled in for middleware, so the axis
		// comes from the path itself
		axis := axisFromPath(r.URL.Path)
		// bail as early as possible if we don't have a limit for this axis
		limiter, ok := l.Limits[axis]
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		relative := false
		if q := r.URL.Query().Get("relative"); q != "" {
			b, err := strconv.ParseBool(q)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			relative = b
		}
		// get the command
		f := generichttp.FloatT{}
		// downstream functions might want the body...
		// read it all here, then "paste" it back
		bodyContent, _ := io.ReadAll(r.Body)
		defer r.Body.Close()
		r.Body = io.NopCloser(bytes.NewBuffer(bodyContent))
		err := json.NewDecoder(bytes.NewReader(bodyContent)).Decode(&f)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		cmd := f.F64
		if relative {
			// in the relative case, shift the command by currPos
			currPos, err := l.Mov.GetPos(axis)
			if err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			cmd += currPos
		}
		ok = limiter.Check(cmd)
		if !ok {
			http.Error(w, errClamped.Error(), http.StatusBadRequest)
			return
		}
		// at this point, all checks have passed and we can move on
		next.ServeHTTP(w, r)
	})
}

// Inject places a /axis/{axis}/limits route on the table of the HTTPer
func (l LimitMiddleware) Inject(h generichttp.HTTPer) {
	h.RT()[generichttp.MethodPath{Method: http.MethodGet, Path: "/axis/{axis}/limits"}] = Limits(l)
}

// Limits returns an HTTP handler func that returns the limits for an axis
func Limits(l LimitMiddleware) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		axis := chi.URLParam(r, "axis")
		lim, ok := l.Limits[axis]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		var err error
		if !ok {
			err = json.NewEncoder(w).Encode(nil)
		} else {
			err = json.NewEncoder(w).Encode(lim)
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}

// Controller is used for the HTTP interface, which will check if the concrete
// type satisfies the other interfaces in this package and inject their routes
// automatically
type Controller interface {
	// Mover - all Controllers must be Movers
	Mover
}

// HTTPMotionController wraps a motion controller with HTTP
type HTTPMotionController struct {
	Controller

	RouteTable generichttp.RouteTable
}

// NewHTTPMotionController returns a new HTTP wrapper with the route table pre-configured
func NewHTTPMotionController(c Controller) HTTPMotionController {
	w := HTTPMotionController{Controller: c}
	rt := generichttp.RouteTable{}
	// the interface{}().(foo); ok syntax is an awful go-ism to test if c implements foo
	HTTPMove(c, rt)
	if enabler, ok := interface{}(c).(Enabler); ok {
		HTTPEnable(enabler, rt)
	}
	if speeder, ok := interface{}(c).(Speeder); ok {
		HTTPSpeed(speeder, rt)
	}
	if initializer, ok := interface{}(c).(Initializer); ok {
		HTTPInitialize(initializer, rt)
	}
	if stopper, ok := interface{}(c).(Stopper); ok {
		HTTPStop(stopper, rt)
	}
	if homer, ok := interface{}(c).(HomeQuerier); ok {
		HTTPHomeQuery(homer, rt)
	}
	w.RouteTable = rt
	return w
}

// RT satisfies the HTTPer interface
func (h HTTPMotionController) RT() generichttp.RouteTable {
	return h.RouteTable
}
