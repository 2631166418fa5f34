// Package generichttp defines interfaces for generic devices
// and an extensible type that wraps them in an HTTP interface
package generichttp

import (
	"encoding/json"
	"go/types"
	"net/http"
	"strings"

	"github.com/go-chi/chi"
)

// MethodPath is a method-path pair, e.g. GET /foo
type MethodPath struct {
	// Method is the HTTP method, e.g. http.MethodGet
	Method string

	// Path is the URL fragment, in chi syntax, e.g. /axis/{axis}/pos
	Path string
}

// RouteTable maps method-path pairs to handler funcs
type RouteTable map[MethodPath]http.HandlerFunc

// Endpoints returns the URL fragments bound in the table
func (rt RouteTable) Endpoints() []string {
	routes := make([]string, 0, len(rt))
	for k := range rt {
		routes = append(routes, k.Method+" "+k.Path)
	}
	return routes
}

// Bind attaches all of the routes in the table to a chi router
func (rt RouteTable) Bind(r chi.Router) {
	for mp, handler := range rt {
		r.MethodFunc(mp.Method, mp.Path, handler)
	}
}

// HTTPer is an object which has a route table that can be bound to a router
type HTTPer interface {
	RT() RouteTable
}

// SubMuxSanitize ensures a URL stem is of the form "/foo/bar/*" for use
// as a chi mount point.  "omc/nkt" => "/omc/nkt/*"
func SubMuxSanitize(stem string) string {
	if !strings.HasPrefix(stem, "/") {
		stem = "/" + stem
	}
	stem = strings.TrimSuffix(stem, "/")
	return stem + "/*"
}

// FloatT is a struct with a single field, F64, used for JSON payloads
type FloatT struct {
	F64 float64 `json:"f64"`
}

// IntT is a struct with a single field, Int, used for JSON payloads
type IntT struct {
	Int int `json:"int"`
}

// StrT is a struct with a single field, Str, used for JSON payloads
type StrT struct {
	Str string `json:"str"`
}

// BoolT is a struct with a single field, Bool, used for JSON payloads
type BoolT struct {
	Bool bool `json:"bool"`
}

// HumanPayload is a struct that holds the basic types and one of them,
// indicated by T.  It is encoded to JSON with a single key whose name
// matches the held type.
type HumanPayload struct {
	// T holds the type of data actually contained in the payload
	T types.BasicKind

	// Bool holds a binary value
	Bool bool

	// Int holds an integer value
	Int int

	// Float holds a floating point value
	Float float64

	// String holds a string value
	String string
}

// EncodeAndRespond writes the payload to w as JSON
func (hp HumanPayload) EncodeAndRespond(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	var (
		obj interface{}
		err error
	)
	switch hp.T {
	case types.Bool:
		obj = BoolT{Bool: hp.Bool}
	case types.Int:
		obj = IntT{Int: hp.Int}
	case types.Float64:
		obj = FloatT{F64: hp.Float}
	case types.String:
		obj = StrT{Str: hp.String}
	default:
		http.Error(w, "payload type unknown to generichttp", http.StatusInternalServerError)
		return
	}
	err = json.NewEncoder(w).Encode(obj)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetFloat calls a float-getting function and returns the response
// as json {'f64': value}
func GetFloat(fcn func() (float64, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Float64, Float: f}
		hp.EncodeAndRespond(w, r)
	}
}

// SetFloat parses a JSON input of {'f64': value} and calls fcn with it
func SetFloat(fcn func(float64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := FloatT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.F64)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetInt calls an int-getting function and returns the response
// as json {'int': value}
func GetInt(fcn func() (int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Int, Int: i}
		hp.EncodeAndRespond(w, r)
	}
}

// SetInt parses a JSON input of {'int': value} and calls fcn with it
func SetInt(fcn func(int) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := IntT{}
		err := json.NewDecoder(r.Body).Decode(&f)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(f.Int)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetString calls a string-getting function and returns the response
// as json {'str': value}
func GetString(fcn func() (string, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.String, String: s}
		hp.EncodeAndRespond(w, r)
	}
}

// SetString parses a JSON input of {'str': value} and calls fcn with it
func SetString(fcn func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := StrT{}
		err := json.NewDecoder(r.Body).Decode(&s)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(s.Str)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetBool calls a bool-getting function and returns the response
// as json {'bool': value}
func GetBool(fcn func() (bool, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, err := fcn()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		hp := HumanPayload{T: types.Bool, Bool: b}
		hp.EncodeAndRespond(w, r)
	}
}

// SetBool parses a JSON input of {'bool': value} and calls fcn with it
func SetBool(fcn func(bool) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b := BoolT{}
		err := json.NewDecoder(r.Body).Decode(&b)
		defer r.Body.Close()
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		err = fcn(b.Bool)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}
