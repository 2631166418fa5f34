package xps

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// terminator appended by the controller to every reply.  Requests carry no
// terminator at all, which is unusual for an ASCII protocol.
const endOfAPI = ",EndOfAPI"

// output placeholders used in query commands.  The controller replaces each
// one with a value in the reply body.
const (
	outDouble = "double *"
	outInt    = "int *"
	outChar   = "char *"
)

// cmd formats a command string, Name(arg1,arg2,...).  Arguments are
// stringified per their type; float64 uses the shortest round-trippable
// representation.
func cmd(name string, args ...interface{}) string {
	strs := make([]string, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case string:
			strs[i] = v
		case float64:
			strs[i] = strconv.FormatFloat(v, 'g', -1, 64)
		case int:
			strs[i] = strconv.Itoa(v)
		case bool:
			if v {
				strs[i] = "1"
			} else {
				strs[i] = "0"
			}
		default:
			strs[i] = fmt.Sprint(v)
		}
	}
	return name + "(" + strings.Join(strs, ",") + ")"
}

// outputs returns n copies of an output placeholder joined with commas,
// e.g. outputs(outDouble, 3) => "double *,double *,double *"
func outputs(kind string, n int) string {
	strs := make([]string, n)
	for i := 0; i < n; i++ {
		strs[i] = kind
	}
	return strings.Join(strs, ",")
}

// readReply consumes bytes from r until the EndOfAPI terminator is seen and
// returns the reply with the terminator stripped
func readReply(r io.Reader) (string, error) {
	buf := make([]byte, 0, 256)
	chunk := make([]byte, 256)
	for {
		n, err := r.Read(chunk)
		buf = append(buf, chunk[:n]...)
		if strings.HasSuffix(string(buf), endOfAPI) {
			return strings.TrimSuffix(string(buf), endOfAPI), nil
		}
		if err != nil {
			return string(buf), errors.Wrap(err, "reply not terminated with EndOfAPI")
		}
	}
}

// splitReply breaks a terminator-stripped reply into its error code and body
func splitReply(raw string) (int, string, error) {
	code := raw
	body := ""
	if idx := strings.Index(raw, ","); idx != -1 {
		code = raw[:idx]
		body = raw[idx+1:]
	}
	i, err := strconv.Atoi(strings.TrimSpace(code))
	if err != nil {
		return 0, "", errors.Wrapf(err, "malformed reply %q", raw)
	}
	return i, body, nil
}

// parseFloats splits a comma-delimited body into n float64s
func parseFloats(body string, n int) ([]float64, error) {
	pieces := strings.Split(body, ",")
	if len(pieces) < n {
		return nil, errors.Errorf("expected %d values, reply had %d: %q", n, len(pieces), body)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(pieces[i]), 64)
		if err != nil {
			return nil, errors.Wrapf(err, "field %d of %q", i, body)
		}
		out[i] = f
	}
	return out, nil
}

// parseInts splits a comma-delimited body into n ints
func parseInts(body string, n int) ([]int, error) {
	pieces := strings.Split(body, ",")
	if len(pieces) < n {
		return nil, errors.Errorf("expected %d values, reply had %d: %q", n, len(pieces), body)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(pieces[i]))
		if err != nil {
			return nil, errors.Wrapf(err, "field %d of %q", i, body)
		}
		out[i] = v
	}
	return out, nil
}
