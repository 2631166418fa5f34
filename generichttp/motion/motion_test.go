package motion

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beamline-tools/newportxps/util"
)

// stubMover records moves and serves canned positions
type stubMover struct {
	pos   map[string]float64
	moves []string
}

func newStubMover() *stubMover {
	return &stubMover{pos: map[string]float64{}}
}

func (s *stubMover) GetPos(axis string) (float64, error) { return s.pos[axis], nil }

func (s *stubMover) MoveAbs(axis string, p float64) error {
	s.pos[axis] = p
	s.moves = append(s.moves, axis)
	return nil
}

func (s *stubMover) MoveRel(axis string, p float64) error {
	s.pos[axis] += p
	s.moves = append(s.moves, axis)
	return nil
}

func (s *stubMover) Home(axis string) error { return nil }

func limitedServer(t *testing.T, mov Mover, limits map[string]util.Limiter) *httptest.Server {
	t.Helper()
	httper := NewHTTPMotionController(mov)
	lim := LimitMiddleware{Limits: limits, Mov: mov}
	lim.Inject(httper)
	r := chi.NewRouter()
	r.Use(lim.Check)
	httper.RT().Bind(r)
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func TestLimitMiddlewareBlocksOutOfRangeMoves(t *testing.T) {
	mov := newStubMover()
	ts := limitedServer(t, mov, map[string]util.Limiter{"X": {Min: -1, Max: 1}})

	resp, err := http.Post(ts.URL+"/axis/X/pos", "application/json",
		strings.NewReader(`{"f64": 5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, mov.moves)

	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json",
		strings.NewReader(`{"f64": 0.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []string{"X"}, mov.moves)
}

func TestLimitMiddlewareShiftsRelativeMoves(t *testing.T) {
	mov := newStubMover()
	mov.pos["X"] = 0.9
	ts := limitedServer(t, mov, map[string]util.Limiter{"X": {Min: -1, Max: 1}})

	// 0.9 + 0.5 exceeds the ceiling even though the delta alone does not
	resp, err := http.Post(ts.URL+"/axis/X/pos?relative=true", "application/json",
		strings.NewReader(`{"f64": 0.5}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAxisFromPath(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/axis/X/pos", "X"},
		{"/axis/FINE.X/pos", "FINE.X"},
		{"/axis/Y/enabled", "Y"},
		{"/lock", ""},
		{"/axis/", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, axisFromPath(tc.path), tc.path)
	}
}

func TestLimitMiddlewareIgnoresUnlimitedAxes(t *testing.T) {
	mov := newStubMover()
	ts := limitedServer(t, mov, map[string]util.Limiter{"X": {Min: -1, Max: 1}})

	resp, err := http.Post(ts.URL+"/axis/Y/pos", "application/json",
		strings.NewReader(`{"f64": 100}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
