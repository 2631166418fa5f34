package locker

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestLockerBlocksWhenLocked(t *testing.T) {
	l := New()
	r := chi.NewRouter()
	r.Use(l.Check)
	r.Post("/axis/X/pos", okHandler)
	r.Get("/lock", l.HTTPGet)
	r.Post("/lock", l.HTTPSet)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/lock", "application/json", strings.NewReader(`{"bool": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	// the lock routes themselves stay reachable so it can be undone
	resp, err = http.Post(ts.URL+"/lock", "application/json", strings.NewReader(`{"bool": false}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAxisLockerIsolatesAxes(t *testing.T) {
	l := NewAL()
	r := chi.NewRouter()
	r.Use(l.Check)
	r.Post("/axis/{axis}/pos", okHandler)
	ts := httptest.NewServer(r)
	defer ts.Close()

	l.LockAxis("X")

	resp, err := http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/Y/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	l.UnlockAxis("X")
	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAxisLockerHTTPSetLocksOneAxis(t *testing.T) {
	l := NewAL()
	r := chi.NewRouter()
	r.Use(l.Check)
	r.Post("/axis/{axis}/pos", okHandler)
	r.Post("/lock", l.HTTPSet)
	ts := httptest.NewServer(r)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/lock?axis=X", "application/json",
		strings.NewReader(`{"bool": true}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusLocked, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/Y/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/lock?axis=X", "application/json",
		strings.NewReader(`{"bool": false}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/axis/X/pos", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
