package xps

import (
	"encoding/json"
	"go/types"
	"io"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/beamline-tools/newportxps/generichttp"
	"github.com/beamline-tools/newportxps/generichttp/ascii"
	"github.com/beamline-tools/newportxps/generichttp/motion"
)

// HTTPXPS exposes a Controller over HTTP.  The axis routes come from
// generichttp/motion; routes for the XPS-specific surface (group
// lifecycle, configuration files, trajectories, gathering) are added on
// top.
type HTTPXPS struct {
	// Ctl is the wrapped controller
	Ctl *Controller

	// RouteTable maps (method, path) to handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPXPS wraps a Controller with a complete route table
func NewHTTPXPS(c *Controller) HTTPXPS {
	h := HTTPXPS{Ctl: c}
	rt := motion.NewHTTPMotionController(c).RT()

	mp := func(method, path string) generichttp.MethodPath {
		return generichttp.MethodPath{Method: method, Path: path}
	}
	rt[mp(http.MethodGet, "/status-report")] = h.StatusReport
	rt[mp(http.MethodGet, "/firmware")] = h.Firmware
	rt[mp(http.MethodGet, "/groups")] = h.Groups
	rt[mp(http.MethodGet, "/stages")] = h.Stages
	rt[mp(http.MethodGet, "/group/{group}/status")] = h.GroupStatus
	rt[mp(http.MethodPost, "/group/{group}/initialize")] = h.groupAction(c.InitializeGroup)
	rt[mp(http.MethodPost, "/group/{group}/home")] = h.groupAction(c.HomeGroup)
	rt[mp(http.MethodPost, "/group/{group}/enable")] = h.groupAction(c.EnableGroup)
	rt[mp(http.MethodPost, "/group/{group}/disable")] = h.groupAction(c.DisableGroup)
	rt[mp(http.MethodPost, "/group/{group}/kill")] = h.groupAction(c.KillGroup)
	rt[mp(http.MethodPost, "/group/{group}/abort")] = h.groupAction(c.AbortGroupMove)
	rt[mp(http.MethodGet, "/ini/system")] = h.GetSystemINI
	rt[mp(http.MethodPost, "/ini/system")] = h.SetSystemINI
	rt[mp(http.MethodGet, "/trajectory")] = h.Trajectories
	rt[mp(http.MethodGet, "/trajectory-state")] = h.TrajectoryState
	rt[mp(http.MethodPost, "/trajectory/line")] = h.DefineLine
	rt[mp(http.MethodPost, "/trajectory/{name}/arm")] = h.Arm
	rt[mp(http.MethodPost, "/trajectory/{name}/run")] = h.Run

	h.RouteTable = rt
	ascii.InjectRawComm(h, c)
	return h
}

// RT satisfies the HTTPer interface
func (h HTTPXPS) RT() generichttp.RouteTable {
	return h.RouteTable
}

// StatusReport returns the plain text status report
func (h HTTPXPS) StatusReport(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ctl.StatusReport()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(s + "\n"))
}

// Firmware returns the firmware version string
func (h HTTPXPS) Firmware(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.String, String: h.Ctl.Firmware}
	hp.EncodeAndRespond(w, r)
}

// Groups returns the cached group layout as JSON
func (h HTTPXPS) Groups(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Ctl.Groups()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Stages returns the cached stages as JSON
func (h HTTPXPS) Stages(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Ctl.Stages()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GroupStatus returns the status description of one group
func (h HTTPXPS) GroupStatus(w http.ResponseWriter, r *http.Request) {
	s, err := h.Ctl.GroupStatus(chi.URLParam(r, "group"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	hp := generichttp.HumanPayload{T: types.String, String: s}
	hp.EncodeAndRespond(w, r)
}

func (h HTTPXPS) groupAction(f func(string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(chi.URLParam(r, "group")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}
}

// GetSystemINI downloads system.ini and returns it as plain text
func (h HTTPXPS) GetSystemINI(w http.ResponseWriter, r *http.Request) {
	text, err := h.Ctl.DownloadSystemINI()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(text))
}

// SetSystemINI uploads the request body as the new system.ini.  The
// controller must be rebooted for it to take effect.
func (h HTTPXPS) SetSystemINI(w http.ResponseWriter, r *http.Request) {
	b, err := io.ReadAll(r.Body)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Ctl.UploadSystemINI(string(b)); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Trajectories lists the defined trajectory names
func (h HTTPXPS) Trajectories(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(h.Ctl.TrajectoryNames()); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TrajectoryState returns the client-side trajectory lifecycle state
func (h HTTPXPS) TrajectoryState(w http.ResponseWriter, r *http.Request) {
	hp := generichttp.HumanPayload{T: types.String, String: string(h.Ctl.TrajectoryState())}
	hp.EncodeAndRespond(w, r)
}

// DefineLine defines forward and backward line scan trajectories from a
// JSON LineScan body
func (h HTTPXPS) DefineLine(w http.ResponseWriter, r *http.Request) {
	var ls LineScan
	err := json.NewDecoder(r.Body).Decode(&ls)
	defer r.Body.Close()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.Ctl.DefineLineTrajectories(ls); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Arm arms a named trajectory, moving to its start position first
func (h HTTPXPS) Arm(w http.ResponseWriter, r *http.Request) {
	if err := h.Ctl.ArmTrajectory(chi.URLParam(r, "name"), true); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Run executes a named trajectory.  The gathered data streams back as
// plain text.
func (h HTTPXPS) Run(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	_, err := h.Ctl.RunTrajectory(name, "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	_, buff, err := h.Ctl.ReadGathering()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/plain")
	w.Write([]byte(h.Ctl.gatherTitles() + buff))
}
