// Command xpsd serves an HTTP interface to a Newport XPS motion
// controller.
//
// Configuration comes from a YAML file, overridable by XPSD_ prefixed
// environment variables:
//
//	listen: :8000
//	mock: false
//	xps:
//	  addr: 192.168.0.254
//	  username: Administrator
//	  password: Administrator
//	limits:
//	  FINE.X:
//	    min: -50
//	    max: 50
//	lock: true
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"

	"github.com/go-chi/chi"
	chimw "github.com/go-chi/chi/middleware"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/phsym/console-slog"

	"github.com/beamline-tools/newportxps/generichttp"
	"github.com/beamline-tools/newportxps/generichttp/motion"
	"github.com/beamline-tools/newportxps/server/middleware/locker"
	"github.com/beamline-tools/newportxps/util"
	"github.com/beamline-tools/newportxps/xps"
)

// Config is the daemon configuration
type Config struct {
	// Listen is the HTTP bind address
	Listen string `koanf:"listen"`

	// Mock swaps the hardware for a simulator
	Mock bool `koanf:"mock"`

	XPS struct {
		// Addr is the controller network address
		Addr string `koanf:"addr"`

		Username string `koanf:"username"`
		Password string `koanf:"password"`
	} `koanf:"xps"`

	// Limits are server-imposed software travel limits per axis, applied
	// before commands reach the controller
	Limits map[string]util.Limiter `koanf:"limits"`

	// Lock mounts the lock routes so an experiment can freeze the motion
	// surface mid-exposure
	Lock bool `koanf:"lock"`
}

func loadConfig(path string) (Config, error) {
	k := koanf.New(".")
	defaults := map[string]interface{}{
		"listen":       ":8000",
		"mock":         false,
		"xps.username": xps.DefaultUsername,
		"xps.password": xps.DefaultPassword,
		"lock":         true,
	}
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return Config{}, err
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("loading %s: %w", path, err)
		}
	}
	err := k.Load(env.Provider("XPSD_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "XPSD_")), "_", ".")
	}), nil)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	err = k.Unmarshal("", &cfg)
	return cfg, err
}

func buildRoutes(cfg Config, log *slog.Logger) (generichttp.RouteTable, motion.Mover, error) {
	if cfg.Mock {
		log.Warn("running against a simulated controller, no hardware will move")
		m := xps.NewMock(cfg.XPS.Addr)
		return motion.NewHTTPMotionController(m).RT(), m, nil
	}
	c := xps.New(cfg.XPS.Addr)
	c.Username = cfg.XPS.Username
	c.Password = cfg.XPS.Password
	log.Info("connecting", "addr", cfg.XPS.Addr)
	if err := c.Connect(); err != nil {
		return nil, nil, err
	}
	log.Info("connected",
		"firmware", c.Firmware,
		"generation", c.Gen.String(),
		"groups", c.GroupNames())
	return xps.NewHTTPXPS(c).RT(), c, nil
}

func main() {
	var (
		cfgPath = flag.String("config", "", "path to YAML config file")
		listen  = flag.String("listen", "", "override the listen address")
		mock    = flag.Bool("mock", false, "run against a simulated controller")
	)
	flag.Parse()

	log := slog.New(console.NewHandler(os.Stderr, &console.HandlerOptions{Level: slog.LevelDebug}))

	cfg, err := loadConfig(*cfgPath)
	if err != nil {
		log.Error("config", "err", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	if *mock {
		cfg.Mock = true
	}
	if cfg.XPS.Addr == "" && !cfg.Mock {
		log.Error("no controller address configured; set xps.addr or pass -mock")
		os.Exit(1)
	}

	rt, mov, err := buildRoutes(cfg, log)
	if err != nil {
		log.Error("startup", "err", err)
		os.Exit(1)
	}

	httper := tabled{rt}
	r := chi.NewRouter()
	r.Use(chimw.Logger, chimw.Recoverer)
	if cfg.Lock {
		lock := locker.NewAL()
		locker.Inject(httper, lock)
		r.Use(lock.Check)
	}
	if len(cfg.Limits) > 0 {
		lim := motion.LimitMiddleware{Limits: cfg.Limits, Mov: mov}
		lim.Inject(httper)
		r.Use(lim.Check)
	}
	rt.Bind(r)

	log.Info("listening", "addr", cfg.Listen)
	if err := http.ListenAndServe(cfg.Listen, r); err != nil {
		log.Error("serve", "err", err)
		os.Exit(1)
	}
}

// tabled adapts a bare RouteTable to the HTTPer interface middleware
// injectors expect
type tabled struct {
	rt generichttp.RouteTable
}

func (t tabled) RT() generichttp.RouteTable { return t.rt }
