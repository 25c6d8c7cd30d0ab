package tfhttp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httputil"
	"time"

	"github.com/brutella/hc/log"
	"github.com/gorilla/mux"

	tfaccessory "github.com/cloudkucooland/toofar-tailwind/accessory"
	"github.com/cloudkucooland/toofar-tailwind/action"
	"github.com/cloudkucooland/toofar-tailwind/config"
	"github.com/cloudkucooland/toofar-tailwind/number"
	"github.com/cloudkucooland/toofar-tailwind/platform"
	"github.com/cloudkucooland/toofar-tailwind/runner"
)

// Platform is the primary handle
type Platform struct {
	Running bool
}

// entityHolder is satisfied by platform devices that carry number entities
type entityHolder interface {
	Entity(key string) (number.Entity, bool)
}

// NumberState is the JSON form of one number entity
type NumberState struct {
	UniqueID  string   `json:"unique_id"`
	Key       string   `json:"key"`
	Value     *float64 `json:"value"`
	Min       float64  `json:"min"`
	Max       float64  `json:"max"`
	Step      float64  `json:"step"`
	Unit      string   `json:"unit,omitempty"`
	Category  string   `json:"entity_category,omitempty"`
	Icon      string   `json:"icon,omitempty"`
	Available bool     `json:"available"`
}

var srv *http.Server

// Startup is called by the platform management to get things running
func (h Platform) Startup(c *config.Config) platform.Control {
	r := Router()
	if c.LogLevel == "debug" {
		r.Use(DebugMW)
	}
	srv = &http.Server{
		Addr:         c.HTTPAddress,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      r,
	}

	go func(s *http.Server) {
		log.Info.Printf("starting up HTTP control channel on %s", c.HTTPAddress)
		if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Info.Print(err)
		}
	}(srv)

	h.Running = true
	return h
}

// Router has every route the control channel serves
func Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", homeHandler).Methods(http.MethodGet)
	r.HandleFunc("/number", listHandler).Methods(http.MethodGet)
	r.HandleFunc("/{platform}/{device}/{key}", getHandler).Methods(http.MethodGet)
	r.HandleFunc("/{platform}/{device}/{key}", setHandler).Methods(http.MethodPut, http.MethodPost)
	return r
}

// Shutdown is called by the platform management to shut things down
func (h Platform) Shutdown() platform.Control {
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Info.Print(err)
		}
	}
	h.Running = false
	return h
}

func homeHandler(w http.ResponseWriter, r *http.Request) {
	log.Debug.Print("HomeHandler requested")
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func listHandler(w http.ResponseWriter, r *http.Request) {
	all := number.All()
	out := make([]NumberState, 0, len(all))
	for _, e := range all {
		out = append(out, state(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func getHandler(w http.ResponseWriter, r *http.Request) {
	e, err := lookup(mux.Vars(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state(e))
}

func setHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	value := r.FormValue("value")
	if value == "" {
		writeError(w, action.ErrBadValue)
		return
	}

	a := &action.Action{
		TargetPlatform: vars["platform"],
		TargetDevice:   vars["device"],
		Verb:           vars["key"],
		Value:          value,
	}
	if err := runner.Run(r.Context(), a); err != nil {
		log.Info.Println(err.Error())
		writeError(w, err)
		return
	}

	e, err := lookup(vars)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state(e))
}

func lookup(vars map[string]string) (number.Entity, error) {
	p, ok := platform.GetPlatform(vars["platform"])
	if !ok {
		return nil, runner.ErrUnknownPlatform
	}
	a, ok := p.GetAccessory(vars["device"])
	if !ok {
		return nil, runner.ErrUnknownDevice
	}
	return entity(a, vars["key"])
}

func entity(a *tfaccessory.TFAccessory, key string) (number.Entity, error) {
	h, ok := a.Device.(entityHolder)
	if !ok {
		return nil, action.ErrNoRunner
	}
	e, ok := h.Entity(key)
	if !ok {
		return nil, action.ErrUnknownVerb
	}
	return e, nil
}

func state(e number.Entity) NumberState {
	d := e.EntityDescription()
	s := NumberState{
		UniqueID:  e.UniqueID(),
		Key:       d.Key,
		Min:       d.NativeMinValue,
		Max:       d.NativeMaxValue,
		Step:      d.NativeStep,
		Unit:      d.NativeUnitOfMeasurement,
		Category:  string(d.EntityCategory),
		Icon:      d.Icon,
		Available: true,
	}
	if v, ok := e.NativeValue(); ok {
		s.Value = &v
	}
	if av, ok := e.(interface{ Available() bool }); ok {
		s.Available = av.Available()
	}
	return s
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, runner.ErrUnknownPlatform),
		errors.Is(err, runner.ErrUnknownDevice),
		errors.Is(err, action.ErrUnknownVerb),
		errors.Is(err, action.ErrNoRunner):
		return http.StatusNotFound
	case errors.Is(err, action.ErrBadValue), errors.Is(err, number.ErrOutOfRange):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"status": "bad", "error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Info.Print(err)
	}
}

// DebugMW dumps every request to the log
func DebugMW(next http.Handler) http.Handler {
	return http.HandlerFunc(func(res http.ResponseWriter, req *http.Request) {
		dump, _ := httputil.DumpRequest(req, false)
		log.Debug.Print(string(dump))
		next.ServeHTTP(res, req)
	})
}

// AddAccessory - do not use, just satisfies the Platform interface
func (h Platform) AddAccessory(a *tfaccessory.TFAccessory) error {
	return nil
}

// GetAccessory - do not use, just satisfies the Platform interface
func (h Platform) GetAccessory(name string) (*tfaccessory.TFAccessory, bool) {
	return nil, false
}

// Background - just satisfies the Platform interface
func (h Platform) Background() {
	// nothing to do
}
