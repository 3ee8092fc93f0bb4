// Package productionplan exposes the planner over HTTP and owns the public
// request payload format.
package productionplan

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kilianp07/powerplan/core/dispatch"
	"github.com/kilianp07/powerplan/core/logger"
	"github.com/kilianp07/powerplan/core/model"
	"github.com/kilianp07/powerplan/core/monitoring"
	infralogger "github.com/kilianp07/powerplan/infra/logger"
)

// InfeasibleMessage is the client-facing error for plans that cannot match the load.
const InfeasibleMessage = "Unable to match the exact load"

// Planner computes identified production plans. *dispatch.PlanManager implements it.
type Planner interface {
	Plan(req model.LoadRequest) (dispatch.Result, error)
}

// Options configures the HTTP handler.
type Options struct {
	// Token, when non-empty, is required as "Authorization: Bearer <token>" on plan requests.
	Token string
	// DefaultCO2Price is used when a payload omits co2(euro/ton).
	DefaultCO2Price float64
	Logger          logger.Logger
}

// NewHandler returns the HTTP API:
//
//	POST /api/v1/productionplan  compute a plan
//	GET  /api/                   service banner
//	GET  /healthz                liveness probe
func NewHandler(p Planner, opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = infralogger.New("productionplan-api")
	}
	mux := http.NewServeMux()
	mux.Handle("POST /api/v1/productionplan", requireToken(opts.Token, planHandler(p, opts.DefaultCO2Price, log)))
	mux.HandleFunc("GET /api/{$}", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Powerplant Coding Challenge"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func planHandler(p Planner, defaultCO2 float64, log logger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := Decode(http.MaxBytesReader(w, r.Body, MaxPayloadBytes), defaultCO2)
		if err != nil {
			log.Debugf("rejecting payload from %s: %v", r.RemoteAddr, err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		res, err := p.Plan(req.Load)
		if res.ID != "" {
			w.Header().Set("X-Plan-ID", res.ID)
		}
		if err != nil {
			status, msg := StatusOf(err)
			if status == http.StatusInternalServerError {
				log.Errorf("plan %s failed: %v", res.ID, err)
				monitoring.CaptureException(err, map[string]string{"component": "productionplan-api", "plan_id": res.ID})
			}
			writeError(w, status, msg)
			return
		}
		writeJSON(w, http.StatusOK, res.Plan.Allocations)
	})
}

// StatusOf maps a planning error to an HTTP status and a client-facing message.
func StatusOf(err error) (int, string) {
	switch {
	case errors.Is(err, dispatch.ErrInfeasible):
		return http.StatusBadRequest, InfeasibleMessage
	case errors.Is(err, ErrMalformed),
		errors.Is(err, dispatch.ErrInvalidPlant),
		errors.Is(err, dispatch.ErrInvalidRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+token {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
