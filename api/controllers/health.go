package controllers

import (
	"net/http"

	"github.com/tillworks/posedge/api/responses"
	"github.com/tillworks/posedge/pkg/config"
	pkgerrors "github.com/tillworks/posedge/pkg/errors"
	"github.com/tillworks/posedge/pkg/logger"
	"github.com/tillworks/posedge/pkg/store"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PosEdge-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady verifies the local store is reachable. The remote backend is
// deliberately excluded: the till is expected to run while it is down.
func HealthReady(cfg *config.Config, logg *logger.Logger, st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-PosEdge-Env", cfg.App.Env)

		if st == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "store not configured"))
			return
		}
		if err := st.Ping(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "local store unreachable"))
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
