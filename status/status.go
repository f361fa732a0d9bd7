// Package status serves the bot's health check and a read-only view of the
// configured rules over HTTP.
package status

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/gopheracademy/autoreact/rules"
)

// Snapshotter returns the current rules. *rules.Store implements it.
type Snapshotter interface {
	All() map[string]rules.Rule
}

// NewRouter returns the status routes:
//
//	GET /healthz -> "ok"
//	GET /rules   -> the rules, in the same layout as the data file
func NewRouter(s Snapshotter, logf func(message string, args ...interface{})) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods("GET")
	r.HandleFunc("/rules", listRules(s, logf)).Methods("GET")
	return r
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func listRules(s Snapshotter, logf func(message string, args ...interface{})) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		all := s.All()
		for user, r := range all {
			if r.Channels == nil {
				r.Channels = []string{}
				all[user] = r
			}
		}

		w.Header().Set("Content-Type", "application/json")
		enc := json.NewEncoder(w)
		enc.SetIndent("", "    ")
		if err := enc.Encode(all); err != nil {
			logf("writing rules response: %v\n", err)
		}
	}
}
