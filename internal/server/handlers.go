package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"c1fapp/internal/apierr"
	"c1fapp/internal/ctim"
	"c1fapp/internal/metrics"
)

// maxRequestBytes caps the observables payload.
const maxRequestBytes = 1 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func (s *Server) routes() {
	s.router.HandleFunc("/observe/observables", s.handleObserve).Methods(http.MethodPost)
	s.router.HandleFunc("/deliberate/observables", s.handleDeliberate).Methods(http.MethodPost)
	s.router.HandleFunc("/refer/observables", s.handleEmptyList).Methods(http.MethodPost)
	s.router.HandleFunc("/respond/observables", s.handleEmptyList).Methods(http.MethodPost)
	s.router.HandleFunc("/respond/trigger", s.handleRespondTrigger).Methods(http.MethodPost)
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodPost)
	s.router.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet, http.MethodPost)
}

func (s *Server) handleObserve(w http.ResponseWriter, r *http.Request) {
	metrics.EnrichRequests.WithLabelValues("http").Inc()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBytes))
	if err != nil {
		writeJSON(w, apierr.Errors(apierr.From(apierr.InvalidArgument(err.Error()))))
		return
	}
	writeJSON(w, s.observe(r.Context(), r.Header.Get("Authorization"), body))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.health(r.Context(), r.Header.Get("Authorization")))
}

// Deliberate, refer and respond are not supported by this feed; they answer
// with empty payloads so Threat Response can still call them.
func (s *Server) handleDeliberate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, apierr.Data(map[string]any{}))
}

func (s *Server) handleEmptyList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, apierr.Data([]any{}))
}

func (s *Server) handleRespondTrigger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, apierr.Data(map[string]string{"status": "failure"}))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"version": Version})
}

// decodeObservables parses and validates a `[{type, value}]` payload.
func decodeObservables(body []byte) ([]ctim.Observable, error) {
	var observables []ctim.Observable
	if err := json.Unmarshal(body, &observables); err != nil {
		return nil, apierr.InvalidArgument(err.Error())
	}
	if observables == nil {
		return nil, apierr.InvalidArgument("Expected a list of observables.")
	}

	var problems []string
	for i, obs := range observables {
		err := validate.Struct(obs)
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%d.%s: Missing data for required field.", i, fe.Field()))
			}
		} else if err != nil {
			return nil, apierr.InvalidArgument(err.Error())
		}
	}
	if len(problems) > 0 {
		return nil, apierr.InvalidArgument(strings.Join(problems, " "))
	}
	return observables, nil
}
