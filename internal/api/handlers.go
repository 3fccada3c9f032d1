// SPDX-License-Identifier: MIT

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ManuGH/ibpcdc/internal/catalog"
	"github.com/ManuGH/ibpcdc/internal/log"
	"github.com/ManuGH/ibpcdc/internal/runplan"
	"github.com/ManuGH/ibpcdc/internal/schedule"
	"github.com/ManuGH/ibpcdc/internal/specs"
	"github.com/ManuGH/ibpcdc/internal/specset"
	"github.com/go-chi/chi/v5"
)

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status   string    `json:"status"`
	Version  string    `json:"version,omitempty"`
	Specs    int       `json:"specs"`
	LoadedAt time.Time `json:"loaded_at"`
}

// SpecSummary is one item of GET /api/v1/specs.
type SpecSummary struct {
	Tag          string             `json:"tag"`
	Architecture specs.Architecture `json:"architecture"`
	Path         string             `json:"path"`
}

// ScheduleResponse is the body of GET /api/v1/specs/{tag}/schedule.
type ScheduleResponse struct {
	Tag        string         `json:"tag"`
	From       int            `json:"from"`
	To         int            `json:"to"`
	Milestones []int          `json:"milestones"`
	Rows       []schedule.Row `json:"rows"`
}

// ValidateResponse is the body of POST /api/v1/validate.
type ValidateResponse struct {
	Valid        bool               `json:"valid"`
	Tag          string             `json:"tag,omitempty"`
	Architecture specs.Architecture `json:"architecture,omitempty"`
	Errors       []specs.Problem    `json:"errors,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	set := s.specs.Current()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  s.cfg.Version,
		Specs:    set.Len(),
		LoadedAt: set.LoadedAt,
	})
}

func (s *Server) handleListSpecs(w http.ResponseWriter, _ *http.Request) {
	entries := s.specs.List()
	out := make([]SpecSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, SpecSummary{Tag: e.Spec.Tag, Architecture: e.Spec.Architecture(), Path: e.Path})
	}
	writeJSON(w, http.StatusOK, out)
}

// lookup resolves the {tag} URL parameter or writes a 404.
func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (specset.Entry, bool) {
	tag := chi.URLParam(r, "tag")
	e, ok := s.specs.Get(tag)
	if !ok {
		writeError(w, r, http.StatusNotFound, CodeNotFound, fmt.Sprintf("no spec with TAG %q", tag))
		return specset.Entry{}, false
	}
	return e, true
}

func (s *Server) handleGetSpec(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, e.Spec)
}

func (s *Server) handleSchedule(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}

	from, err := intParam(r, "from", 0)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParameter, err.Error())
		return
	}
	to, err := intParam(r, "to", e.Spec.TrainOptions.NumEpochs)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParameter, err.Error())
		return
	}

	rows, err := schedule.Table(e.Spec, from, to)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParameter, err.Error())
		return
	}
	milestones, err := schedule.Milestones(e.Spec)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, CodeInvalidParameter, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ScheduleResponse{
		Tag:        e.Spec.Tag,
		From:       from,
		To:         to,
		Milestones: milestones,
		Rows:       rows,
	})
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	e, ok := s.lookup(w, r)
	if !ok {
		return
	}
	plan := runplan.New(e.Spec)
	if check, _ := strconv.ParseBool(r.URL.Query().Get("check")); check {
		writeJSON(w, http.StatusOK, runplan.Inspect(r.Context(), plan, e.Spec))
		return
	}
	writeJSON(w, http.StatusOK, plan)
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxValidateBody)
	spec, err := specs.Decode(body, specs.FormatJSON)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, http.StatusRequestEntityTooLarge, CodeBodyTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxValidateBody))
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{Valid: false, Errors: specs.Problems(err)})
		return
	}
	if err := specs.Validate(spec); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{
			Valid:        false,
			Tag:          spec.Tag,
			Architecture: spec.Architecture(),
			Errors:       specs.Problems(err),
		})
		return
	}

	logger := log.WithComponentFromContext(log.ContextWithTag(r.Context(), spec.Tag), "api")
	logger.Debug().Str(log.FieldEvent, "api.spec_validated").Msg("posted spec is valid")
	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Tag: spec.Tag, Architecture: spec.Architecture()})
}

func (s *Server) handleListCatalog(w http.ResponseWriter, r *http.Request) {
	entries, err := s.catalog.List(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	e, err := s.catalog.Get(r.Context(), chi.URLParam(r, "tag"))
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleCatalogValidations(w http.ResponseWriter, r *http.Request) {
	tag := chi.URLParam(r, "tag")
	if _, err := s.catalog.Get(r.Context(), tag); err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	history, err := s.catalog.Validations(r.Context(), tag)
	if err != nil {
		s.writeCatalogError(w, r, err)
		return
	}
	if history == nil {
		history = []catalog.Validation{}
	}
	writeJSON(w, http.StatusOK, history)
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, catalog.ErrNotFound) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	writeError(w, r, http.StatusInternalServerError, CodeInternal, err.Error())
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}
	return n, nil
}
