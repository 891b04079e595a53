package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"

	"github.com/getmockd/hyperstub/pkg/factory"
	"github.com/getmockd/hyperstub/pkg/httputil"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := "healthy"
	if !s.engine.IsRunning() {
		status = "stopped"
	}
	httputil.WriteOK(w, HealthResponse{
		Status:    status,
		Uptime:    int64(s.engine.Uptime() / time.Second),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Server) handleListStubs(w http.ResponseWriter, _ *http.Request) {
	stubs := s.engine.Stubs()
	httputil.WriteOK(w, StubListResponse{Stubs: stubs, Count: len(stubs)})
}

func (s *Server) handleCreateStub(w http.ResponseWriter, r *http.Request) {
	var req StubRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		httputil.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_failed", "invalid stub", fieldErrors(err))
		return
	}

	st := s.engine.Stub(req.Method, req.Path, req.Body, req.StatusCode)
	httputil.WriteJSON(w, http.StatusCreated, st)
}

func (s *Server) handleDeleteStub(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	method, path := q.Get("method"), q.Get("path")
	if method == "" || path == "" {
		httputil.WriteBadRequest(w, "missing_parameter", "method and path query parameters are required")
		return
	}
	if !s.engine.Unstub(method, path) {
		httputil.WriteNotFound(w, "not_found", "no stub for "+strings.ToUpper(method)+" "+path)
		return
	}
	httputil.WriteNoContent(w)
}

func (s *Server) handleResetStubs(w http.ResponseWriter, _ *http.Request) {
	s.engine.UnstubAll()
	httputil.WriteNoContent(w)
}

func (s *Server) handleListDefinitions(w http.ResponseWriter, _ *http.Request) {
	resp := DefinitionsResponse{
		Definitions: []Definition{},
		Custom:      s.engine.Defined(),
	}
	for _, route := range s.engine.Routes() {
		n := len(resp.Definitions)
		if n == 0 || resp.Definitions[n-1].Name != route.Definition {
			resp.Definitions = append(resp.Definitions, Definition{Name: route.Definition})
			n++
		}
		resp.Definitions[n-1].Links = append(resp.Definitions[n-1].Links, route)
	}
	httputil.WriteOK(w, resp)
}

func (s *Server) handleBuildFactory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var custom map[string]any
	if err := httputil.DecodeJSON(r, &custom); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return
	}

	obj, err := s.engine.Factory(name, custom)
	if err != nil {
		var invalid *factory.InvalidFactoryError
		switch {
		case errors.As(err, &invalid):
			httputil.WriteErrorWithDetails(w, http.StatusUnprocessableEntity, "invalid_factory", err.Error(), invalid.Violations)
		case errors.Is(err, factory.ErrUnknownDefinition):
			httputil.WriteNotFound(w, "unknown_definition", err.Error())
		default:
			s.log.Error("factory failed", "definition", name, "error", err)
			httputil.WriteInternalError(w, "factory_failed", err.Error())
		}
		return
	}
	httputil.WriteOK(w, obj)
}

func (s *Server) handleDefineFactory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	var props map[string]any
	if err := httputil.DecodeJSON(r, &props); err != nil {
		httputil.WriteBadRequest(w, "invalid_json", err.Error())
		return
	}
	s.engine.DefineFactory(name, props)
	httputil.WriteNoContent(w)
}

// fieldErrors flattens validator errors into "field: tag" strings.
func fieldErrors(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, len(verrs))
	for i, fe := range verrs {
		out[i] = fe.Field() + ": " + fe.Tag()
	}
	return out
}
