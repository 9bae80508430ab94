package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// apiRecipe is a recipe as the JSON API returns it.
type apiRecipe struct {
	*types.Recipe
	State         string   `json:"state"`
	AverageRating *float64 `json:"average_rating,omitempty"`
	Stars         int      `json:"stars"`
}

type listResponse struct {
	Recipes  []apiRecipe `json:"recipes"`
	Warnings []string    `json:"warnings,omitempty"`
}

func toAPI(r *types.Recipe) apiRecipe {
	out := apiRecipe{Recipe: r, State: r.State, Stars: r.Stars()}
	if avg, ok := r.AverageRating(); ok {
		out.AverageRating = &avg
	}
	return out
}

func toAPIList(recipes []*types.Recipe, warnings []string) listResponse {
	out := listResponse{Recipes: make([]apiRecipe, 0, len(recipes)), Warnings: warnings}
	for _, r := range recipes {
		out.Recipes = append(out.Recipes, toAPI(r))
	}
	return out
}

func (s *Server) handleAPIList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings := s.reload(r.Context())
	writeJSON(w, http.StatusOK, toAPIList(s.cookbook.Search(r.URL.Query().Get(paramQuery)), warnings))
}

func (s *Server) handleAPIBin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	warnings := s.reload(r.Context())
	writeJSON(w, http.StatusOK, toAPIList(s.cookbook.Deleted(), warnings))
}

func (s *Server) handleAPIGet(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reload(r.Context())
	recipe, err := s.cookbook.Get(mux.Vars(r)["id"])
	switch {
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		jsonError(w, err.Error(), http.StatusNotFound)
	case err != nil:
		jsonError(w, err.Error(), http.StatusInternalServerError)
	default:
		writeJSON(w, http.StatusOK, toAPI(recipe))
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func jsonError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
