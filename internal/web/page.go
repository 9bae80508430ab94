package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Query and form parameter names.
const (
	paramQuery  = "q"
	paramID     = "id"
	paramNotice = "notice"
	paramError  = "error"
	paramRating = "rating"
)

// pageData feeds templates/page.html.
type pageData struct {
	Title    string
	Version  string
	Query    string
	Options  []cookbook.Option
	Matches  int
	Selected *types.Recipe
	NotFound bool
	Bin      []*types.Recipe
	Notice   string
	Error    string
	Warnings []string
	Form     types.RecipeInput
	Ratings  []int
}

var templateFuncs = template.FuncMap{
	"orNA": func(s string) string {
		if strings.TrimSpace(s) == "" {
			return "N/A"
		}
		return s
	},
	"inc": func(i int) int { return i + 1 },
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := r.URL.Query()
	data := s.basePage(r, q.Get(paramQuery))
	data.Notice = q.Get(paramNotice)
	data.Error = q.Get(paramError)

	if id := q.Get(paramID); id != "" {
		data.Selected = findByID(s.cookbook.Search(data.Query), id)
		data.NotFound = data.Selected == nil
	}
	s.render(w, http.StatusOK, data)
}

// findByID returns the recipe in recipes with the given ID, or nil.
func findByID(recipes []*types.Recipe, id string) *types.Recipe {
	for _, r := range recipes {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// basePage reloads the cookbook and fills the sidebar. Caller holds s.mu.
func (s *Server) basePage(r *http.Request, query string) pageData {
	warnings := s.reload(r.Context())
	matches := s.cookbook.Search(query)
	return pageData{
		Title:    s.title,
		Version:  s.version,
		Query:    query,
		Options:  cookbook.Options(matches),
		Matches:  len(matches),
		Bin:      s.cookbook.Deleted(),
		Warnings: warnings,
		Ratings:  []int{1, 2, 3, 4, 5},
	}
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := s.tmpl.ExecuteTemplate(w, "page.html", data); err != nil {
		s.logger.Error("render page", zap.Error(err))
	}
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form", http.StatusBadRequest)
		return
	}
	in := types.RecipeInput{
		Title:        r.PostFormValue("title"),
		ReadyIn:      r.PostFormValue("ready_in"),
		Servings:     r.PostFormValue("servings"),
		Temperature:  r.PostFormValue("temperature"),
		Ingredients:  r.PostFormValue("ingredients"),
		Instructions: r.PostFormValue("instructions"),
		Notes:        r.PostFormValue("notes"),
		Tags:         r.PostFormValue("tags"),
	}
	query := r.PostFormValue(paramQuery)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadForWrite(r.Context()); err != nil {
		s.rejectForm(w, r, query, in, http.StatusConflict, err)
		return
	}
	recipe, err := s.cookbook.Add(r.Context(), in)
	s.recordMutation("add", err)
	if recipe == nil {
		// Validation failed; show the form again with what was typed.
		s.rejectForm(w, r, query, in, http.StatusUnprocessableEntity, err)
		return
	}
	s.redirect(w, r, query, recipe.ID, fmt.Sprintf("%q added successfully!", recipe.Title), err)
}

// rejectForm renders the page with the add form still holding in.
func (s *Server) rejectForm(w http.ResponseWriter, r *http.Request, query string, in types.RecipeInput, status int, err error) {
	data := s.basePage(r, query)
	data.Error = describe(err)
	data.Form = in
	s.render(w, status, data)
}

func (s *Server) handleRate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	query := r.PostFormValue(paramQuery)
	stars, convErr := strconv.Atoi(r.PostFormValue(paramRating))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadForWrite(r.Context()); err != nil {
		s.redirect(w, r, query, id, "", err)
		return
	}
	if convErr != nil {
		s.redirect(w, r, query, id, "", types.ErrInvalidRating)
		return
	}
	recipe, err := s.cookbook.Rate(r.Context(), id, stars)
	s.recordMutation("rate", err)
	if recipe == nil {
		s.redirect(w, r, query, id, "", err)
		return
	}
	s.redirect(w, r, query, id, fmt.Sprintf("Thanks! You rated %s %d ⭐", recipe.DisplayTitle(), stars), err)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "delete", s.cookbook.Delete, "%q moved to Recycle Bin!", false)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "restore", s.cookbook.Restore, "%q restored!", true)
}

func (s *Server) handlePurge(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, "purge", s.cookbook.Purge, "%q permanently deleted!", false)
}

// mutation is a cookbook operation addressed by recipe ID.
type mutation func(ctx context.Context, id string) (*types.Recipe, error)

// mutate applies a by-ID cookbook operation and redirects. keepSelection
// selects the recipe on the page afterwards when it matches the search.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, op string, fn mutation, notice string, keepSelection bool) {
	id := mux.Vars(r)["id"]
	query := r.PostFormValue(paramQuery)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reloadForWrite(r.Context()); err != nil {
		s.redirect(w, r, query, "", "", err)
		return
	}
	recipe, err := fn(r.Context(), id)
	s.recordMutation(op, err)
	if recipe == nil {
		s.redirect(w, r, query, "", "", err)
		return
	}
	selected := ""
	if keepSelection && recipe.Matches(query) {
		selected = recipe.ID
	}
	s.redirect(w, r, query, selected, fmt.Sprintf(notice, recipe.DisplayTitle()), err)
}

// redirect sends the browser back to the page with a flash message. A
// non-nil err becomes the error flash.
func (s *Server) redirect(w http.ResponseWriter, r *http.Request, query, id, notice string, err error) {
	v := url.Values{}
	if query != "" {
		v.Set(paramQuery, query)
	}
	if id != "" {
		v.Set(paramID, id)
	}
	if notice != "" {
		v.Set(paramNotice, notice)
	}
	if err != nil {
		v.Set(paramError, describe(err))
	}
	target := "/"
	if len(v) > 0 {
		target += "?" + v.Encode()
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) recordMutation(op string, err error) {
	if s.metrics != nil {
		s.metrics.RecordMutation(op, err)
	}
}

// describe turns an operation error into a message for the page.
func describe(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrInvalidID):
		return "Recipe not found."
	case errors.Is(err, types.ErrInvalidTitle),
		errors.Is(err, types.ErrNoIngredients),
		errors.Is(err, types.ErrNoInstructions),
		errors.Is(err, types.ErrInvalidRating):
		return capitalize(err.Error()) + "."
	case errors.Is(err, types.ErrInvalidTransition), errors.Is(err, errStaleLoad):
		return err.Error()
	default:
		return "Failed saving recipes: " + err.Error()
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
