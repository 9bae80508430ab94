package web

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/recipebox/internal/cookbook"
	"github.com/mesh-intelligence/recipebox/internal/jsonfile"
	"github.com/mesh-intelligence/recipebox/internal/metrics"
	"github.com/mesh-intelligence/recipebox/pkg/types"
)

type fixture struct {
	store   *jsonfile.Store
	handler http.Handler
	metrics *metrics.Collector
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	require.NoError(t, store.Save(ctx, types.CollectionActive, []*types.Recipe{
		{
			ID:           "soup",
			Title:        "Miso Soup",
			Ingredients:  []string{"Miso", "Tofu"},
			Instructions: []string{"Boil water", "Whisk in miso"},
			Notes:        types.TextNotes(""),
			Tags:         []string{"Vegan", "Quick"},
		},
		{
			ID:           "bread",
			Title:        "Banana Bread",
			ReadyIn:      "1 hour",
			Servings:     "8",
			Temperature:  "350°F",
			Ingredients:  []string{"Bananas", "Flour"},
			Instructions: []string{"Mash", "Bake"},
			Notes:        types.ListNotes("From grandma", "Freezes well"),
			Tags:         []string{"Baked"},
		},
	}))

	m := metrics.NewCollector("test")
	srv, err := New(cookbook.New(store, nil), WithMetrics(m), WithTitle("Test Cookbook"), WithVersion("9.9.9"))
	require.NoError(t, err)
	return &fixture{store: store, handler: srv.Handler(), metrics: m}
}

func (f *fixture) get(t *testing.T, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func (f *fixture) post(t *testing.T, target string, form url.Values) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

// follow asserts a See Other redirect and fetches its target.
func (f *fixture) follow(t *testing.T, rec *httptest.ResponseRecorder) (*url.URL, string) {
	t.Helper()
	require.Equal(t, http.StatusSeeOther, rec.Code)
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	page := f.get(t, loc.String())
	require.Equal(t, http.StatusOK, page.Code)
	return loc, page.Body.String()
}

func (f *fixture) titles(t *testing.T, collection string) []string {
	t.Helper()
	recipes, err := f.store.Load(context.Background(), collection)
	require.NoError(t, err)
	out := []string{}
	for _, r := range recipes {
		out = append(out, r.Title)
	}
	return out
}

func TestPageWelcome(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()

	assert.Contains(t, body, "<h1>Test Cookbook</h1>")
	assert.Contains(t, body, "Welcome")
	assert.Contains(t, body, "Recycle Bin is empty.")
	assert.Contains(t, body, "recipebox 9.9.9")
	// Selector options are sorted by title.
	assert.Less(t, strings.Index(body, ">Banana Bread</option>"), strings.Index(body, ">Miso Soup</option>"))
}

func TestPageSearchFiltersSelector(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name    string
		query   string
		want    []string
		notWant []string
	}{
		{name: "ingredient", query: "tofu", want: []string{"Miso Soup"}, notWant: []string{"Banana Bread"}},
		{name: "tag case-insensitive", query: "BAKED", want: []string{"Banana Bread"}, notWant: []string{"Miso Soup"}},
		{name: "no match", query: "zzz", notWant: []string{"Miso Soup", "Banana Bread"}},
		{name: "empty shows all", query: "", want: []string{"Miso Soup", "Banana Bread"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := f.get(t, "/?q="+url.QueryEscape(tt.query)).Body.String()
			for _, title := range tt.want {
				assert.Contains(t, body, ">"+title+"</option>")
			}
			for _, title := range tt.notWant {
				assert.NotContains(t, body, ">"+title+"</option>")
			}
		})
	}
}

func TestPageShowsRecipe(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/?id=bread").Body.String()
	assert.Contains(t, body, "<h2>Banana Bread</h2>")
	assert.Contains(t, body, "<strong>Ready In:</strong> 1 hour")
	assert.Contains(t, body, "<li>Mash</li>")
	assert.Contains(t, body, "<li>From grandma</li>")
	assert.Contains(t, body, "No ratings yet.")
	assert.Contains(t, body, `<option value="bread" selected>`)

	body = f.get(t, "/?id=soup").Body.String()
	assert.Contains(t, body, "<strong>Yield:</strong> N/A")
	assert.Contains(t, body, "No notes provided.")
	assert.Contains(t, body, "Vegan, Quick")
}

func TestPageUnknownRecipe(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/?id=nope").Body.String()
	assert.Contains(t, body, "Recipe not found.")
	assert.NotContains(t, body, "Welcome")
}

func TestAddRecipe(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/recipes", url.Values{
		"title":        {"Pepper Steak"},
		"ingredients":  {"Salt\r\n\r\nPepper"},
		"instructions": {"Season\nSear"},
		"tags":         {"Beef, Main"},
		"notes":        {"  Rest it  "},
	})
	loc, body := f.follow(t, rec)

	assert.NotEmpty(t, loc.Query().Get("id"))
	assert.Contains(t, loc.Query().Get("notice"), "added successfully!")
	assert.Contains(t, body, "<h2>Pepper Steak</h2>")
	assert.Equal(t, []string{"Miso Soup", "Banana Bread", "Pepper Steak"}, f.titles(t, types.CollectionActive))

	recipes, err := f.store.Load(context.Background(), types.CollectionActive)
	require.NoError(t, err)
	added := recipes[2]
	assert.Equal(t, []string{"Salt", "Pepper"}, added.Ingredients)
	assert.Equal(t, []string{"Season", "Sear"}, added.Instructions)
	assert.Equal(t, []string{"Beef", "Main"}, added.Tags)
	assert.Equal(t, "  Rest it  ", added.Notes.Text, "notes are stored as typed")
}

func TestAddRecipeValidation(t *testing.T) {
	f := newFixture(t)

	rec := f.post(t, "/recipes", url.Values{
		"title":       {"Half Done"},
		"ingredients": {"Eggs"},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "At least one instruction is required.")
	assert.Contains(t, body, `value="Half Done"`, "typed values are kept")
	assert.Len(t, f.titles(t, types.CollectionActive), 2)
}

func TestRateRecipe(t *testing.T) {
	f := newFixture(t)

	var body string
	for _, stars := range []string{"3", "4", "5"} {
		_, body = f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {stars}}))
	}
	assert.Contains(t, body, "Average rating: 4.0 ★★★★")
	assert.Contains(t, body, "Thanks! You rated Miso Soup 5 ⭐")

	loc, _ := f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {"9"}}))
	assert.Equal(t, "Rating must be between 1 and 5.", loc.Query().Get("error"))

	loc, _ = f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {"lots"}}))
	assert.Equal(t, "Rating must be between 1 and 5.", loc.Query().Get("error"))

	loc, _ = f.follow(t, f.post(t, "/recipes/ghost/rating", url.Values{"rating": {"2"}}))
	assert.Equal(t, "Recipe not found.", loc.Query().Get("error"))
}

func TestDeleteRestorePurge(t *testing.T) {
	f := newFixture(t)

	loc, body := f.follow(t, f.post(t, "/recipes/soup/delete", url.Values{"q": {"o"}}))
	assert.Equal(t, "o", loc.Query().Get("q"), "search is kept")
	assert.Empty(t, loc.Query().Get("id"))
	assert.Contains(t, body, "moved to Recycle Bin!")
	assert.Contains(t, body, `action="/bin/soup/restore"`)
	assert.Equal(t, []string{"Banana Bread"}, f.titles(t, types.CollectionActive))
	assert.Equal(t, []string{"Miso Soup"}, f.titles(t, types.CollectionDeleted))

	// Deleting again is rejected without changing anything.
	loc, _ = f.follow(t, f.post(t, "/recipes/soup/delete", nil))
	assert.Contains(t, loc.Query().Get("error"), "invalid state transition")

	loc, body = f.follow(t, f.post(t, "/bin/soup/restore", nil))
	assert.Equal(t, "soup", loc.Query().Get("id"))
	assert.Contains(t, body, "restored!")
	assert.Equal(t, []string{"Banana Bread", "Miso Soup"}, f.titles(t, types.CollectionActive))
	assert.Empty(t, f.titles(t, types.CollectionDeleted))

	f.follow(t, f.post(t, "/recipes/bread/delete", nil))
	_, body = f.follow(t, f.post(t, "/bin/bread/purge", nil))
	assert.Contains(t, body, "permanently deleted!")
	assert.Equal(t, []string{"Miso Soup"}, f.titles(t, types.CollectionActive))
	assert.Empty(t, f.titles(t, types.CollectionDeleted))

	loc, _ = f.follow(t, f.post(t, "/bin/bread/restore", nil))
	assert.Equal(t, "Recipe not found.", loc.Query().Get("error"))
}

func TestLoadFailureIsShownNotFatal(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, os.WriteFile(f.store.Path(types.CollectionDeleted), []byte("{not json"), 0o644))

	rec := f.get(t, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "load deleted_recipes")
	assert.Contains(t, body, ">Miso Soup</option>", "readable collection still shown")
}

func TestMutationsRefusedAfterFailedLoad(t *testing.T) {
	tests := []struct {
		name       string
		corrupt    string
		target     string
		form       url.Values
		wantStatus int
	}{
		{
			name:       "add with unreadable recipes",
			corrupt:    types.CollectionActive,
			target:     "/recipes",
			form:       url.Values{"title": {"Toast"}, "ingredients": {"Bread"}, "instructions": {"Toast it"}},
			wantStatus: http.StatusConflict,
		},
		{name: "rate with unreadable bin", corrupt: types.CollectionDeleted, target: "/recipes/soup/rating", form: url.Values{"rating": {"4"}}, wantStatus: http.StatusSeeOther},
		{name: "delete with unreadable bin", corrupt: types.CollectionDeleted, target: "/recipes/soup/delete", wantStatus: http.StatusSeeOther},
		{name: "restore with unreadable recipes", corrupt: types.CollectionActive, target: "/bin/bread/restore", wantStatus: http.StatusSeeOther},
		{name: "purge with unreadable recipes", corrupt: types.CollectionActive, target: "/bin/bread/purge", wantStatus: http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.follow(t, f.post(t, "/recipes/bread/delete", nil))

			path := f.store.Path(tt.corrupt)
			good, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, append([]byte("x"), good...), 0o644))

			before := map[string][]byte{}
			for _, c := range types.Collections {
				before[c], err = os.ReadFile(f.store.Path(c))
				require.NoError(t, err)
			}

			rec := f.post(t, tt.target, tt.form)
			require.Equal(t, tt.wantStatus, rec.Code)
			if rec.Code == http.StatusSeeOther {
				loc, err := url.Parse(rec.Header().Get("Location"))
				require.NoError(t, err)
				assert.Contains(t, loc.Query().Get("error"), "refusing to modify recipes")
				assert.Empty(t, loc.Query().Get("notice"))
			} else {
				body := rec.Body.String()
				assert.Contains(t, body, "refusing to modify recipes")
				assert.Contains(t, body, `value="Toast"`, "typed values are kept")
			}

			for _, c := range types.Collections {
				after, err := os.ReadFile(f.store.Path(c))
				require.NoError(t, err)
				assert.Equal(t, string(before[c]), string(after), "%s must not be rewritten", c)
			}
		})
	}
}

func TestPageSelectionFollowsSearch(t *testing.T) {
	f := newFixture(t)

	body := f.get(t, "/?q=zzz&id=soup").Body.String()
	assert.Contains(t, body, "Recipe not found.")
	assert.NotContains(t, body, "<h2>Miso Soup</h2>")

	body = f.get(t, "/?q=tofu&id=soup").Body.String()
	assert.Contains(t, body, "<h2>Miso Soup</h2>")

	f.follow(t, f.post(t, "/recipes/soup/delete", nil))
	loc, body := f.follow(t, f.post(t, "/bin/soup/restore", url.Values{"q": {"bread"}}))
	assert.Equal(t, "bread", loc.Query().Get("q"))
	assert.Empty(t, loc.Query().Get("id"), "restored recipe outside the search is not selected")
	assert.Contains(t, body, "restored!")
	assert.NotContains(t, body, "Recipe not found.")
}

func TestAPI(t *testing.T) {
	f := newFixture(t)

	t.Run("list filters active recipes", func(t *testing.T) {
		rec := f.get(t, "/api/recipes?q=banana")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

		var resp struct {
			Recipes []struct {
				ID    string `json:"id"`
				Title string `json:"title"`
				State string `json:"state"`
				Notes any    `json:"notes"`
			} `json:"recipes"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		require.Len(t, resp.Recipes, 1)
		assert.Equal(t, "bread", resp.Recipes[0].ID)
		assert.Equal(t, types.StateActive, resp.Recipes[0].State)
		assert.Equal(t, []any{"From grandma", "Freezes well"}, resp.Recipes[0].Notes)
	})

	t.Run("get includes rating summary", func(t *testing.T) {
		f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {"3"}}))
		f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {"4"}}))

		rec := f.get(t, "/api/recipes/soup")
		require.Equal(t, http.StatusOK, rec.Code)
		var resp map[string]any
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
		assert.Equal(t, 3.5, resp["average_rating"])
		assert.Equal(t, 4.0, resp["stars"])
		assert.Equal(t, []any{3.0, 4.0}, resp["ratings"])
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := f.get(t, "/api/recipes/ghost")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), `"error":"recipe not found: ghost"`)
	})

	t.Run("bin lists deleted recipes", func(t *testing.T) {
		f.follow(t, f.post(t, "/recipes/bread/delete", nil))
		rec := f.get(t, "/api/bin")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"state":"deleted"`)
		assert.Contains(t, rec.Body.String(), `"title":"Banana Bread"`)
	})

	t.Run("unknown api path is JSON 404", func(t *testing.T) {
		rec := f.get(t, "/api/nothing")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"error":"not found"}`, rec.Body.String())
	})
}

func TestOperationalEndpoints(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","version":"9.9.9"}`, rec.Body.String())

	f.get(t, "/?id=soup")
	f.follow(t, f.post(t, "/recipes/soup/rating", url.Values{"rating": {"5"}}))

	body := f.get(t, "/metrics").Body.String()
	assert.Contains(t, body, `test_cookbook_mutations_total{op="rate",result="ok"} 1`)
	assert.Contains(t, body, `test_http_requests_total{method="POST",path="/recipes/{id}/rating",status="303"} 1`)
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)

	rec := f.get(t, "/recipes/soup/delete")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, []string{"Miso Soup", "Banana Bread"}, f.titles(t, types.CollectionActive))
}

func TestServeStopsOnCancel(t *testing.T) {
	store, err := jsonfile.Open(t.TempDir(), nil)
	require.NoError(t, err)
	srv, err := New(cookbook.New(store, nil))
	require.NoError(t, err)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, ln) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
