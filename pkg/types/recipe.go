package types

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Recipe states. A recipe is active until it is moved to the recycle bin.
const (
	StateActive  = "active"
	StateDeleted = "deleted"
)

// Rating bounds.
const (
	MinRating = 1
	MaxRating = 5
)

// UntitledLabel is shown wherever a recipe has no title.
const UntitledLabel = "Untitled"

// Recipe is a single dish record.
type Recipe struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	ReadyIn      string   `json:"ready_in"`
	Servings     string   `json:"servings"`
	Temperature  string   `json:"temperature"`
	Ingredients  []string `json:"ingredients"`
	Instructions []string `json:"instructions"`
	Notes        Notes    `json:"notes"`
	Tags         []string `json:"tags"`
	Ratings      []int    `json:"ratings,omitempty"`

	// State is derived from the collection the recipe was loaded from.
	State string `json:"-"`
}

// Recipe errors.
var (
	ErrNotFound          = errors.New("recipe not found")
	ErrInvalidID         = errors.New("invalid recipe ID")
	ErrInvalidTitle      = errors.New("title must not be empty")
	ErrNoIngredients     = errors.New("at least one ingredient is required")
	ErrNoInstructions    = errors.New("at least one instruction is required")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// NewID returns a UUID v7 string.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// legacyNamespace scopes IDs derived for records that were stored without one.
var legacyNamespace = uuid.MustParse("6f1c1b9e-3f2a-5c47-9a0e-7d1d2f6b8a10")

// DerivedID returns a name-based UUID for a record stored without an ID, or
// with a duplicate one. The same inputs always give the same ID, so such
// records stay addressable across reloads until they are saved with it.
func DerivedID(collection, key string, occurrence int) string {
	name := fmt.Sprintf("%s\x00%s\x00%d", collection, key, occurrence)
	return uuid.NewSHA1(legacyNamespace, []byte(name)).String()
}

// DisplayTitle returns the title, or UntitledLabel when it is blank.
func (r *Recipe) DisplayTitle() string {
	if strings.TrimSpace(r.Title) == "" {
		return UntitledLabel
	}
	return r.Title
}

// Active reports whether the recipe is outside the recycle bin.
func (r *Recipe) Active() bool {
	return r.State != StateDeleted
}

// Validate checks the fields required to add a recipe.
func (r *Recipe) Validate() error {
	if strings.TrimSpace(r.Title) == "" {
		return ErrInvalidTitle
	}
	if len(r.Ingredients) == 0 {
		return ErrNoIngredients
	}
	if len(r.Instructions) == 0 {
		return ErrNoInstructions
	}
	return nil
}

// Delete moves an active recipe to the recycle bin.
// Returns ErrInvalidTransition if it is already there.
func (r *Recipe) Delete() error {
	if !r.Active() {
		return ErrInvalidTransition
	}
	r.State = StateDeleted
	return nil
}

// Restore moves a deleted recipe back to the active collection.
// Returns ErrInvalidTransition if the recipe is not in the recycle bin.
func (r *Recipe) Restore() error {
	if r.Active() {
		return ErrInvalidTransition
	}
	r.State = StateActive
	return nil
}

// Rate appends a rating. Ratings are never edited or removed.
func (r *Recipe) Rate(stars int) error {
	if stars < MinRating || stars > MaxRating {
		return ErrInvalidRating
	}
	r.Ratings = append(r.Ratings, stars)
	return nil
}

// AverageRating returns the arithmetic mean of the ratings.
// ok is false when the recipe has not been rated.
func (r *Recipe) AverageRating() (avg float64, ok bool) {
	if len(r.Ratings) == 0 {
		return 0, false
	}
	sum := 0
	for _, v := range r.Ratings {
		sum += v
	}
	return float64(sum) / float64(len(r.Ratings)), true
}

// Stars returns the average rounded half to even, or 0 when unrated.
func (r *Recipe) Stars() int {
	avg, ok := r.AverageRating()
	if !ok {
		return 0
	}
	return int(math.RoundToEven(avg))
}

// RatingSummary formats the average as shown to users, e.g. "4.0 ★★★★".
// Returns "No ratings yet." for unrated recipes.
func (r *Recipe) RatingSummary() string {
	avg, ok := r.AverageRating()
	if !ok {
		return "No ratings yet."
	}
	return fmt.Sprintf("%.1f %s", avg, strings.Repeat("★", r.Stars()))
}

// Matches reports whether term occurs, case-insensitively, in the title,
// any ingredient, or any tag. An empty term matches every recipe.
func (r *Recipe) Matches(term string) bool {
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	if strings.Contains(strings.ToLower(r.Title), needle) {
		return true
	}
	for _, ing := range r.Ingredients {
		if strings.Contains(strings.ToLower(ing), needle) {
			return true
		}
	}
	for _, tag := range r.Tags {
		if strings.Contains(strings.ToLower(tag), needle) {
			return true
		}
	}
	return false
}

// Clone returns a deep copy of the recipe.
func (r *Recipe) Clone() *Recipe {
	c := *r
	c.Ingredients = cloneStrings(r.Ingredients)
	c.Instructions = cloneStrings(r.Instructions)
	c.Tags = cloneStrings(r.Tags)
	c.Notes = r.Notes.Clone()
	if r.Ratings != nil {
		c.Ratings = append([]int(nil), r.Ratings...)
	}
	return &c
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
