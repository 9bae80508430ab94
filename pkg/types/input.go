package types

import "strings"

// RecipeInput carries the raw add-form fields. Ingredients and Instructions
// hold one entry per line; Tags is comma-separated.
type RecipeInput struct {
	Title        string `json:"title"`
	ReadyIn      string `json:"ready_in"`
	Servings     string `json:"servings"`
	Temperature  string `json:"temperature"`
	Ingredients  string `json:"ingredients"`
	Instructions string `json:"instructions"`
	Notes        string `json:"notes"`
	Tags         string `json:"tags"`
}

// Recipe builds an active recipe from the input and validates it.
// The returned recipe has no ID; the caller assigns one when storing it.
func (in RecipeInput) Recipe() (*Recipe, error) {
	r := &Recipe{
		Title:        strings.TrimSpace(in.Title),
		ReadyIn:      strings.TrimSpace(in.ReadyIn),
		Servings:     strings.TrimSpace(in.Servings),
		Temperature:  strings.TrimSpace(in.Temperature),
		Ingredients:  SplitLines(in.Ingredients),
		Instructions: SplitLines(in.Instructions),
		Notes:        TextNotes(in.Notes),
		Tags:         SplitTags(in.Tags),
		State:        StateActive,
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// SplitLines splits s on newlines, trims each line, and drops blank lines.
// Always returns a non-nil slice.
func SplitLines(s string) []string {
	out := []string{}
	for line := range strings.Lines(s) {
		if v := strings.TrimSpace(line); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// SplitTags splits s on commas, trims each tag, and drops empty ones.
// Always returns a non-nil slice.
func SplitTags(s string) []string {
	out := []string{}
	for tag := range strings.SplitSeq(s, ",") {
		if v := strings.TrimSpace(tag); v != "" {
			out = append(out, v)
		}
	}
	return out
}
