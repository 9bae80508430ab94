// Package cookbook owns the in-memory recipe collections and applies every
// user operation as load, mutate, save against a types.Store.
//
// Active and deleted recipes live in one ordered list with a state flag.
// Moving a recipe between collections moves it to the end of the list, which
// keeps append order within each persisted collection.
//
// Mutations are applied in memory before saving. When a save fails the
// mutated recipe is still returned alongside the error and the in-memory
// state is kept.
package cookbook

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// Cookbook is safe for concurrent use; operations are serialized.
type Cookbook struct {
	mu      sync.Mutex
	store   types.Store
	logger  *zap.Logger
	recipes []*types.Recipe
}

// New returns an empty Cookbook bound to store. Call Load before reading.
func New(store types.Store, logger *zap.Logger) *Cookbook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cookbook{store: store, logger: logger}
}

// Load replaces the in-memory state with both persisted collections.
// A collection that cannot be read is treated as empty; the read errors are
// joined and returned so the caller can show them, but the cookbook stays
// usable.
func (c *Cookbook) Load(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadLocked(ctx)
}

func (c *Cookbook) loadLocked(ctx context.Context) error {
	var (
		all  []*types.Recipe
		errs []error
		seen = make(map[string]bool)
	)
	for _, collection := range types.Collections {
		recipes, err := c.store.Load(ctx, collection)
		if err != nil {
			c.logger.Warn("collection unavailable, treating as empty",
				zap.String("collection", collection), zap.Error(err))
			errs = append(errs, fmt.Errorf("load %s: %w", collection, err))
			continue
		}
		state := types.StateForCollection(collection)
		occurrences := make(map[string]int)
		for _, r := range recipes {
			r.State = state
			if r.ID == "" || seen[r.ID] {
				key := r.ID + "\x00" + r.Title
				r.ID = types.DerivedID(collection, key, occurrences[key])
				occurrences[key]++
			}
			seen[r.ID] = true
			all = append(all, r)
		}
	}
	c.recipes = all
	c.logger.Debug("cookbook loaded", zap.Int("recipes", len(all)))
	return errors.Join(errs...)
}

// Recipes returns copies of the recipes in the given state, in stored order.
func (c *Cookbook) Recipes(state string) []*types.Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.collectLocked(state, true)
}

// Active is shorthand for Recipes(types.StateActive).
func (c *Cookbook) Active() []*types.Recipe {
	return c.Recipes(types.StateActive)
}

// Deleted is shorthand for Recipes(types.StateDeleted).
func (c *Cookbook) Deleted() []*types.Recipe {
	return c.Recipes(types.StateDeleted)
}

// Search returns copies of the active recipes matching term.
func (c *Cookbook) Search(term string) []*types.Recipe {
	return Filter(c.Active(), term)
}

// Get returns a copy of the recipe with the given ID, in any state.
func (c *Cookbook) Get(id string) (*types.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, r, err := c.findLocked(id)
	if err != nil {
		return nil, err
	}
	return r.Clone(), nil
}

// FindByTitle returns the first recipe in state whose title equals title.
// Titles are not unique; prefer IDs.
func (c *Cookbook) FindByTitle(state, title string) (*types.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, r := range c.recipes {
		if r.State == state && r.Title == title {
			return r.Clone(), nil
		}
	}
	return nil, fmt.Errorf("%w: %q", types.ErrNotFound, title)
}

// Add validates in, appends the new recipe to the active collection, and
// saves it.
func (c *Cookbook) Add(ctx context.Context, in types.RecipeInput) (*types.Recipe, error) {
	r, err := in.Recipe()
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	r.ID = types.NewID()
	c.recipes = append(c.recipes, r)
	c.logger.Info("recipe added", zap.String("id", r.ID), zap.String("title", r.Title))
	return r.Clone(), c.saveLocked(ctx, types.CollectionActive)
}

// Delete moves an active recipe to the recycle bin and saves both
// collections.
func (c *Cookbook) Delete(ctx context.Context, id string) (*types.Recipe, error) {
	return c.move(ctx, id, (*types.Recipe).Delete, "recipe deleted")
}

// Restore moves a recipe out of the recycle bin and saves both collections.
func (c *Cookbook) Restore(ctx context.Context, id string) (*types.Recipe, error) {
	return c.move(ctx, id, (*types.Recipe).Restore, "recipe restored")
}

func (c *Cookbook) move(ctx context.Context, id string, transition func(*types.Recipe) error, msg string) (*types.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, r, err := c.findLocked(id)
	if err != nil {
		return nil, err
	}
	if err := transition(r); err != nil {
		return nil, fmt.Errorf("%q: %w", r.DisplayTitle(), err)
	}
	c.recipes = append(append(c.recipes[:i:i], c.recipes[i+1:]...), r)
	c.logger.Info(msg, zap.String("id", r.ID), zap.String("title", r.Title))
	return r.Clone(), c.saveLocked(ctx, types.CollectionActive, types.CollectionDeleted)
}

// Purge permanently removes a recipe from the recycle bin and saves the
// deleted collection. Active recipes cannot be purged.
func (c *Cookbook) Purge(ctx context.Context, id string) (*types.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i, r, err := c.findLocked(id)
	if err != nil {
		return nil, err
	}
	if r.Active() {
		return nil, fmt.Errorf("%q is not in the recycle bin: %w", r.DisplayTitle(), types.ErrInvalidTransition)
	}
	c.recipes = append(c.recipes[:i:i], c.recipes[i+1:]...)
	c.logger.Info("recipe purged", zap.String("id", r.ID), zap.String("title", r.Title))
	return r, c.saveLocked(ctx, types.CollectionDeleted)
}

// Rate appends a 1-5 rating to an active recipe and saves the active
// collection.
func (c *Cookbook) Rate(ctx context.Context, id string, stars int) (*types.Recipe, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, r, err := c.findLocked(id)
	if err != nil {
		return nil, err
	}
	if !r.Active() {
		return nil, fmt.Errorf("%q is in the recycle bin: %w", r.DisplayTitle(), types.ErrInvalidTransition)
	}
	if err := r.Rate(stars); err != nil {
		return nil, err
	}
	c.logger.Info("recipe rated", zap.String("id", r.ID), zap.Int("stars", stars))
	return r.Clone(), c.saveLocked(ctx, types.CollectionActive)
}

func (c *Cookbook) findLocked(id string) (int, *types.Recipe, error) {
	if id == "" {
		return -1, nil, types.ErrInvalidID
	}
	for i, r := range c.recipes {
		if r.ID == id {
			return i, r, nil
		}
	}
	return -1, nil, fmt.Errorf("%w: %s", types.ErrNotFound, id)
}

func (c *Cookbook) collectLocked(state string, clone bool) []*types.Recipe {
	out := []*types.Recipe{}
	for _, r := range c.recipes {
		if r.State != state {
			continue
		}
		if clone {
			r = r.Clone()
		}
		out = append(out, r)
	}
	return out
}

// saveLocked writes each named collection in full. Every collection is
// attempted; failures are joined. In-memory state is never rolled back.
func (c *Cookbook) saveLocked(ctx context.Context, collections ...string) error {
	var errs []error
	for _, collection := range collections {
		recipes := c.collectLocked(types.StateForCollection(collection), false)
		if err := c.store.Save(ctx, collection, recipes); err != nil {
			c.logger.Error("save failed", zap.String("collection", collection), zap.Error(err))
			errs = append(errs, fmt.Errorf("save %s: %w", collection, err))
		}
	}
	return errors.Join(errs...)
}
