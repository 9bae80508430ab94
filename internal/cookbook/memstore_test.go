package cookbook

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mesh-intelligence/recipebox/pkg/types"
)

// memStore is an in-memory types.Store that round-trips through JSON so the
// cookbook never shares pointers with what was "persisted".
type memStore struct {
	data    map[string][]byte
	loadErr map[string]error
	saveErr map[string]error
	saves   []string
}

func newMemStore() *memStore {
	return &memStore{
		data:    map[string][]byte{},
		loadErr: map[string]error{},
		saveErr: map[string]error{},
	}
}

func (m *memStore) Load(ctx context.Context, collection string) ([]*types.Recipe, error) {
	if err := m.loadErr[collection]; err != nil {
		return nil, err
	}
	raw, ok := m.data[collection]
	if !ok {
		return []*types.Recipe{}, nil
	}
	var out []*types.Recipe
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (m *memStore) Save(ctx context.Context, collection string, recipes []*types.Recipe) error {
	m.saves = append(m.saves, collection)
	if err := m.saveErr[collection]; err != nil {
		return err
	}
	raw, err := json.Marshal(recipes)
	if err != nil {
		return err
	}
	m.data[collection] = raw
	return nil
}

func (m *memStore) Close() error { return nil }

func (m *memStore) seed(collection string, recipes ...*types.Recipe) {
	raw, err := json.Marshal(recipes)
	if err != nil {
		panic(err)
	}
	m.data[collection] = raw
}

func (m *memStore) titles(collection string) []string {
	recipes, err := m.Load(context.Background(), collection)
	if err != nil {
		panic(err)
	}
	out := []string{}
	for _, r := range recipes {
		out = append(out, r.Title)
	}
	return out
}

var errBoom = errors.New("boom")
