// Package loaders batches the patient and profile lookups made while joining
// synchronized collections.
package loaders

import (
	"context"
	"time"

	"github.com/graph-gophers/dataloader/v7"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	"github.com/Rakhazzan/SINTESIS/internal/domain/repositories"
)

const batchWait = 2 * time.Millisecond

// Loaders contains the dataloaders shared by the views of one process.
// Results are never cached: every Load reflects the store as it is now.
type Loaders struct {
	Patients *dataloader.Loader[string, *entities.Patient]
	Profiles *dataloader.Loader[string, *entities.UserProfile]
}

// New creates the loaders
func New(patientRepo repositories.PatientRepository, userRepo repositories.UserRepository) *Loaders {
	return &Loaders{
		Patients: newLoader(patientRepo.GetByIDs, func(p *entities.Patient) string { return p.ID }),
		Profiles: newLoader(userRepo.GetByIDs, func(u *entities.UserProfile) string { return u.ID }),
	}
}

func newLoader[V any](getByIDs func(context.Context, []string) ([]V, error), idOf func(V) string) *dataloader.Loader[string, V] {
	return dataloader.NewBatchedLoader(
		batchFunc(getByIDs, idOf),
		dataloader.WithCache[string, V](&dataloader.NoCache[string, V]{}),
		dataloader.WithWait[string, V](batchWait),
	)
}

// batchFunc adapts a GetByIDs lookup. Keys with no record resolve to nil
// without an error: a missing row is a state the views display.
func batchFunc[V any](getByIDs func(context.Context, []string) ([]V, error), idOf func(V) string) dataloader.BatchFunc[string, V] {
	return func(ctx context.Context, keys []string) []*dataloader.Result[V] {
		results := make([]*dataloader.Result[V], len(keys))
		items, err := getByIDs(ctx, keys)

		byID := make(map[string]V, len(items))
		if err == nil {
			for _, item := range items {
				byID[idOf(item)] = item
			}
		}

		for i, key := range keys {
			if err != nil {
				results[i] = &dataloader.Result[V]{Error: err}
			} else {
				results[i] = &dataloader.Result[V]{Data: byID[key]}
			}
		}
		return results
	}
}

// PatientsByID loads the given patients; absent ids are missing from the map
func (l *Loaders) PatientsByID(ctx context.Context, ids []string) (map[string]*entities.Patient, error) {
	return loadMany(ctx, l.Patients, ids)
}

// ProfilesByID loads the given profiles; absent ids are missing from the map
func (l *Loaders) ProfilesByID(ctx context.Context, ids []string) (map[string]*entities.UserProfile, error) {
	return loadMany(ctx, l.Profiles, ids)
}

func loadMany[V comparable](ctx context.Context, loader *dataloader.Loader[string, V], ids []string) (map[string]V, error) {
	keys := unique(ids)
	out := make(map[string]V, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	values, errs := loader.LoadMany(ctx, keys)()
	var zero V
	for i, key := range keys {
		if i < len(errs) && errs[i] != nil {
			return nil, errs[i]
		}
		if values[i] != zero {
			out[key] = values[i]
		}
	}
	return out, nil
}

func unique(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
