/*
Copyright 2024 Blnk Finance Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package wharf

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/texttheater/golang-levenshtein/levenshtein"

	pg_listener "github.com/blnkfinance/wharf/internal/pg-listener"
	"github.com/blnkfinance/wharf/model"
)

// maxSuggestions caps the outbox codes offered for a mistyped scan.
const maxSuggestions = 3

func unitCacheKey(code string) string {
	return "code:" + strings.TrimSpace(code)
}

// CreateLocation registers a floor position. Zone and level drive wave partitioning and
// replacement ranking.
func (w *Wharf) CreateLocation(ctx context.Context, location model.Location) (model.Location, error) {
	ctx, span := tracer.Start(ctx, "Creating location")
	defer span.End()

	if location.Code == "" {
		return model.Location{}, fmt.Errorf("%w: location code is required", model.ErrInvalidState)
	}
	created, err := w.datasource.CreateLocation(ctx, location)
	if err != nil {
		return model.Location{}, logAndRecordError(span, "failed to create location", err)
	}
	return created, nil
}

// CreateStorageUnit registers a box, outbox or cart.
func (w *Wharf) CreateStorageUnit(ctx context.Context, unit model.StorageUnit) (model.StorageUnit, error) {
	ctx, span := tracer.Start(ctx, "Creating storage unit")
	defer span.End()

	if unit.Code == "" {
		return model.StorageUnit{}, fmt.Errorf("%w: storage unit code is required", model.ErrInvalidState)
	}
	switch unit.Kind {
	case model.KindStorage, model.KindOutbox, model.KindCart:
	case "":
		unit.Kind = model.KindStorage
	default:
		return model.StorageUnit{}, fmt.Errorf("%w: unknown storage unit kind %s", model.ErrInvalidState, unit.Kind)
	}

	created, err := w.datasource.CreateStorageUnit(ctx, unit)
	if err != nil {
		return model.StorageUnit{}, logAndRecordError(span, "failed to create storage unit", err)
	}
	return created, nil
}

// ResolveUnitByCode maps a scanned code to its storage unit. Lookups are served from the
// directory cache. Only identity is cached: callers must re-read the unit before relying on
// its lock or status.
func (w *Wharf) ResolveUnitByCode(ctx context.Context, code string) (*model.StorageUnit, error) {
	ctx, span := tracer.Start(ctx, "Resolving storage unit")
	defer span.End()

	key := unitCacheKey(code)
	if w.directory != nil {
		var cached model.StorageUnit
		found, err := w.directory.Get(ctx, key, &cached)
		if err != nil {
			logrus.Warnf("directory cache read failed for %s: %v", code, err)
		}
		if found {
			return &cached, nil
		}
	}

	unit, err := w.datasource.GetStorageUnitByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, err
	}
	if w.directory != nil {
		if err := w.directory.Set(ctx, key, unit, w.directoryTTL); err != nil {
			logrus.Warnf("directory cache write failed for %s: %v", code, err)
		}
	}
	return unit, nil
}

// suggestOutboxes returns the OUTBOX codes closest to code by edit distance.
func (w *Wharf) suggestOutboxes(ctx context.Context, code string) []string {
	outboxes, err := w.datasource.ListStorageUnitsByKind(ctx, model.KindOutbox)
	if err != nil {
		logrus.Warnf("could not list outboxes for suggestions: %v", err)
		return nil
	}

	type scored struct {
		code     string
		distance int
	}
	target := []rune(strings.ToUpper(code))
	candidates := make([]scored, 0, len(outboxes))
	for _, o := range outboxes {
		d := levenshtein.DistanceForStrings(target, []rune(strings.ToUpper(o.Code)), levenshtein.DefaultOptions)
		candidates = append(candidates, scored{code: o.Code, distance: d})
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].distance != candidates[j].distance {
			return candidates[i].distance < candidates[j].distance
		}
		return candidates[i].code < candidates[j].code
	})

	var out []string
	for _, c := range candidates {
		if len(out) == maxSuggestions {
			break
		}
		out = append(out, c.code)
	}
	return out
}

// HandleNotification evicts cached lookups for storage units edited outside the engine.
func (w *Wharf) HandleNotification(ctx context.Context, change pg_listener.Change) error {
	if change.Table != "storage_units" {
		return nil
	}
	for _, code := range []string{change.Data["code"], change.Data["old_code"]} {
		if code == "" {
			continue
		}
		if err := w.directory.Delete(ctx, unitCacheKey(code)); err != nil {
			return fmt.Errorf("evicting %s: %w", code, err)
		}
	}
	return nil
}
