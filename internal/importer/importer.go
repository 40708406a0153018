// Package importer saves parsed statement lines into an account, skipping
// lines that were imported before.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/ofx"
	"github.com/Veraticus/financas/internal/service"
	"github.com/agnivade/levenshtein"
)

// MaxNameDistance is the largest edit distance at which a category hint
// still matches an existing category name.
const MaxNameDistance = 2

// Store is the part of the storage layer the importer needs.
type Store interface {
	ExistsByExternalID(ctx context.Context, accountID int64, externalID string) (bool, error)
	CreateTransaction(ctx context.Context, txn *model.Transaction) error
	FindCategoryByName(ctx context.Context, name string, kind model.Kind) (*model.Category, error)
	ListCategories(ctx context.Context, filter service.CategoryFilter) ([]model.Category, error)
	CreateCategory(ctx context.Context, category *model.Category) error
}

// Result counts what an import did.
type Result struct {
	Imported          int
	Skipped           int
	CategoriesCreated int
}

// Importer converts statement entries into ledger transactions.
type Importer struct {
	store  Store
	byName map[string]int64
}

// New creates an importer writing through store.
func New(store Store) *Importer {
	return &Importer{
		store:  store,
		byName: make(map[string]int64),
	}
}

// Import saves entries into the account. Entries whose external id already
// exists on the account are skipped.
func (i *Importer) Import(ctx context.Context, accountID int64, entries []ofx.Entry) (Result, error) {
	var result Result
	if accountID <= 0 {
		return result, fmt.Errorf("%w: account id %d", common.ErrInvalidInput, accountID)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		txn := entry.Transaction
		if txn.ExternalID != "" {
			exists, err := i.store.ExistsByExternalID(ctx, accountID, txn.ExternalID)
			if err != nil {
				return result, err
			}
			if exists {
				slog.Debug("Skipping already imported transaction",
					"external_id", txn.ExternalID,
					"account_id", accountID)
				result.Skipped++
				continue
			}
		}

		if entry.CategoryHint != "" && txn.CategoryID == nil {
			id, created, err := i.resolveCategory(ctx, entry.CategoryHint, txn.Kind)
			if err != nil {
				return result, err
			}
			if created {
				result.CategoriesCreated++
			}
			txn.CategoryID = &id
		}

		txn.AccountID = &accountID
		if err := i.store.CreateTransaction(ctx, &txn); err != nil {
			return result, fmt.Errorf("failed to import %q: %w", txn.Description, err)
		}
		result.Imported++
	}

	slog.Info("Imported statement",
		"account_id", accountID,
		"imported", result.Imported,
		"skipped", result.Skipped,
		"categories_created", result.CategoriesCreated)

	return result, nil
}

// resolveCategory finds the category named by hint: exact name first, then
// the closest active name of the same kind. A new root category is created
// when nothing is close enough.
func (i *Importer) resolveCategory(ctx context.Context, hint string, kind model.Kind) (int64, bool, error) {
	key := string(kind) + "/" + strings.ToLower(hint)
	if id, ok := i.byName[key]; ok {
		return id, false, nil
	}

	cat, err := i.store.FindCategoryByName(ctx, hint, kind)
	switch {
	case err == nil:
		i.byName[key] = cat.ID
		return cat.ID, false, nil
	case !errors.Is(err, common.ErrNotFound):
		return 0, false, err
	}

	candidates, err := i.store.ListCategories(ctx, service.CategoryFilter{Kind: kind, ActiveOnly: true})
	if err != nil {
		return 0, false, err
	}
	if match, ok := closest(hint, candidates); ok {
		slog.Debug("Matched category hint", "hint", hint, "category", match.Name)
		i.byName[key] = match.ID
		return match.ID, false, nil
	}

	created := &model.Category{Name: hint, Kind: kind, Active: true}
	if err := i.store.CreateCategory(ctx, created); err != nil {
		return 0, false, fmt.Errorf("failed to create category %q: %w", hint, err)
	}
	slog.Info("Created category for import", "name", hint, "kind", kind)
	i.byName[key] = created.ID
	return created.ID, true, nil
}

// closest returns the candidate with the smallest edit distance to name, if
// it is within MaxNameDistance. Ties go to the earliest candidate.
func closest(name string, candidates []model.Category) (model.Category, bool) {
	target := strings.ToLower(strings.TrimSpace(name))
	best, bestDist := -1, MaxNameDistance+1
	for idx, c := range candidates {
		d := levenshtein.ComputeDistance(target, strings.ToLower(c.Name))
		if d < bestDist {
			best, bestDist = idx, d
		}
	}
	if best < 0 {
		return model.Category{}, false
	}
	return candidates[best], true
}
