package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/financas/internal/common"
	"github.com/Veraticus/financas/internal/model"
	"github.com/Veraticus/financas/internal/service"
)

// maxCategoryDepth bounds ancestor walks so a corrupted parent chain cannot
// loop forever.
const maxCategoryDepth = 64

const categoryColumns = `id, nome, tipo, descricao, categoria_pai_id, nivel, data_criacao, ativo`

func scanCategory(row interface{ Scan(...any) error }) (model.Category, error) {
	var (
		cat       model.Category
		kind      string
		desc      sql.NullString
		parentID  sql.NullInt64
		createdAt sql.NullTime
	)
	if err := row.Scan(&cat.ID, &cat.Name, &kind, &desc, &parentID, &cat.Level, &createdAt, &cat.Active); err != nil {
		return cat, err
	}
	cat.Kind = model.Kind(kind)
	cat.Description = desc.String
	cat.ParentID = intPtr(parentID)
	cat.CreatedAt = createdAt.Time
	return cat, nil
}

func (s *Store) queryCategories(ctx context.Context, query string, args ...any) ([]model.Category, error) {
	var categories []model.Category
	err := s.read(ctx, func(c conn) error {
		categories = nil
		rows, err := c.query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to query categories: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			cat, err := scanCategory(rows)
			if err != nil {
				return fmt.Errorf("failed to scan category: %w", err)
			}
			categories = append(categories, cat)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating categories: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Debug("retrieved categories", "count", len(categories))
	return categories, nil
}

func getCategoryTx(ctx context.Context, c conn, id int64) (*model.Category, error) {
	cat, err := scanCategory(c.queryRow(ctx,
		`SELECT `+categoryColumns+` FROM {{tbl}}categorias WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query category: %w", err)
	}
	return &cat, nil
}

// GetCategory returns the category with the given id, active or not.
func (s *Store) GetCategory(ctx context.Context, id int64) (*model.Category, error) {
	var cat *model.Category
	err := s.read(ctx, func(c conn) error {
		var err error
		cat, err = getCategoryTx(ctx, c, id)
		return err
	})
	return cat, err
}

// ListCategories returns categories ordered by level and name.
func (s *Store) ListCategories(ctx context.Context, filter service.CategoryFilter) ([]model.Category, error) {
	var (
		where []string
		args  []any
	)
	if filter.ActiveOnly {
		where = append(where, "ativo = 1")
	}
	if filter.Kind != "" {
		where = append(where, "tipo = ?")
		args = append(args, string(filter.Kind))
	}

	query := `SELECT ` + categoryColumns + ` FROM {{tbl}}categorias`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY nivel, nome"
	return s.queryCategories(ctx, query, args...)
}

// RootCategories returns the categories without a parent. An empty kind
// matches every kind.
func (s *Store) RootCategories(ctx context.Context, kind model.Kind, activeOnly bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM {{tbl}}categorias WHERE categoria_pai_id IS NULL`
	var args []any
	if kind != "" {
		query += " AND tipo = ?"
		args = append(args, string(kind))
	}
	if activeOnly {
		query += " AND ativo = 1"
	}
	return s.queryCategories(ctx, query+" ORDER BY nome", args...)
}

// ChildCategories returns the direct children of parentID.
func (s *Store) ChildCategories(ctx context.Context, parentID int64, activeOnly bool) ([]model.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM {{tbl}}categorias WHERE categoria_pai_id = ?`
	if activeOnly {
		query += " AND ativo = 1"
	}
	return s.queryCategories(ctx, query+" ORDER BY nome", parentID)
}

// CategoryPath returns the chain from the root down to id, one query per
// ancestor.
func (s *Store) CategoryPath(ctx context.Context, id int64) ([]model.Category, error) {
	var path []model.Category
	err := s.read(ctx, func(c conn) error {
		var err error
		path, err = categoryPathTx(ctx, c, id)
		return err
	})
	return path, err
}

func categoryPathTx(ctx context.Context, c conn, id int64) ([]model.Category, error) {
	var reversed []model.Category
	next := &id
	for next != nil {
		if len(reversed) == maxCategoryDepth {
			return nil, fmt.Errorf("%w: path of category %d exceeds %d levels", common.ErrDatabaseCorrupted, id, maxCategoryDepth)
		}
		cat, err := getCategoryTx(ctx, c, *next)
		if err != nil {
			return nil, err
		}
		reversed = append(reversed, *cat)
		next = cat.ParentID
	}

	path := make([]model.Category, len(reversed))
	for i, cat := range reversed {
		path[len(reversed)-1-i] = cat
	}
	return path, nil
}

// FindCategoryByName returns the active category named name, matched
// case-insensitively. An empty kind matches every kind.
func (s *Store) FindCategoryByName(ctx context.Context, name string, kind model.Kind) (*model.Category, error) {
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	query := `SELECT ` + categoryColumns + ` FROM {{tbl}}categorias WHERE ativo = 1 AND LOWER(nome) = LOWER(?)`
	args := []any{strings.TrimSpace(name)}
	if kind != "" {
		query += " AND tipo = ?"
		args = append(args, string(kind))
	}

	found, err := s.queryCategories(ctx, query+" ORDER BY id", args...)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	return &found[0], nil
}

// CreateCategory inserts cat, deriving its level from the parent.
func (s *Store) CreateCategory(ctx context.Context, cat *model.Category) error {
	if err := validateCategory(cat); err != nil {
		return err
	}

	var id int64
	var level int
	err := s.withTx(ctx, func(c conn) error {
		var parent *model.Category
		if cat.ParentID != nil {
			var err error
			if parent, err = getCategoryTx(ctx, c, *cat.ParentID); err != nil {
				return fmt.Errorf("parent: %w", err)
			}
		}
		level = model.LevelUnder(parent)

		var err error
		id, err = c.insert(ctx, `INSERT INTO {{tbl}}categorias (nome, tipo, descricao, categoria_pai_id, nivel, ativo) VALUES (?, ?, ?, ?, ?, ?)`,
			strings.TrimSpace(cat.Name), string(cat.Kind), nullString(cat.Description), nullInt(cat.ParentID), level, true)
		if err != nil {
			return fmt.Errorf("failed to insert category: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cat.ID, cat.Level, cat.Active = id, level, true
	slog.Info("created category", "schema", s.schema, "id", id, "name", cat.Name, "level", level)
	return nil
}

// UpdateCategory rewrites cat. Moving it under another parent re-levels the
// whole subtree; a move below one of its own descendants is rejected.
func (s *Store) UpdateCategory(ctx context.Context, cat *model.Category) error {
	if err := validateCategory(cat); err != nil {
		return err
	}

	var level int
	err := s.withTx(ctx, func(c conn) error {
		current, err := getCategoryTx(ctx, c, cat.ID)
		if err != nil {
			return err
		}

		level = 1
		if cat.ParentID != nil {
			path, err := categoryPathTx(ctx, c, *cat.ParentID)
			if err != nil {
				return fmt.Errorf("parent: %w", err)
			}
			for _, ancestor := range path {
				if ancestor.ID == cat.ID {
					return fmt.Errorf("%w: %d under %d", common.ErrCategoryCycle, cat.ID, *cat.ParentID)
				}
			}
			level = path[len(path)-1].Level + 1
		}

		res, err := c.exec(ctx, `UPDATE {{tbl}}categorias SET nome = ?, tipo = ?, descricao = ?, categoria_pai_id = ?, nivel = ?, ativo = ? WHERE id = ?`,
			strings.TrimSpace(cat.Name), string(cat.Kind), nullString(cat.Description), nullInt(cat.ParentID), level, cat.Active, cat.ID)
		if err != nil {
			return fmt.Errorf("failed to update category: %w", err)
		}
		if err := affected(res, "category", cat.ID); err != nil {
			return err
		}

		if level != current.Level {
			return relevelChildrenTx(ctx, c, cat.ID, level)
		}
		return nil
	})
	if err != nil {
		return err
	}

	cat.Level = level
	return nil
}

// relevelChildrenTx walks the subtree below parentID breadth first, setting
// each node one level below its parent.
func relevelChildrenTx(ctx context.Context, c conn, parentID int64, parentLevel int) error {
	type node struct {
		id    int64
		level int
	}
	queue := []node{{id: parentID, level: parentLevel}}

	for depth := 0; len(queue) > 0; depth++ {
		if depth > maxCategoryDepth {
			return fmt.Errorf("%w: subtree of category %d exceeds %d levels", common.ErrDatabaseCorrupted, parentID, maxCategoryDepth)
		}
		var next []node
		for _, n := range queue {
			ids, err := childIDsTx(ctx, c, n.id)
			if err != nil {
				return err
			}
			if len(ids) == 0 {
				continue
			}
			if _, err := c.exec(ctx, `UPDATE {{tbl}}categorias SET nivel = ? WHERE categoria_pai_id = ?`, n.level+1, n.id); err != nil {
				return fmt.Errorf("failed to update child levels: %w", err)
			}
			for _, id := range ids {
				next = append(next, node{id: id, level: n.level + 1})
			}
		}
		queue = next
	}
	return nil
}

func childIDsTx(ctx context.Context, c conn, parentID int64) ([]int64, error) {
	rows, err := c.query(ctx, `SELECT id FROM {{tbl}}categorias WHERE categoria_pai_id = ?`, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to query child categories: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan child category: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// DeleteCategory soft-deletes the category. Children are left in place.
func (s *Store) DeleteCategory(ctx context.Context, id int64) error {
	err := s.withTx(ctx, func(c conn) error {
		res, err := c.exec(ctx, `UPDATE {{tbl}}categorias SET ativo = 0 WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("failed to delete category: %w", err)
		}
		return affected(res, "category", id)
	})
	if err != nil {
		return err
	}

	slog.Info("deleted category", "schema", s.schema, "id", id)
	return nil
}
