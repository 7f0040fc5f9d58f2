package postgres

import (
	"context"

	"github.com/sahilkamalny/flavorbot/internal/model"
)

// ItemRepo implements ItemRepository using PostgreSQL.
type ItemRepo struct{ db *DB }

// NewItemRepo constructs an item repository.
func NewItemRepo(db *DB) *ItemRepo { return &ItemRepo{db: db} }

// ListItems returns all fridge items of a user.
func (r *ItemRepo) ListItems(ctx context.Context, userID int64) ([]model.FridgeItem, error) {
	const q = `
SELECT id, user_id, name, created_at
FROM fridge_items
WHERE user_id=$1
ORDER BY id ASC`
	rows, err := r.db.Pool.Query(ctx, q, userID)
	if err != nil {
		return nil, wrapErr("list items", err)
	}
	defer rows.Close()

	out := make([]model.FridgeItem, 0)
	for rows.Next() {
		var it model.FridgeItem
		if err = rows.Scan(&it.ID, &it.UserID, &it.Name, &it.CreatedAt); err != nil {
			return nil, wrapErr("list items", err)
		}
		out = append(out, it)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapErr("list items", err)
	}
	return out, nil
}

// AddItem appends a fridge item. Duplicate names are allowed.
func (r *ItemRepo) AddItem(ctx context.Context, userID int64, name string) error {
	const q = `INSERT INTO fridge_items (user_id, name) VALUES ($1, $2)`
	_, err := r.db.Pool.Exec(ctx, q, userID, name)
	return wrapErr("add item", err)
}

// DeleteItem removes the matching item with the lowest id.
func (r *ItemRepo) DeleteItem(ctx context.Context, userID int64, name string) (bool, error) {
	const q = `
DELETE FROM fridge_items
WHERE id = (
  SELECT id FROM fridge_items
  WHERE user_id=$1 AND name=$2
  ORDER BY id ASC LIMIT 1
)`
	tag, err := r.db.Pool.Exec(ctx, q, userID, name)
	if err != nil {
		return false, wrapErr("delete item", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RenameItem renames the matching item with the lowest id and stamps created_at.
func (r *ItemRepo) RenameItem(ctx context.Context, userID int64, oldName, newName string) (bool, error) {
	const q = `
UPDATE fridge_items SET name=$3, created_at=now()
WHERE id = (
  SELECT id FROM fridge_items
  WHERE user_id=$1 AND name=$2
  ORDER BY id ASC LIMIT 1
)`
	tag, err := r.db.Pool.Exec(ctx, q, userID, oldName, newName)
	if err != nil {
		return false, wrapErr("rename item", err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteItemByID removes a single item by its row id.
func (r *ItemRepo) DeleteItemByID(ctx context.Context, userID, itemID int64) (bool, error) {
	const q = `DELETE FROM fridge_items WHERE id=$2 AND user_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, itemID)
	if err != nil {
		return false, wrapErr("delete item", err)
	}
	return tag.RowsAffected() > 0, nil
}

// RenameItemByID renames a single item by its row id.
func (r *ItemRepo) RenameItemByID(ctx context.Context, userID, itemID int64, newName string) (bool, error) {
	const q = `UPDATE fridge_items SET name=$3, created_at=now() WHERE id=$2 AND user_id=$1`
	tag, err := r.db.Pool.Exec(ctx, q, userID, itemID, newName)
	if err != nil {
		return false, wrapErr("rename item", err)
	}
	return tag.RowsAffected() > 0, nil
}
