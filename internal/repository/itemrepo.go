package repository

import (
	"context"

	"github.com/sahilkamalny/flavorbot/internal/model"
)

// ItemRepository provides access to a user's fridge items.
//
// Names are not unique per user. Mutation by name touches exactly one row,
// the one with the lowest id; the ByID variants are unambiguous.
type ItemRepository interface {
	// ListItems returns all items of a user. Order is not part of the contract.
	ListItems(ctx context.Context, userID int64) ([]model.FridgeItem, error)
	// AddItem appends an item; duplicates are permitted.
	AddItem(ctx context.Context, userID int64, name string) error
	// DeleteItem removes one item with the given name and reports whether a row was removed.
	DeleteItem(ctx context.Context, userID int64, name string) (bool, error)
	// RenameItem renames one item with the given name and reports whether a row was changed.
	RenameItem(ctx context.Context, userID int64, oldName, newName string) (bool, error)
	// DeleteItemByID removes the item with the given id.
	DeleteItemByID(ctx context.Context, userID, itemID int64) (bool, error)
	// RenameItemByID renames the item with the given id.
	RenameItemByID(ctx context.Context, userID, itemID int64, newName string) (bool, error)
}
