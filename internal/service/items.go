package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sahilkamalny/flavorbot/internal/errs"
	"github.com/sahilkamalny/flavorbot/internal/metrics"
	"github.com/sahilkamalny/flavorbot/internal/model"
	"github.com/sahilkamalny/flavorbot/internal/repository"
	"github.com/sahilkamalny/flavorbot/internal/session"
	"github.com/sahilkamalny/flavorbot/internal/validate"
)

// InventoryService manages the fridge items of the session user.
type InventoryService interface {
	// List returns the user's items, oldest first.
	List(ctx context.Context) ([]model.FridgeItem, error)
	// Add appends an item; duplicate names are allowed.
	Add(ctx context.Context, name string) error
	// Delete removes one item with the given name.
	Delete(ctx context.Context, name string) (bool, error)
	// Rename renames one item with the given name.
	Rename(ctx context.Context, oldName, newName string) (bool, error)
	// DeleteByID removes the item with the given row id.
	DeleteByID(ctx context.Context, itemID int64) (bool, error)
	// RenameByID renames the item with the given row id.
	RenameByID(ctx context.Context, itemID int64, newName string) (bool, error)
}

type InventoryServiceImpl struct {
	repo repository.ItemRepository
	sess *session.Store
	val  *validate.Validator
	log  *zap.Logger
}

var _ InventoryService = (*InventoryServiceImpl)(nil)

// NewInventoryService constructs InventoryService over the item repository.
func NewInventoryService(repo repository.ItemRepository, sess *session.Store, log *zap.Logger) *InventoryServiceImpl {
	if log == nil {
		log = zap.NewNop()
	}
	return &InventoryServiceImpl{repo: repo, sess: sess, val: validate.New(), log: log.Named("inventory")}
}

func (s *InventoryServiceImpl) List(ctx context.Context) ([]model.FridgeItem, error) {
	uid, err := s.userID()
	if err != nil {
		return nil, err
	}
	items, err := s.repo.ListItems(ctx, uid)
	observe("list", err)
	return items, err
}

func (s *InventoryServiceImpl) Add(ctx context.Context, name string) error {
	uid, err := s.userID()
	if err != nil {
		return err
	}
	name, err = s.cleanName(name)
	if err != nil {
		return err
	}
	err = s.repo.AddItem(ctx, uid, name)
	observe("add", err)
	if err == nil {
		s.log.Debug("item added", zap.Int64("user_id", uid))
	}
	return err
}

// Delete removes the oldest item named name. Names are matched after
// trimming but not validated, so legacy rows stay removable.
func (s *InventoryServiceImpl) Delete(ctx context.Context, name string) (bool, error) {
	uid, err := s.userID()
	if err != nil {
		return false, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return false, fmt.Errorf("%w: empty item name", errs.ErrInvalidInput)
	}
	ok, err := s.repo.DeleteItem(ctx, uid, name)
	observe("delete", err)
	return ok, err
}

func (s *InventoryServiceImpl) Rename(ctx context.Context, oldName, newName string) (bool, error) {
	uid, err := s.userID()
	if err != nil {
		return false, err
	}
	oldName = strings.TrimSpace(oldName)
	if oldName == "" {
		return false, fmt.Errorf("%w: empty item name", errs.ErrInvalidInput)
	}
	newName, err = s.cleanName(newName)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.RenameItem(ctx, uid, oldName, newName)
	observe("rename", err)
	return ok, err
}

func (s *InventoryServiceImpl) DeleteByID(ctx context.Context, itemID int64) (bool, error) {
	uid, err := s.userID()
	if err != nil {
		return false, err
	}
	if itemID <= 0 {
		return false, fmt.Errorf("%w: item id %d", errs.ErrInvalidInput, itemID)
	}
	ok, err := s.repo.DeleteItemByID(ctx, uid, itemID)
	observe("delete", err)
	return ok, err
}

func (s *InventoryServiceImpl) RenameByID(ctx context.Context, itemID int64, newName string) (bool, error) {
	uid, err := s.userID()
	if err != nil {
		return false, err
	}
	if itemID <= 0 {
		return false, fmt.Errorf("%w: item id %d", errs.ErrInvalidInput, itemID)
	}
	newName, err = s.cleanName(newName)
	if err != nil {
		return false, err
	}
	ok, err := s.repo.RenameItemByID(ctx, uid, itemID, newName)
	observe("rename", err)
	return ok, err
}

func (s *InventoryServiceImpl) userID() (int64, error) {
	u, ok := s.sess.Get()
	if !ok {
		return 0, errs.ErrNoActiveSession
	}
	return u.ID, nil
}

func (s *InventoryServiceImpl) cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if err := s.val.Struct(validate.Item{Name: name}); err != nil {
		return "", err
	}
	return name, nil
}

func observe(op string, err error) {
	outcome := metrics.OutcomeSuccess
	if err != nil {
		outcome = metrics.OutcomeError
	}
	metrics.InventoryOps.WithLabelValues(op, outcome).Inc()
}
