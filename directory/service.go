package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/jacentio/directories/expression"
	"github.com/jacentio/directories/store"
)

// Service implements the directory tree operations on top of a Store.
type Service struct {
	store  *store.Store
	table  string
	config Config
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new Service.
func NewService(st *store.Store, cfg Config, logger *slog.Logger) *Service {
	cfg.validate()
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  st,
		table:  st.Config().DirectoryTable,
		config: cfg,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetClock replaces the time source used for createdAt/updatedAt.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// CreateDirectory creates a directory and links it into its parent in one
// transaction. The home directory has no parent and is written alone.
func (s *Service) CreateDirectory(ctx context.Context, caller string, req CreateRequest) (*Directory, error) {
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	now := s.now()
	dir := &Directory{
		Owner:      owner,
		ID:         req.ID,
		Parent:     req.Parent,
		Name:       req.Name,
		Visibility: req.Visibility,
		Items:      Items{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	put := s.update(owner, dir.ID).
		Set(expression.Path{attrParent}, dir.Parent).
		Set(expression.Path{attrName}, dir.Name).
		Set(expression.Path{attrVisibility}, dir.Visibility).
		Set(expression.Path{attrItems}, dir.Items).
		Set(expression.Path{attrCreatedAt}, dir.CreatedAt).
		Set(expression.Path{attrUpdatedAt}, dir.UpdatedAt).
		Condition(expression.NotExists(expression.Path{attrID}))
	exists := fmt.Errorf("%w: directory %s already exists", ErrConflict, dir.ID)

	if dir.IsHome() {
		if _, err := s.store.Update(ctx, put); err != nil {
			return nil, s.mapWriteError("create directory", err, exists)
		}
	} else {
		link := s.update(owner, dir.Parent).
			Set(expression.Path{attrItems, dir.ID}, dir.AsItem()).
			Set(expression.Path{attrUpdatedAt}, now).
			Condition(expression.Exists(expression.Path{attrID}))

		err := s.store.Transact(ctx, put, link)
		var txErr *store.TransactionError
		if errors.As(err, &txErr) && txErr.Index == 1 {
			return nil, fmt.Errorf("%w: parent directory %s", ErrNotFound, dir.Parent)
		}
		if err != nil {
			return nil, s.mapWriteError("create directory", err, exists)
		}
	}

	s.logger.Info("created directory",
		"owner", owner,
		"directoryId", dir.ID,
		"parent", dir.Parent,
	)
	return dir, nil
}

// GetDirectory returns one directory. Private directories are only
// readable by their owner. An empty owner means the caller.
func (s *Service) GetDirectory(ctx context.Context, caller, owner, id string) (*Directory, error) {
	if caller == "" {
		return nil, ErrForbidden
	}
	if owner == "" {
		owner = caller
	}
	if !isDirectoryID(id) {
		return nil, invalidf("id %q is not a directory id", id)
	}

	item, err := s.store.Get(ctx, s.table, directoryKey(owner, id))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: directory %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get directory: %w", err)
	}

	dir, err := decodeDirectory(item)
	if err != nil {
		return nil, err
	}
	if dir.Visibility != VisibilityPublic && caller != owner {
		return nil, ErrForbidden
	}
	return dir, nil
}

// ListDirectories returns every directory of owner. Callers other than the
// owner only see public directories.
func (s *Service) ListDirectories(ctx context.Context, caller, owner string) ([]*Directory, error) {
	if caller == "" {
		return nil, ErrForbidden
	}
	if owner == "" {
		owner = caller
	}

	input := store.QueryInput{
		TableName:                s.table,
		KeyConditionExpression:   "#owner = :owner",
		ExpressionAttributeNames: map[string]string{"#owner": attrOwner},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":owner": &types.AttributeValueMemberS{Value: owner},
		},
	}
	if caller != owner {
		input.FilterExpression = "#visibility = :public"
		input.ExpressionAttributeNames["#visibility"] = attrVisibility
		input.ExpressionAttributeValues[":public"] = &types.AttributeValueMemberS{Value: string(VisibilityPublic)}
	}

	items, err := s.store.Query(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("list directories: %w", err)
	}
	dirs := make([]*Directory, 0, len(items))
	for _, item := range items {
		dir, err := decodeDirectory(item)
		if err != nil {
			return nil, err
		}
		dirs = append(dirs, dir)
	}
	return dirs, nil
}

// UpdateDirectory renames a directory and/or changes its visibility. The
// parent's embedded copy is refreshed later by the stream handler.
func (s *Service) UpdateDirectory(ctx context.Context, caller string, req UpdateRequest) (*Directory, error) {
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	b := s.update(owner, req.ID).
		Set(expression.Path{attrName}, req.Name).
		Set(expression.Path{attrVisibility}, req.Visibility).
		Set(expression.Path{attrUpdatedAt}, s.now()).
		Condition(expression.Exists(expression.Path{attrID})).
		Return(types.ReturnValueAllNew)

	attrs, err := s.store.Update(ctx, b)
	if err != nil {
		return nil, s.mapWriteError("update directory", err,
			fmt.Errorf("%w: directory %s", ErrNotFound, req.ID))
	}
	return decodeDirectory(attrs)
}

// DeleteDirectory deletes one directory and returns it as it was. The home
// directory can never be deleted. Sub-directories and the parent's entry
// are cleaned up by the stream handler.
func (s *Service) DeleteDirectory(ctx context.Context, caller string, req DeleteRequest) (*Directory, error) {
	if req.ID == HomeID {
		return nil, fmt.Errorf("%w: the home directory cannot be deleted", ErrNotAllowed)
	}
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if !isDirectoryID(req.ID) {
		return nil, invalidf("id %q is not a directory id", req.ID)
	}

	cond := expression.And(
		expression.Exists(expression.Path{attrID}),
		expression.NotEqual(expression.Path{attrID}, HomeID),
	)
	old, err := s.store.Delete(ctx, s.table, directoryKey(owner, req.ID), cond)
	if err != nil {
		return nil, s.mapWriteError("delete directory", err,
			fmt.Errorf("%w: directory %s", ErrNotFound, req.ID))
	}

	dir, err := decodeDirectory(old)
	if err != nil {
		return nil, err
	}
	s.logger.Info("deleted directory",
		"owner", owner,
		"directoryId", dir.ID,
		"itemCount", len(dir.Items),
	)
	return dir, nil
}

// AddItem embeds a game in a directory and returns the updated directory.
// The game metadata is stored as supplied.
func (s *Service) AddItem(ctx context.Context, caller string, req AddItemRequest) (*Directory, error) {
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	item := GameItem{
		Type:     req.itemType(owner),
		ID:       req.Game.ItemID(),
		Metadata: req.Game,
	}
	b := s.update(owner, req.DirectoryID).
		Set(expression.Path{attrItems, item.ID}, item).
		Set(expression.Path{attrUpdatedAt}, s.now()).
		Condition(expression.Exists(expression.Path{attrID})).
		Return(types.ReturnValueAllNew)

	attrs, err := s.store.Update(ctx, b)
	if err != nil {
		return nil, s.mapWriteError("add item", err,
			fmt.Errorf("%w: directory %s", ErrNotFound, req.DirectoryID))
	}
	return decodeDirectory(attrs)
}

// RemoveItem removes one item from a directory. Removing an item that is
// not there succeeds; a missing directory does not.
func (s *Service) RemoveItem(ctx context.Context, caller string, req RemoveItemRequest) error {
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return err
	}
	if err := req.normalize(); err != nil {
		return err
	}

	b := s.update(owner, req.DirectoryID).
		Remove(expression.Path{attrItems, req.ItemID}).
		Set(expression.Path{attrUpdatedAt}, s.now()).
		Condition(expression.Exists(expression.Path{attrID}))

	if _, err := s.store.Update(ctx, b); err != nil {
		return s.mapWriteError("remove item", err,
			fmt.Errorf("%w: directory %s", ErrNotFound, req.DirectoryID))
	}
	return nil
}

func (s *Service) update(owner, id string) *expression.Builder {
	return expression.NewUpdate().
		Table(s.table).
		Key(attrOwner, owner).
		Key(attrID, id)
}

// mapWriteError converts a store error into this package's kinds.
// onCondition is returned when the write's condition did not hold.
func (s *Service) mapWriteError(op string, err error, onCondition error) error {
	var txErr *store.TransactionError
	switch {
	case errors.Is(err, store.ErrInvalidRequest), errors.Is(err, store.ErrTooManyWrites):
		s.logger.Error("failed to build request", "op", op, "error", err)
		return fmt.Errorf("%w: %s: %w", ErrInternalDefect, op, err)
	case errors.Is(err, store.ErrConditionFailed):
		s.logger.Debug("write condition failed", "op", op, "error", err)
		return onCondition
	case errors.As(err, &txErr) && txErr.Conflicting():
		return fmt.Errorf("%w: %s: %w", ErrConflict, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func decodeDirectory(item map[string]types.AttributeValue) (*Directory, error) {
	var dir Directory
	if err := attributevalue.UnmarshalMap(item, &dir); err != nil {
		return nil, fmt.Errorf("decode directory: %w", err)
	}
	if dir.Items == nil {
		dir.Items = Items{}
	}
	return &dir, nil
}
