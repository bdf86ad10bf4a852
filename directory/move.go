package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/directories/expression"
	"github.com/jacentio/directories/store"
)

// MoveResult describes a completed move.
type MoveResult struct {
	// Source is the source directory with the moved items removed.
	Source *Directory `json:"source"`

	// Moved holds the moved items as they were written to the target.
	Moved []Item `json:"moved"`
}

// MoveItems moves items from one directory to another of the same owner.
//
// Every requested item must be in the source. Moved sub-directories get
// their parent rewritten, and a directory can't be moved into its own
// subtree. With AtomicMoves every write is one transaction; otherwise the
// target is written first and a failure afterwards returns a
// *PartialMoveError, leaving the items in both directories.
func (s *Service) MoveItems(ctx context.Context, caller string, req MoveRequest) (*MoveResult, error) {
	if err := req.normalize(s.config.MaxMoveItems); err != nil {
		return nil, err
	}
	owner, err := authorize(caller, req.Owner)
	if err != nil {
		return nil, err
	}

	raw, err := s.store.Get(ctx, s.table, directoryKey(owner, req.Source))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: directory %s", ErrNotFound, req.Source)
	}
	if err != nil {
		return nil, fmt.Errorf("move items: %w", err)
	}
	source, err := decodeDirectory(raw)
	if err != nil {
		return nil, err
	}

	moved := make([]Item, 0, len(req.Items))
	movedDirs := make(map[string]bool)
	for _, id := range req.Items {
		item, ok := source.Items[id]
		if !ok {
			return nil, fmt.Errorf("%w: item %s in directory %s", ErrNotFound, id, req.Source)
		}
		if item.ItemType() == ItemDirectory {
			movedDirs[id] = true
		}
		moved = append(moved, item)
	}
	if len(movedDirs) > 0 {
		if err := s.checkNotDescendant(ctx, owner, req.Target, movedDirs); err != nil {
			return nil, err
		}
	}

	now := s.now()
	add := s.update(owner, req.Target).
		Condition(expression.Exists(expression.Path{attrID}))
	remove := s.update(owner, req.Source)
	removeConds := []expression.Condition{expression.Exists(expression.Path{attrID})}
	var reparent []*expression.Builder

	for _, item := range moved {
		add.Set(expression.Path{attrItems, item.ItemID()}, item)
		remove.Remove(expression.Path{attrItems, item.ItemID()})
		removeConds = append(removeConds, expression.Exists(expression.Path{attrItems, item.ItemID()}))
		if item.ItemType() == ItemDirectory {
			reparent = append(reparent, s.update(owner, item.ItemID()).
				Set(expression.Path{attrParent}, req.Target).
				Set(expression.Path{attrUpdatedAt}, now).
				Condition(expression.Exists(expression.Path{attrID})))
		}
	}
	add.Set(expression.Path{attrUpdatedAt}, now)
	remove.Set(expression.Path{attrUpdatedAt}, now).
		Condition(expression.And(removeConds...))

	if s.config.AtomicMoves {
		err = s.moveAtomic(ctx, req, add, remove, reparent)
	} else {
		err = s.moveSequential(ctx, owner, req, add, remove, reparent)
	}
	if err != nil {
		return nil, err
	}

	for _, id := range req.Items {
		delete(source.Items, id)
	}
	source.UpdatedAt = now

	s.logger.Info("moved items",
		"owner", owner,
		"source", req.Source,
		"target", req.Target,
		"itemCount", len(moved),
		"atomic", s.config.AtomicMoves,
	)
	return &MoveResult{Source: source, Moved: moved}, nil
}

func (s *Service) moveAtomic(ctx context.Context, req MoveRequest, add, remove *expression.Builder, reparent []*expression.Builder) error {
	writes := append([]*expression.Builder{add, remove}, reparent...)
	err := s.store.Transact(ctx, writes...)

	var txErr *store.TransactionError
	if errors.As(err, &txErr) {
		switch {
		case txErr.Index == 0:
			return fmt.Errorf("%w: directory %s", ErrNotFound, req.Target)
		case txErr.Index == 1:
			return fmt.Errorf("%w: directory %s changed during the move", ErrConflict, req.Source)
		case txErr.Index > 1:
			return fmt.Errorf("%w: a moved sub-directory no longer exists", ErrConflict)
		}
	}
	if err != nil {
		return s.mapWriteError("move items", err, ErrConflict)
	}
	return nil
}

// moveSequential adds before it removes so that a failure part way leaves
// duplicates rather than orphans.
func (s *Service) moveSequential(ctx context.Context, owner string, req MoveRequest, add, remove *expression.Builder, reparent []*expression.Builder) error {
	if _, err := s.store.Update(ctx, add); err != nil {
		return s.mapWriteError("move items", err,
			fmt.Errorf("%w: directory %s", ErrNotFound, req.Target))
	}

	for _, b := range append([]*expression.Builder{remove}, reparent...) {
		if _, err := s.store.Update(ctx, b); err != nil {
			partial := &PartialMoveError{
				Owner:  owner,
				Source: req.Source,
				Target: req.Target,
				Items:  req.Items,
				cause:  err,
			}
			s.logger.Warn("move partially applied",
				"owner", owner,
				"source", req.Source,
				"target", req.Target,
				"error", err,
			)
			return partial
		}
	}
	return nil
}

// checkNotDescendant walks up from target and fails if it passes through
// one of the directories being moved.
func (s *Service) checkNotDescendant(ctx context.Context, owner, target string, moving map[string]bool) error {
	cur := target
	for depth := 0; depth < s.config.MaxDepth; depth++ {
		if moving[cur] {
			return invalidf("directory %s cannot be moved into its own subdirectory %s", cur, target)
		}
		if cur == HomeID {
			return nil
		}

		raw, err := s.store.Get(ctx, s.table, directoryKey(owner, cur))
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: directory %s", ErrNotFound, cur)
		}
		if err != nil {
			return fmt.Errorf("move items: %w", err)
		}
		dir, err := decodeDirectory(raw)
		if err != nil {
			return err
		}
		if !dir.HasParent() {
			return nil
		}
		cur = dir.Parent
	}
	return invalidf("directory %s is nested deeper than %d levels", target, s.config.MaxDepth)
}
