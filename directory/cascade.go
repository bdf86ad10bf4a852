package directory

import (
	"context"
	"errors"

	"golang.org/x/sync/errgroup"

	"github.com/jacentio/directories/expression"
	"github.com/jacentio/directories/store"
)

// cascadeConcurrency bounds parallel deletes of sibling sub-directories.
const cascadeConcurrency = 8

// The helpers below keep embedded parent entries consistent after a
// directory changes. They run from the stream handler, so they are
// idempotent: a failed condition means the work was already done or is no
// longer needed, and is not an error.

// RemoveFromParent removes dir's entry from its parent directory.
func (s *Service) RemoveFromParent(ctx context.Context, dir *Directory) error {
	if dir.IsHome() || !dir.HasParent() {
		return nil
	}

	b := s.update(dir.Owner, dir.Parent).
		Remove(expression.Path{attrItems, dir.ID}).
		Set(expression.Path{attrUpdatedAt}, s.now()).
		Condition(expression.And(
			expression.Exists(expression.Path{attrID}),
			expression.Exists(expression.Path{attrItems, dir.ID}),
		))

	_, err := s.store.Update(ctx, b)
	if errors.Is(err, store.ErrConditionFailed) {
		s.logger.Debug("parent entry already gone",
			"owner", dir.Owner,
			"directoryId", dir.ID,
			"parent", dir.Parent,
		)
		return nil
	}
	if err != nil {
		return s.mapWriteError("remove from parent", err, nil)
	}
	return nil
}

// DeleteSubdirectories deletes every sub-directory of dir and returns how
// many were deleted. Each deletion produces its own stream event, so the
// whole subtree is removed one level at a time.
func (s *Service) DeleteSubdirectories(ctx context.Context, dir *Directory) (int, error) {
	subs := dir.Subdirectories()
	if len(subs) == 0 {
		return 0, nil
	}

	deleted := make([]bool, len(subs))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cascadeConcurrency)

	for i, sub := range subs {
		i, sub := i, sub // per-iteration copies (go.mod targets go 1.21)
		g.Go(func() error {
			cond := expression.And(
				expression.Exists(expression.Path{attrID}),
				expression.NotEqual(expression.Path{attrID}, HomeID),
			)
			_, err := s.store.Delete(ctx, s.table, directoryKey(dir.Owner, sub.ID), cond)
			if errors.Is(err, store.ErrConditionFailed) {
				return nil
			}
			if err != nil {
				return s.mapWriteError("delete subdirectory "+sub.ID, err, nil)
			}
			deleted[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	n := 0
	for _, ok := range deleted {
		if ok {
			n++
		}
	}
	return n, nil
}

// SyncParentEntry rewrites the entry dir's parent holds for it. An entry
// that is no longer there is not recreated.
func (s *Service) SyncParentEntry(ctx context.Context, dir *Directory) error {
	if dir.IsHome() || !dir.HasParent() {
		return nil
	}

	b := s.update(dir.Owner, dir.Parent).
		Set(expression.Path{attrItems, dir.ID}, dir.AsItem()).
		Set(expression.Path{attrUpdatedAt}, s.now()).
		Condition(expression.And(
			expression.Exists(expression.Path{attrID}),
			expression.Exists(expression.Path{attrItems, dir.ID}),
		))

	_, err := s.store.Update(ctx, b)
	if errors.Is(err, store.ErrConditionFailed) {
		s.logger.Debug("parent entry missing, not synced",
			"owner", dir.Owner,
			"directoryId", dir.ID,
			"parent", dir.Parent,
		)
		return nil
	}
	if err != nil {
		return s.mapWriteError("sync parent entry", err, nil)
	}
	return nil
}
