// Package directory implements per-owner directory trees of games.
//
// Each owner has a tree rooted at the directory with id [HomeID]. A
// directory embeds a snapshot of each direct child in its item map: a
// [SubdirectoryItem] for a child directory, or a [GameItem] for a game.
// Listing a directory is therefore one read, and changes to a child are
// copied into its parent afterwards by the stream handler (see the cascade
// helpers on [Service]).
//
// All directories of one owner share a partition (owner + id), and every
// mutation is a single conditional write or transaction. There is no
// in-process locking and no retry loop; a write whose condition no longer
// holds fails with [ErrConflict] or [ErrNotFound] and the caller decides
// whether to retry.
//
// # Moves
//
// [Service.MoveItems] moves items between two directories of one owner.
// By default the target write, the source write and any sub-directory
// parent rewrites are submitted as one transaction. With
// Config.AtomicMoves disabled the writes are sequential, target first, and
// a failure after the first write is reported as a [*PartialMoveError].
package directory
