// Package store provides the DynamoDB access layer for directories.
//
// The Store is intentionally thin: every mutation arrives as an
// [expression.Builder] (or a rendered [expression.Condition]) and the Store's
// job is executing it and translating DynamoDB's failure shapes into errors
// callers can branch on.
//
// # Concurrency
//
// There is no in-process locking. Concurrent writers are serialized by
// DynamoDB's conditional writes: a write whose condition no longer holds is
// rejected by DynamoDB and surfaces as [ErrConditionFailed]. Multi-item
// changes that must be atomic go through [Store.Transact].
//
// # Errors
//
//   - [ErrNotFound] - item doesn't exist
//   - [ErrConditionFailed] - a single-item condition did not hold
//   - [TransactionError] - a transaction was canceled; Index names the write
//   - [ErrInvalidRequest] - the builder could not produce a request (caller bug)
//   - [ErrTooManyWrites] - more than [MaxTransactItems] writes in one transaction
package store
