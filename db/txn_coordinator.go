package db

import "sync"

// TxnCoordinator drives get/insert/delete/commit/abort, orchestrating
// before-image capture, log emission, and rollback across a PageCache and
// a LockTable (spec §4.3). It is the only thing access methods and
// operators talk to (spec §6).
type TxnCoordinator struct {
	cache   *PageCache
	locks   *LockTable
	catalog *Catalog

	mu       sync.Mutex
	finished map[TransactionId]struct{}
}

// NewTxnCoordinator composes cache, locks, and catalog. None of the three
// reference each other directly (spec §9: "cyclic references... are
// avoided"); the coordinator is where they meet.
func NewTxnCoordinator(cache *PageCache, locks *LockTable, catalog *Catalog) *TxnCoordinator {
	return &TxnCoordinator{
		cache:    cache,
		locks:    locks,
		catalog:  catalog,
		finished: make(map[TransactionId]struct{}),
	}
}

// GetPage admits pid into the cache (failing fast if the cache is full of
// dirty pages before any waiting happens), then blocks until mode is
// granted on pid or a deadlock aborts the transaction (spec §4.3: "lock
// acquisition happens after admission").
//
// Because NO-STEAL only protects dirty pages from eviction, a clean page
// this transaction is about to read could be evicted by someone else while
// it sleeps waiting for the lock; GetPage re-admits after the lock is
// granted so the page returned is guaranteed to be the currently resident
// one (see DESIGN.md, Open Question 5).
func (tc *TxnCoordinator) GetPage(txn TransactionId, pid PageId, mode Permission) (Page, error) {
	if _, err := tc.cache.Admit(pid); err != nil {
		return nil, err
	}
	if err := tc.locks.Acquire(txn, pid, mode); err != nil {
		return nil, err
	}
	return tc.cache.Admit(pid)
}

// ReleasePage exposes raw lock release for advanced callers (e.g. B-tree
// page reuse that needs to drop a lock before a transaction commits). This
// bypasses normal 2PL discipline and is unsafe for general use (spec §4.3).
func (tc *TxnCoordinator) ReleasePage(txn TransactionId, pid PageId) {
	tc.locks.Release(txn, pid)
}

// HoldsLock reports whether txn currently holds any lock on pid.
func (tc *TxnCoordinator) HoldsLock(txn TransactionId, pid PageId) bool {
	return tc.locks.Holds(txn, pid)
}

// InsertTuple delegates to table's access method, which is expected to
// acquire write locks on whatever pages it touches via GetPage, and marks
// each page it returns dirty on behalf of txn.
func (tc *TxnCoordinator) InsertTuple(txn TransactionId, table TableId, tuple *Tuple) error {
	file, err := tc.catalog.FileFor(table)
	if err != nil {
		return err
	}
	dirtied, err := file.InsertTuple(txn, tuple)
	if err != nil {
		return err
	}
	for _, p := range dirtied {
		tc.cache.PutDirty(p, txn)
	}
	return nil
}

// DeleteTuple is symmetric to InsertTuple, but per spec §6 takes no
// explicit table_id: it resolves tuple's table from its recordID and
// delegates to that table's access method.
func (tc *TxnCoordinator) DeleteTuple(txn TransactionId, tuple *Tuple) error {
	table, err := tableOf(tuple)
	if err != nil {
		return err
	}
	file, err := tc.catalog.FileFor(table)
	if err != nil {
		return err
	}
	dirtied, err := file.DeleteTuple(txn, tuple)
	if err != nil {
		return err
	}
	for _, p := range dirtied {
		tc.cache.PutDirty(p, txn)
	}
	return nil
}

// CommitTransaction flushes every page txn dirtied (log first, then the
// page, then a fresh before-image per the FORCE policy, spec §4.3's
// "ordering guarantee at commit"), then releases every lock txn holds.
// Idempotent: a second call after commit or abort is a no-op (spec §8 R1,
// R2).
func (tc *TxnCoordinator) CommitTransaction(txn TransactionId) error {
	if tc.markFinished(txn) {
		return nil
	}
	for _, pid := range tc.locks.Pages(txn) {
		if !tc.cache.Resident(pid) {
			continue
		}
		if err := tc.cache.Flush(pid); err != nil {
			return err
		}
		tc.cache.RefreshBeforeImage(pid)
	}
	tc.locks.ReleaseAll(txn)
	return nil
}

// AbortTransaction restores txn's before-image on every page it dirtied
// that is still resident, then releases every lock txn holds. Idempotent
// (spec §8 R1, R2).
func (tc *TxnCoordinator) AbortTransaction(txn TransactionId) error {
	if tc.markFinished(txn) {
		return nil
	}
	for _, pid := range tc.locks.Pages(txn) {
		if !tc.cache.Resident(pid) {
			continue
		}
		if by, ok := tc.cache.DirtiedBy(pid); ok && by == txn {
			tc.cache.RestoreBeforeImage(pid, txn)
		}
	}
	tc.locks.ReleaseAll(txn)
	return nil
}

// markFinished records txn as committed/aborted, returning true if it was
// already finished (making the caller's operation a no-op).
func (tc *TxnCoordinator) markFinished(txn TransactionId) (alreadyDone bool) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	if _, ok := tc.finished[txn]; ok {
		return true
	}
	tc.finished[txn] = struct{}{}
	return false
}

// FlushAllPages flushes every resident page (admin only, spec §6). Not
// used during normal operation and never used by eviction.
func (tc *TxnCoordinator) FlushAllPages() error {
	return tc.cache.FlushAll()
}

// DiscardPage removes pid from the cache without flushing it (recovery /
// B-tree page reuse, spec §6).
func (tc *TxnCoordinator) DiscardPage(pid PageId) {
	tc.cache.Discard(pid)
}

// Catalog returns the catalog this coordinator was constructed with, so
// collaborators that only have a *TxnCoordinator handy (e.g. HeapFile) can
// still resolve other tables if they ever need to.
func (tc *TxnCoordinator) Catalog() *Catalog {
	return tc.catalog
}
