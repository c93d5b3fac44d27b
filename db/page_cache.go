package db

import (
	"fmt"
	"sync"
)

// cacheEntry is the PageCache's bookkeeping for one resident page (spec
// §3's CacheEntry + Page metadata bits). dirtiedBy and beforeImage live
// here, not on the Page itself, so the cache is the sole authority over
// them (spec §4.1).
type cacheEntry struct {
	page        Page
	beforeImage Page
	dirtiedBy   *TransactionId
	touch       uint64
}

// fileResolver resolves a PageId to the PageFile it belongs to, so the
// cache can fault pages in and flush them back out without knowing
// anything about tables itself. In this repo it is satisfied by
// *Catalog via FileFor.
type fileResolver interface {
	FileFor(id TableId) (TableFile, error)
}

// PageCache is a bounded, NO-STEAL page cache (spec §4.1). It never evicts
// a dirty page; admit fails with CacheFullError when every resident page is
// dirty.
type PageCache struct {
	mu       sync.Mutex
	entries  map[PageId]*cacheEntry
	capacity int
	clock    uint64
	catalog  fileResolver
	log      LogWriter
}

// NewPageCache creates a PageCache with room for capacity resident pages.
// log may be nil until SetLogWriter is called (e.g. during catalog
// bootstrap, before the log file exists yet).
func NewPageCache(capacity int, catalog fileResolver, log LogWriter) *PageCache {
	return &PageCache{
		entries:  make(map[PageId]*cacheEntry),
		capacity: capacity,
		catalog:  catalog,
		log:      log,
	}
}

// SetLogWriter wires in the write-ahead log once it has been constructed.
func (c *PageCache) SetLogWriter(log LogWriter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.log = log
}

// Admit returns the resident page for pid, reading it from its backing
// file and evicting a clean victim if necessary. Fails with
// CacheFullError if every resident page is dirty.
func (c *PageCache) Admit(pid PageId) (Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[pid]; ok {
		c.clock++
		e.touch = c.clock
		return e.page, nil
	}

	if len(c.entries) >= c.capacity {
		if err := c.evictLocked(); err != nil {
			return nil, err
		}
	}

	file, err := c.catalog.FileFor(pid.Table)
	if err != nil {
		return nil, err
	}
	page, err := file.ReadPage(pid)
	if err != nil {
		return nil, DbError{IoError, err.Error()}
	}

	c.clock++
	c.entries[pid] = &cacheEntry{
		page:        page,
		beforeImage: page.Clone(),
		dirtiedBy:   nil,
		touch:       c.clock,
	}
	return page, nil
}

// evictLocked picks the least-recently-touched clean resident page and
// removes it. Dirty pages are never evicted (NO-STEAL, spec §4.1/§8 P2).
// Caller must hold c.mu.
func (c *PageCache) evictLocked() error {
	var victim PageId
	var victimTouch uint64
	found := false
	for pid, e := range c.entries {
		if e.dirtiedBy != nil {
			continue
		}
		if !found || e.touch < victimTouch {
			victim = pid
			victimTouch = e.touch
			found = true
		}
	}
	if !found {
		return DbError{CacheFullError, "all resident pages are dirty"}
	}
	delete(c.entries, victim)
	return nil
}

// PutDirty marks page dirty on behalf of by and (re)inserts it into the
// cache, replacing whatever was resident at its id.
func (c *PageCache) PutDirty(page Page, by TransactionId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	pid := page.ID()
	c.clock++
	if e, ok := c.entries[pid]; ok {
		e.page = page
		txn := by
		e.dirtiedBy = &txn
		e.touch = c.clock
		return
	}
	txn := by
	c.entries[pid] = &cacheEntry{
		page:        page,
		beforeImage: page.Clone(),
		dirtiedBy:   &txn,
		touch:       c.clock,
	}
}

// Resident reports whether pid is currently cached.
func (c *PageCache) Resident(pid PageId) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[pid]
	return ok
}

// DirtiedBy returns the transaction that last dirtied pid, if any.
func (c *PageCache) DirtiedBy(pid PageId) (TransactionId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pid]
	if !ok || e.dirtiedBy == nil {
		return 0, false
	}
	return *e.dirtiedBy, true
}

// Flush writes a log record (before, after) and forces it, then writes the
// page to its backing file, then clears dirtiedBy. Non-dirty or
// non-resident pages are a no-op (spec §4.1).
func (c *PageCache) Flush(pid PageId) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pid]
	if !ok || e.dirtiedBy == nil {
		return nil
	}
	by := *e.dirtiedBy

	if c.log != nil {
		if err := c.log.WriteLog(by, e.beforeImage, e.page); err != nil {
			return DbError{IoError, err.Error()}
		}
		if err := c.log.Force(); err != nil {
			return DbError{IoError, err.Error()}
		}
	}

	file, err := c.catalog.FileFor(pid.Table)
	if err != nil {
		return err
	}
	if err := file.WritePage(e.page); err != nil {
		return DbError{IoError, err.Error()}
	}
	e.dirtiedBy = nil
	return nil
}

// FlushAll flushes every resident page. Used only by the admin-only
// FlushAllPages entry point (spec §6), never by eviction, since NO-STEAL
// means eviction must never write an uncommitted page.
func (c *PageCache) FlushAll() error {
	c.mu.Lock()
	pids := make([]PageId, 0, len(c.entries))
	for pid := range c.entries {
		pids = append(pids, pid)
	}
	c.mu.Unlock()

	for _, pid := range pids {
		if err := c.Flush(pid); err != nil {
			return err
		}
	}
	return nil
}

// Discard removes pid from the cache without flushing it. Used during
// abort and by B-tree page reuse.
func (c *PageCache) Discard(pid PageId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, pid)
}

// RestoreBeforeImage replaces pid's contents with its before-image and
// clears dirtiedBy, provided pid is resident and was last dirtied by by.
func (c *PageCache) RestoreBeforeImage(pid PageId, by TransactionId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pid]
	if !ok || e.dirtiedBy == nil || *e.dirtiedBy != by {
		return
	}
	e.page = e.beforeImage.Clone()
	e.dirtiedBy = nil
}

// RefreshBeforeImage sets pid's before-image to its current contents.
// Called immediately after a commit-flush (spec §3).
func (c *PageCache) RefreshBeforeImage(pid PageId) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[pid]
	if !ok {
		return
	}
	e.beforeImage = e.page.Clone()
}

// Size returns the number of resident pages (spec §8 P1).
func (c *PageCache) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *PageCache) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fmt.Sprintf("PageCache{%d/%d resident}", len(c.entries), c.capacity)
}
