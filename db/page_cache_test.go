package db

import "testing"

func TestPageCacheEvictionOnlyPicksCleanPages(t *testing.T) {
	table := TableId(0)
	file := newFakeFile(table)
	catalog := &fakeCatalog{files: map[TableId]TableFile{table: file}}
	cache := NewPageCache(2, catalog, nil)

	pidA := PageId{Table: table, PageNo: 0}
	pidB := PageId{Table: table, PageNo: 1}
	pidC := PageId{Table: table, PageNo: 2}

	pageA, err := cache.Admit(pidA)
	if err != nil {
		t.Fatalf("admit A: %v", err)
	}
	if _, err := cache.Admit(pidB); err != nil {
		t.Fatalf("admit B: %v", err)
	}

	// dirty A; only B is a clean eviction candidate
	cache.PutDirty(pageA, 1)

	if _, err := cache.Admit(pidC); err != nil {
		t.Fatalf("admit C should evict clean B: %v", err)
	}
	if !cache.Resident(pidA) {
		t.Fatalf("dirty page A must never be evicted")
	}
	if cache.Resident(pidB) {
		t.Fatalf("clean page B should have been evicted to make room for C")
	}
}

func TestPageCacheFullWhenAllDirty(t *testing.T) {
	table := TableId(0)
	file := newFakeFile(table)
	catalog := &fakeCatalog{files: map[TableId]TableFile{table: file}}
	cache := NewPageCache(1, catalog, nil)

	pidA := PageId{Table: table, PageNo: 0}
	pidB := PageId{Table: table, PageNo: 1}

	pageA, err := cache.Admit(pidA)
	if err != nil {
		t.Fatalf("admit A: %v", err)
	}
	cache.PutDirty(pageA, 1)

	_, err = cache.Admit(pidB)
	if !IsCacheFull(err) {
		t.Fatalf("expected CacheFullError, got %v", err)
	}
}

func TestPageCacheCommitFlushesLogBeforeDisk(t *testing.T) {
	table := TableId(0)
	base := newFakeFile(table)
	log := &recordingLog{}
	rf := &recordingFile{fakeFile: base, log: log}
	catalog := &fakeCatalog{files: map[TableId]TableFile{table: rf}}
	cache := NewPageCache(4, catalog, log)

	pid := PageId{Table: table, PageNo: 0}
	page, err := cache.Admit(pid)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	page.(*fakePage).value = 7
	cache.PutDirty(page, 1)

	if err := cache.Flush(pid); err != nil {
		t.Fatalf("flush: %v", err)
	}

	calls := log.snapshot()
	if len(calls) != 3 || calls[0] != "write" || calls[1] != "force" || calls[2] != "disk" {
		t.Fatalf("expected [write force disk] ordering, got %v", calls)
	}
	if by, dirty := cache.DirtiedBy(pid); dirty {
		t.Fatalf("page should be clean after flush, still dirtied by %v", by)
	}
}

func TestPageCacheAbortRestoresBeforeImage(t *testing.T) {
	table := TableId(0)
	file := newFakeFile(table)
	catalog := &fakeCatalog{files: map[TableId]TableFile{table: file}}
	cache := NewPageCache(4, catalog, nil)

	pid := PageId{Table: table, PageNo: 0}
	page, err := cache.Admit(pid)
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	original := page.(*fakePage).value

	page.(*fakePage).value = 99
	cache.PutDirty(page, 1)

	cache.RestoreBeforeImage(pid, 1)

	restored, err := cache.Admit(pid)
	if err != nil {
		t.Fatalf("re-admit: %v", err)
	}
	if restored.(*fakePage).value != original {
		t.Fatalf("expected restored value %d, got %d", original, restored.(*fakePage).value)
	}
	if _, dirty := cache.DirtiedBy(pid); dirty {
		t.Fatalf("page should be clean after restoring its before-image")
	}
}
