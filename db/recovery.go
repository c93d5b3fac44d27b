package db

import (
	"io"
	"log"
)

// Rollback undoes every update record tid wrote to the log, discarding
// the cache's copy of each affected page and reflushing its before-image
// straight to disk. Unlike TxnCoordinator.AbortTransaction (which restores
// an in-memory before-image), Rollback is a standalone recovery tool run
// against the log alone - e.g. to undo a transaction whose pages are no
// longer resident.
func Rollback(lf *LogFile, cache *PageCache, tid TransactionId) error {
	iter, err := lf.ReverseIterator()
	if err != nil {
		return err
	}
	for record, err := iter(); record != nil; record, err = iter() {
		if err != nil {
			return err
		}
		if record.Tid() != tid {
			continue
		}
		if record.Type() == BeginRecord {
			break
		}
		if record.Type() == UpdateRecord {
			before := record.(*UpdateLogRecord).Before
			hp, ok := before.(*heapPage)
			if !ok {
				return DbError{IncompatibleTypesError, "unexpected page type in log"}
			}
			pid := PageId{Table: hp.table, PageNo: hp.pageNo}
			cache.Discard(pid)
			file, err := cache.catalog.FileFor(hp.table)
			if err != nil {
				return err
			}
			if err := file.WritePage(hp); err != nil {
				return DbError{IoError, err.Error()}
			}
		}
	}
	return lf.SeekEnd()
}

// Recover replays the log after a crash: every UpdateRecord is applied in
// forward order (REDO), then every transaction that never reached a
// Commit or Abort record (a "loser") has its updates undone in reverse
// order and is marked aborted in the log (UNDO). Recover must be called
// once at process start, even against an empty log (spec §1: NO-STEAL /
// FORCE means no redo is needed for committed transactions, but losers
// still need to be undone since FORCE only guarantees *committed* pages
// reached disk).
func Recover(lf *LogFile, cache *PageCache) error {
	if err := lf.Rewind(); err != nil {
		return err
	}

	losers := make(map[TransactionId]int64)
	iter := lf.ForwardIterator()
	for record, err := iter(); ; record, err = iter() {
		if err != nil {
			return err
		}
		if record == nil {
			break
		}
		switch record.Type() {
		case BeginRecord:
			losers[record.Tid()] = record.Offset()
		case CommitRecord, AbortRecord:
			delete(losers, record.Tid())
		case UpdateRecord:
			after := record.(*UpdateLogRecord).After
			hp, ok := after.(*heapPage)
			if !ok {
				return DbError{IncompatibleTypesError, "unexpected page type in log"}
			}
			pid := PageId{Table: hp.table, PageNo: hp.pageNo}
			log.Printf("REDO %v", pid)
			cache.Discard(pid)
			file, err := cache.catalog.FileFor(hp.table)
			if err != nil {
				return err
			}
			if err := file.WritePage(hp); err != nil {
				return DbError{IoError, err.Error()}
			}
		}
	}

	if len(losers) == 0 {
		return lf.SeekEnd()
	}

	riter, err := lf.ReverseIterator()
	if err != nil {
		return err
	}
	for record, err := riter(); len(losers) > 0; record, err = riter() {
		if err != nil {
			return err
		}
		if record == nil {
			break
		}
		tid := record.Tid()
		if _, isLoser := losers[tid]; !isLoser {
			continue
		}
		switch record.Type() {
		case UpdateRecord:
			before := record.(*UpdateLogRecord).Before
			hp, ok := before.(*heapPage)
			if !ok {
				return DbError{IncompatibleTypesError, "unexpected page type in log"}
			}
			pid := PageId{Table: hp.table, PageNo: hp.pageNo}
			log.Printf("UNDO %v", pid)
			cache.Discard(pid)
			file, err := cache.catalog.FileFor(hp.table)
			if err != nil {
				return err
			}
			if err := file.WritePage(hp); err != nil {
				return DbError{IoError, err.Error()}
			}
		case BeginRecord:
			resumeAt := lf.offset
			if err := lf.seek(0, io.SeekEnd); err != nil {
				return err
			}
			lf.LogAbort(tid)
			if err := lf.Force(); err != nil {
				return err
			}
			if err := lf.seek(resumeAt, io.SeekStart); err != nil {
				return err
			}
			delete(losers, tid)
		}
	}

	return lf.SeekEnd()
}
