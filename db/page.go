package db

import "io"

// Page is the unit the PageCache, LockTable, and TxnCoordinator operate on.
// Concrete collaborators (heapPage is the only one in this repo) decide how
// their PageSize-byte contents are laid out; the core only needs to be able
// to identify a page, copy it, and serialize it.
//
// Clone must return a deep copy sharing no storage with the receiver: the
// cache relies on Clone to take independent before-image snapshots (spec
// §9, "before-image storage... never share storage with the live page
// buffer").
type Page interface {
	ID() PageId
	Clone() Page
	WriteTo(w io.Writer) error
}

// PageFile is what a collaborator (typically a TableFile) exposes so the
// PageCache can fault pages in and flush them back out.
type PageFile interface {
	ReadPage(pid PageId) (Page, error)
	WritePage(p Page) error
}

// LogWriter is the write-ahead logging interface the core consumes but
// does not implement (spec §1): "the core emits log records and
// before-images and consumes a write_log(before, after); force() interface;
// it does not implement the log."
type LogWriter interface {
	WriteLog(txn TransactionId, before, after Page) error
	Force() error
}
