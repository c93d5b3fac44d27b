package db

import "sync/atomic"

// TableId identifies a table registered with a Catalog. It is opaque to
// the core; Catalog.FileFor is the only thing that interprets it.
type TableId int32

// PageId identifies a (table, page-number) pair. It is comparable, so it
// can key the PageCache's resident map directly.
type PageId struct {
	Table  TableId
	PageNo int
}

// TransactionId is an opaque, unique handle minted per transaction.
type TransactionId int64

var nextTransactionId int64

// NewTransactionId mints a fresh, process-unique TransactionId. A
// TransactionId is introduced implicitly on first lock acquisition and
// discarded on commit/abort (spec §3); callers obtain one up front so it
// can be threaded through GetPage/InsertTuple/DeleteTuple calls.
func NewTransactionId() TransactionId {
	return TransactionId(atomic.AddInt64(&nextTransactionId, 1))
}

// Permission is the two-element tagged variant for lock requests (spec §9:
// "avoid boolean flags").
type Permission int

const (
	Shared Permission = iota
	Exclusive
)

func (p Permission) String() string {
	if p == Exclusive {
		return "Exclusive"
	}
	return "Shared"
}
