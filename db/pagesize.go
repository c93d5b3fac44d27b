package db

import "sync/atomic"

// defaultPageSize is the page size used by every page file unless a test
// overrides it with SetPageSize.
const defaultPageSize = 4096

var pageSize int64 = defaultPageSize

// GetPageSize returns the process-wide page size, in bytes.
func GetPageSize() int {
	return int(atomic.LoadInt64(&pageSize))
}

// SetPageSize overrides the process-wide page size, e.g. so a test can
// exercise small pages (forcing multiple HeapFile pages with a handful of
// tuples). Production code never calls this.
func SetPageSize(size int) {
	atomic.StoreInt64(&pageSize, int64(size))
}

// ResetPageSize restores the default 4096-byte page size.
func ResetPageSize() {
	atomic.StoreInt64(&pageSize, defaultPageSize)
}
