package db

import (
	"bytes"
	"io"
	"sync"
)

// fakePage is a minimal Page used to exercise PageCache and LockTable
// without pulling in the heap file layout.
type fakePage struct {
	pid   PageId
	value int
}

func (p *fakePage) ID() PageId { return p.pid }

func (p *fakePage) Clone() Page {
	return &fakePage{pid: p.pid, value: p.value}
}

func (p *fakePage) WriteTo(w io.Writer) error {
	_, err := w.Write([]byte{byte(p.value)})
	return err
}

// fakeFile is a PageFile backed by an in-memory map, standing in for a
// HeapFile in tests that only care about cache/lock behavior.
type fakeFile struct {
	mu    sync.Mutex
	pages map[int]int // pageNo -> value
	table TableId
}

func newFakeFile(table TableId) *fakeFile {
	return &fakeFile{pages: make(map[int]int), table: table}
}

func (f *fakeFile) ReadPage(pid PageId) (Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &fakePage{pid: pid, value: f.pages[pid.PageNo]}, nil
}

func (f *fakeFile) WritePage(p Page) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	fp := p.(*fakePage)
	f.pages[fp.pid.PageNo] = fp.value
	return nil
}

// fakeCatalog is a fileResolver over a fixed set of fakeFiles, avoiding any
// dependency on the on-disk Catalog format in cache/lock-focused tests.
type fakeCatalog struct {
	files map[TableId]TableFile
}

func (c *fakeCatalog) FileFor(id TableId) (TableFile, error) {
	f, ok := c.files[id]
	if !ok {
		return nil, DbError{GenericError, "no such table"}
	}
	return f, nil
}

// fakeFile only needs to satisfy PageFile for fileResolver's purposes; wrap
// it as a TableFile with the remaining methods unused in these tests.
func (f *fakeFile) Descriptor() *TupleDesc { return &TupleDesc{} }
func (f *fakeFile) InsertTuple(txn TransactionId, t *Tuple) ([]Page, error) {
	return nil, nil
}
func (f *fakeFile) DeleteTuple(txn TransactionId, t *Tuple) ([]Page, error) {
	return nil, nil
}
func (f *fakeFile) Iterator(txn TransactionId) (func() (*Tuple, error), error) {
	return func() (*Tuple, error) { return nil, nil }, nil
}

// recordingLog implements LogWriter, recording each call's order so tests
// can assert the WAL is written (and forced) before the page itself.
type recordingLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *recordingLog) WriteLog(txn TransactionId, before, after Page) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "write")
	return nil
}

func (l *recordingLog) Force() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, "force")
	return nil
}

func (l *recordingLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, len(l.calls))
	copy(out, l.calls)
	return out
}

// sliceOp is an Operator over a fixed, in-memory slice of tuples, used to
// feed the other operators in tests without a real TableFile.
type sliceOp struct {
	desc   *TupleDesc
	tuples []*Tuple
}

func (s *sliceOp) Descriptor() *TupleDesc { return s.desc }

func (s *sliceOp) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	i := 0
	return func() (*Tuple, error) {
		if i >= len(s.tuples) {
			return nil, nil
		}
		t := s.tuples[i]
		i++
		return t, nil
	}, nil
}

// recordingFile wraps a fakeFile's WritePage so tests can see whether it
// happened, and in what order relative to the log.
type recordingFile struct {
	*fakeFile
	log    *recordingLog
	onDisk *bytes.Buffer
}

func (f *recordingFile) WritePage(p Page) error {
	f.log.mu.Lock()
	f.log.calls = append(f.log.calls, "disk")
	f.log.mu.Unlock()
	return f.fakeFile.WritePage(p)
}
