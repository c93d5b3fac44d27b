package db

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// HeapFile is an unordered collection of tuples: the TableFile
// implementation this repo uses to exercise the core (spec §1's
// "external collaborators").
type HeapFile struct {
	mu            sync.Mutex
	td            *TupleDesc
	numPages      int
	backingFile   string
	lastEmptyPage int
	table         TableId
	coord         *TxnCoordinator
}

// NewHeapFile opens (or creates) fromFile as the backing store for a
// table described by td, routing all page access through coord's shared
// PageCache/LockTable.
func NewHeapFile(fromFile string, td *TupleDesc, coord *TxnCoordinator) (*HeapFile, error) {
	f, err := os.OpenFile(fromFile, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, DbError{IoError, err.Error()}
	}
	defer f.Close()
	fi, err := f.Stat()
	if err != nil {
		return nil, DbError{IoError, err.Error()}
	}
	numPages := int(fi.Size()) / GetPageSize()
	return &HeapFile{
		td:            td,
		numPages:      numPages,
		backingFile:   fromFile,
		lastEmptyPage: -1,
		coord:         coord,
	}, nil
}

// setTable is called once by Catalog.Register so the file knows its own
// TableId (needed to build PageIds).
func (f *HeapFile) setTable(id TableId) {
	f.table = id
}

func (f *HeapFile) BackingFile() string {
	return f.backingFile
}

func (f *HeapFile) NumPages() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.numPages
}

func (f *HeapFile) Descriptor() *TupleDesc {
	return f.td
}

// ReadPage reads the specified page number from disk. Called by the
// PageCache when it cannot find the page in its cache.
func (f *HeapFile) ReadPage(pid PageId) (Page, error) {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_RDONLY, 0644)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	size := GetPageSize()
	b := make([]byte, size)
	n, err := file.ReadAt(b, int64(pid.PageNo*size))
	if err != nil {
		return nil, err
	}
	if n != size {
		return nil, DbError{MalformedDataError, "not enough bytes read in ReadPage"}
	}
	pg := newHeapPage(f.td, pid.PageNo, f.table)
	if err := pg.initFromBuffer(bytes.NewBuffer(b)); err != nil {
		return nil, err
	}
	return pg, nil
}

// WritePage forces p back to its offset in the backing file. Called by
// PageCache.Flush and PageCache.FlushAll.
func (f *HeapFile) WritePage(p Page) error {
	file, err := os.OpenFile(f.backingFile, os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer file.Close()
	hp, ok := p.(*heapPage)
	if !ok {
		return DbError{IncompatibleTypesError, "HeapFile.WritePage given a non-heap page"}
	}
	var buf bytes.Buffer
	if err := hp.WriteTo(&buf); err != nil {
		return err
	}
	_, err = file.WriteAt(buf.Bytes(), int64(hp.pageNo*GetPageSize()))
	return err
}

// InsertTuple searches for a page with a free slot, reading each candidate
// under a shared lock via the coordinator and taking an exclusive lock on
// the first one with a free slot, and falls back to allocating a new page
// at the end of the file. Returns the page it dirtied.
func (f *HeapFile) InsertTuple(txn TransactionId, t *Tuple) ([]Page, error) {
	f.mu.Lock()
	start := f.lastEmptyPage
	if start < 0 {
		start = 0
	}
	endPage := f.numPages
	f.mu.Unlock()

	for p := start; p < endPage; p++ {
		pg, err := f.coord.GetPage(txn, PageId{f.table, p}, Shared)
		if err != nil {
			return nil, err
		}
		if pg.(*heapPage).getNumEmptySlots() == 0 {
			continue
		}
		pg, err = f.coord.GetPage(txn, PageId{f.table, p}, Exclusive)
		if err != nil {
			return nil, err
		}
		hp := pg.(*heapPage)
		if _, err := hp.insertTuple(t); err != nil {
			if err == errPageFull {
				continue
			}
			return nil, err
		}
		f.mu.Lock()
		f.lastEmptyPage = p
		f.mu.Unlock()
		return []Page{hp}, nil
	}

	// No free slots anywhere: allocate a new page at the end of the file.
	f.mu.Lock()
	p := f.numPages
	f.numPages++
	f.mu.Unlock()

	empty := newHeapPage(f.td, p, f.table)
	if err := f.WritePage(empty); err != nil {
		return nil, DbError{IoError, err.Error()}
	}

	pg, err := f.coord.GetPage(txn, PageId{f.table, p}, Exclusive)
	if err != nil {
		return nil, err
	}
	hp := pg.(*heapPage)
	if _, err := hp.insertTuple(t); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.lastEmptyPage = p
	f.mu.Unlock()
	return []Page{hp}, nil
}

// DeleteTuple removes t (identified by t.Rid) from its page.
func (f *HeapFile) DeleteTuple(txn TransactionId, t *Tuple) ([]Page, error) {
	if t.Rid == nil {
		return nil, DbError{TupleNotFoundError, "provided tuple has nil rid, cannot delete"}
	}
	rid, ok := t.Rid.(heapFileRid)
	if !ok {
		return nil, DbError{TupleNotFoundError, "provided tuple is not a heap file tuple"}
	}
	if rid.pageNo < 0 || rid.pageNo >= f.NumPages() {
		return nil, DbError{TupleNotFoundError, "provided tuple references a page that does not exist"}
	}

	pg, err := f.coord.GetPage(txn, PageId{f.table, rid.pageNo}, Exclusive)
	if err != nil {
		return nil, err
	}
	hp, ok := pg.(*heapPage)
	if !ok {
		return nil, DbError{IncompatibleTypesError, "cache returned non-heap page when heap page expected"}
	}
	if err := hp.deleteTuple(rid); err != nil {
		return nil, err
	}

	f.mu.Lock()
	if rid.pageNo < f.lastEmptyPage || f.lastEmptyPage < 0 {
		f.lastEmptyPage = rid.pageNo
	}
	f.mu.Unlock()

	return []Page{hp}, nil
}

// Iterator returns a function that iterates through every tuple of the
// file, reading pages through the coordinator's shared cache.
func (f *HeapFile) Iterator(txn TransactionId) (func() (*Tuple, error), error) {
	nPages := f.NumPages()
	pgNo := 0
	var pgIter func() (*Tuple, error)
	return func() (*Tuple, error) {
		for {
			if pgIter == nil {
				if pgNo == nPages {
					return nil, nil
				}
				pg, err := f.coord.GetPage(txn, PageId{f.table, pgNo}, Shared)
				if err != nil {
					return nil, err
				}
				pgIter = pg.(*heapPage).tupleIter()
				pgNo++
			}
			next, err := pgIter()
			if err != nil {
				return nil, err
			}
			if next == nil {
				pgIter = nil
				continue
			}
			return &Tuple{Desc: *f.td, Fields: next.Fields, Rid: next.Rid}, nil
		}
	}, nil
}

// LoadFromCSV loads file (a delimited text file) into the HeapFile, one
// short transaction per row so the cache never fills with dirty pages.
func (f *HeapFile) LoadFromCSV(file *os.File, hasHeader bool, sep string, skipLastField bool) error {
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		fields := strings.Split(scanner.Text(), sep)
		if skipLastField {
			fields = fields[:len(fields)-1]
		}
		if line == 1 && hasHeader {
			continue
		}
		if len(fields) != len(f.td.Fields) {
			return DbError{MalformedDataError, fmt.Sprintf(
				"LoadFromCSV: line %d does not have expected number of fields (expected %d, got %d)",
				line, len(f.td.Fields), len(fields))}
		}

		values := make([]DBValue, len(fields))
		for i, raw := range fields {
			switch f.td.Fields[i].Ftype {
			case IntType:
				v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
				if err != nil {
					return DbError{TypeMismatchError, fmt.Sprintf(
						"LoadFromCSV: couldn't convert value %s to int, line %d", raw, line)}
				}
				values[i] = IntField{int64(v)}
			case StringType:
				if len(raw) > StringLength {
					raw = raw[:StringLength]
				}
				values[i] = StringField{raw}
			}
		}

		tup := &Tuple{Desc: *f.td, Fields: values}
		txn := NewTransactionId()
		if _, err := f.InsertTuple(txn, tup); err != nil {
			return err
		}
		if err := f.coord.CommitTransaction(txn); err != nil {
			return err
		}
	}
	return nil
}
