package db

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

/*
log.go implements the write-ahead log the core consumes through the
LogWriter interface (spec §1, §4.1, §4.3) but does not itself implement.

The log is a sequence of variable-length records:

	+--------------------------------------------------------+
	| Record type (1 byte)                                   |
	+--------------------------------------------------------+
	| Transaction ID (8 bytes)                                |
	+--------------------------------------------------------+
	| Record body (variable length)                          |
	+--------------------------------------------------------+
	| Offset (8 bytes)                                        |
	+--------------------------------------------------------+

Begin/Commit/Abort records have an empty body. Update records carry the
before and after page images, each prefixed with the table id and page
number so a page can be located and reconstructed on recovery.
*/

type LogRecordType int8

const (
	BeginRecord LogRecordType = iota
	CommitRecord
	AbortRecord
	UpdateRecord
)

func (t LogRecordType) String() string {
	switch t {
	case BeginRecord:
		return "begin"
	case CommitRecord:
		return "commit"
	case AbortRecord:
		return "abort"
	case UpdateRecord:
		return "update"
	default:
		return "unknown"
	}
}

// LogFile is the concrete LogWriter backing this repo's TxnCoordinator.
type LogFile struct {
	file    *os.File
	buf     bytes.Buffer
	offset  int64
	catalog *Catalog
}

// NewLogFile opens (or creates) fileName as the backing store for the WAL.
func NewLogFile(fileName string, catalog *Catalog) (*LogFile, error) {
	if catalog == nil {
		return nil, fmt.Errorf("catalog must be non-nil")
	}
	file, err := os.OpenFile(fileName, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, err
	}
	return &LogFile{file: file, catalog: catalog}, nil
}

func (w *LogFile) write(data any) {
	binary.Write(&w.buf, binary.LittleEndian, data)
	w.offset += int64(binary.Size(data))
}

// Force flushes buffered writes to the OS and fsyncs, satisfying the
// "write_log(before, after); force()" contract spec §1 requires.
func (w *LogFile) Force() error {
	if w.buf.Len() == 0 {
		return nil
	}
	if _, err := w.file.Write(w.buf.Bytes()); err != nil {
		return err
	}
	w.buf.Reset()
	return w.file.Sync()
}

func (w *LogFile) seek(offset int64, whence int) error {
	if err := w.Force(); err != nil {
		return err
	}
	n, err := w.file.Seek(offset, whence)
	if err != nil {
		return fmt.Errorf("invalid seek (%d, %d): %w", offset, whence, err)
	}
	w.offset = n
	return nil
}

func (w *LogFile) read(data any) error {
	if err := w.Force(); err != nil {
		return err
	}
	if err := binary.Read(w.file, binary.LittleEndian, data); err != nil {
		return err
	}
	w.offset += int64(binary.Size(data))
	return nil
}

func (w *LogFile) writeHeader(typ LogRecordType, tid TransactionId) {
	w.write(int8(typ))
	w.write(int64(tid))
}

func (w *LogFile) writeFooter(offset int64) {
	w.write(offset)
}

func (w *LogFile) writePage(page Page) error {
	hp, ok := page.(*heapPage)
	if !ok {
		return fmt.Errorf("unsupported page type: %T", page)
	}
	w.write(int32(hp.table))
	w.write(int32(hp.pageNo))
	var buf bytes.Buffer
	if err := hp.WriteTo(&buf); err != nil {
		return err
	}
	w.write(buf.Bytes())
	return nil
}

func (w *LogFile) readPage() (Page, error) {
	var tableId, pageNo int32
	if err := w.read(&tableId); err != nil {
		return nil, err
	}
	if err := w.read(&pageNo); err != nil {
		return nil, err
	}
	tf, err := w.catalog.FileFor(TableId(tableId))
	if err != nil {
		return nil, err
	}
	pg := newHeapPage(tf.Descriptor(), int(pageNo), TableId(tableId))
	buf := make([]byte, GetPageSize())
	if err := w.read(buf); err != nil {
		return nil, err
	}
	if err := pg.initFromBuffer(bytes.NewBuffer(buf)); err != nil {
		return nil, err
	}
	return pg, nil
}

// LogBegin records that tid has started.
func (w *LogFile) LogBegin(tid TransactionId) {
	offset := w.offset
	w.writeHeader(BeginRecord, tid)
	w.writeFooter(offset)
}

// LogCommit records that tid has committed.
func (w *LogFile) LogCommit(tid TransactionId) {
	offset := w.offset
	w.writeHeader(CommitRecord, tid)
	w.write(offset)
}

// LogAbort records that tid has aborted.
func (w *LogFile) LogAbort(tid TransactionId) {
	offset := w.offset
	w.writeHeader(AbortRecord, tid)
	w.write(offset)
}

// WriteLog implements LogWriter: it appends an update record capturing
// before and after images of a page tid just dirtied. It does not force
// the log; callers (PageCache.Flush) do that separately.
func (w *LogFile) WriteLog(tid TransactionId, before, after Page) error {
	if before == nil || after == nil {
		return fmt.Errorf("before and after images must be non-nil")
	}
	offset := w.offset
	w.writeHeader(UpdateRecord, tid)
	if err := w.writePage(before); err != nil {
		return err
	}
	if err := w.writePage(after); err != nil {
		return err
	}
	w.write(offset)
	return nil
}

// LogRecord is the interface satisfied by every record the log's
// iterators yield.
type LogRecord interface {
	Offset() int64
	Type() LogRecordType
	Tid() TransactionId
}

type genericLogRecord struct {
	offset int64
	typ    LogRecordType
	tid    TransactionId
}

func (r genericLogRecord) Offset() int64        { return r.offset }
func (r genericLogRecord) Type() LogRecordType  { return r.typ }
func (r genericLogRecord) Tid() TransactionId   { return r.tid }

// UpdateLogRecord is the LogRecord variant carrying before/after page
// images.
type UpdateLogRecord struct {
	genericLogRecord
	Before Page
	After  Page
}

// ForwardIterator returns a function that reads records from the current
// offset forward, returning nil, nil at end of file.
func (w *LogFile) ForwardIterator() func() (LogRecord, error) {
	partial := func(msg string, err error) (LogRecord, error) {
		return nil, fmt.Errorf("failed to read %s: partial record at offset %d: %w", msg, w.offset, err)
	}
	return func() (LogRecord, error) {
		var record genericLogRecord
		var ret LogRecord = &record
		record.offset = w.offset

		var typ int8
		if err := w.read(&typ); err != nil {
			if err == io.EOF {
				return nil, nil
			}
			return partial("record type", err)
		}
		record.typ = LogRecordType(typ)

		var tid int64
		if err := w.read(&tid); err != nil {
			return partial("transaction id", err)
		}
		record.tid = TransactionId(tid)

		if record.typ == UpdateRecord {
			var update UpdateLogRecord
			update.genericLogRecord = record
			var err error
			if update.Before, err = w.readPage(); err != nil {
				return partial("before page", err)
			}
			if update.After, err = w.readPage(); err != nil {
				return partial("after page", err)
			}
			ret = &update
		}

		var recordOffset int64
		if err := w.read(&recordOffset); err != nil || recordOffset != record.offset {
			return partial("offset footer", err)
		}
		return ret, nil
	}
}

// ReverseIterator returns a function that reads records from the end of
// the file backward, using each record's trailing offset footer to find
// the start of the previous record.
func (w *LogFile) ReverseIterator() (func() (LogRecord, error), error) {
	if err := w.seek(0, io.SeekEnd); err != nil {
		return nil, err
	}
	return func() (LogRecord, error) {
		if w.offset < 8 {
			return nil, nil
		}
		if err := w.seek(-8, io.SeekCurrent); err != nil {
			return nil, err
		}
		var offset int64
		if err := w.read(&offset); err != nil {
			return nil, err
		}
		if err := w.seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		record, err := w.ForwardIterator()()
		if err != nil {
			return nil, err
		}
		if err := w.seek(offset, io.SeekStart); err != nil {
			return nil, err
		}
		return record, nil
	}, nil
}

// Rewind seeks the log back to its start, e.g. before running recovery.
func (w *LogFile) Rewind() error {
	return w.seek(0, io.SeekStart)
}

// SeekEnd seeks the log to its end, e.g. after recovery finishes.
func (w *LogFile) SeekEnd() error {
	return w.seek(0, io.SeekEnd)
}

// Offset returns the log's logical write position.
func (w *LogFile) Offset() int64 {
	return w.offset
}
