package db

import (
	"bytes"
	"encoding/binary"
	"io"
)

// heapFileRid identifies a tuple's slot within a HeapFile page. It embeds
// the table id so TxnCoordinator.DeleteTuple can resolve which table a
// tuple belongs to from the tuple alone, matching spec §6's external
// interface shape for delete_tuple(txn, tuple) (no separate table_id
// parameter, unlike insert_tuple).
type heapFileRid struct {
	table  TableId
	pageNo int
	slotNo int
}

// tableOf resolves the table t belongs to from its recordID. Every
// TableFile implementation in this repo is a HeapFile, so heapFileRid is
// the only recordID shape it needs to understand.
func tableOf(t *Tuple) (TableId, error) {
	rid, ok := t.Rid.(heapFileRid)
	if !ok {
		return 0, DbError{TupleNotFoundError, "tuple has no resolvable recordID"}
	}
	return rid.table, nil
}

// heapPage implements Page for HeapFile-backed tables. Unlike the
// teacher's version, it no longer tracks its own dirty bit or
// before-image: the PageCache owns both (spec §4.1), so heapPage only
// needs to know how to serialize/deserialize/clone itself.
type heapPage struct {
	desc     TupleDesc
	numSlots int32
	numUsed  int32
	tuples   []*Tuple
	pageNo   int
	table    TableId
}

var errPageFull = DbError{PageFullError, "page is full"}

func newHeapPage(desc *TupleDesc, pageNo int, table TableId) *heapPage {
	numSlots := int32((GetPageSize() - 8) / desc.bytesPerTuple())
	return &heapPage{
		desc:     *desc,
		numSlots: numSlots,
		numUsed:  0,
		tuples:   make([]*Tuple, numSlots),
		pageNo:   pageNo,
		table:    table,
	}
}

func (h *heapPage) ID() PageId {
	return PageId{Table: h.table, PageNo: h.pageNo}
}

// Clone returns a deep copy sharing no storage with h, as required by
// Page (spec §9: before-images must be owned copies).
func (h *heapPage) Clone() Page {
	cp := &heapPage{
		desc:     h.desc,
		numSlots: h.numSlots,
		numUsed:  h.numUsed,
		tuples:   make([]*Tuple, len(h.tuples)),
		pageNo:   h.pageNo,
		table:    h.table,
	}
	for i, t := range h.tuples {
		if t == nil {
			continue
		}
		fields := make([]DBValue, len(t.Fields))
		copy(fields, t.Fields)
		cp.tuples[i] = &Tuple{Desc: t.Desc, Fields: fields, Rid: t.Rid}
	}
	return cp
}

func (h *heapPage) getNumEmptySlots() int {
	return int(h.numSlots - h.numUsed)
}

func (h *heapPage) getNumSlots() int {
	return int(h.numSlots)
}

// insertTuple places t into the first free slot, returning its recordID.
func (h *heapPage) insertTuple(t *Tuple) (recordID, error) {
	for i := 0; i < int(h.numSlots); i++ {
		if h.tuples[i] == nil {
			h.tuples[i] = t
			h.numUsed++
			t.Rid = heapFileRid{h.table, h.pageNo, i}
			return t.Rid, nil
		}
	}
	return nil, errPageFull
}

// deleteTuple removes the tuple at rid.
func (h *heapPage) deleteTuple(rid recordID) error {
	heapRid, ok := rid.(heapFileRid)
	if !ok {
		return DbError{TupleNotFoundError, "supplied rid is not a heapFileRid"}
	}
	slot := heapRid.slotNo
	if slot < 0 || slot >= int(h.numSlots) {
		return DbError{TupleNotFoundError, "slot does not exist on delete"}
	}
	if h.tuples[slot] == nil {
		return DbError{TupleNotFoundError, "element already deleted"}
	}
	h.numUsed--
	h.tuples[slot] = nil
	return nil
}

// WriteTo writes the page header (slot count, used count) followed by the
// tuples themselves, padded to PageSize bytes.
func (h *heapPage) WriteTo(w io.Writer) error {
	b, err := h.toBuffer()
	if err != nil {
		return err
	}
	_, err = w.Write(b.Bytes())
	return err
}

func (h *heapPage) toBuffer() (*bytes.Buffer, error) {
	b := new(bytes.Buffer)
	if err := binary.Write(b, binary.LittleEndian, h.numSlots); err != nil {
		return nil, err
	}
	if err := binary.Write(b, binary.LittleEndian, h.numUsed); err != nil {
		return nil, err
	}
	for _, t := range h.tuples {
		if t == nil {
			continue
		}
		if err := t.writeTo(b); err != nil {
			return nil, err
		}
	}
	if b.Len() > GetPageSize() {
		return nil, DbError{MalformedDataError, "buffer is greater than page size"}
	}
	b.Write(make([]byte, GetPageSize()-b.Len()))
	return b, nil
}

func (h *heapPage) initFromBuffer(buf *bytes.Buffer) error {
	var numSlotsHeader, numUsedHeader int32
	if err := binary.Read(buf, binary.LittleEndian, &numSlotsHeader); err != nil {
		return DbError{MalformedDataError, err.Error()}
	}
	if err := binary.Read(buf, binary.LittleEndian, &numUsedHeader); err != nil {
		return DbError{MalformedDataError, err.Error()}
	}
	tups := make([]*Tuple, numSlotsHeader)
	for i := 0; i < int(numUsedHeader); i++ {
		t, err := readTupleFrom(buf, &h.desc)
		if err != nil {
			return err
		}
		t.Rid = heapFileRid{h.table, h.pageNo, i}
		tups[i] = t
	}
	h.numSlots = numSlotsHeader
	h.numUsed = numUsedHeader
	h.tuples = tups
	return nil
}

// tupleIter returns a function that iterates through the tuples resident
// on this page, skipping empty slots.
func (h *heapPage) tupleIter() func() (*Tuple, error) {
	i := 0
	return func() (*Tuple, error) {
		for {
			if i >= len(h.tuples) {
				return nil, nil
			}
			t := h.tuples[i]
			i++
			if t != nil {
				return t, nil
			}
		}
	}
}
