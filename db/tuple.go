package db

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// DBType tags the possible field types a TupleDesc can describe.
type DBType int8

const (
	IntType DBType = iota
	StringType
)

// StringLength is the fixed on-disk width of a StringField, matching the
// teacher's heap-page layout assumption that all tuples are fixed length.
const StringLength = 32

// FieldType describes one column of a TupleDesc.
type FieldType struct {
	Fname          string
	TableQualifier string
	Ftype          DBType
}

// TupleDesc describes the shape of every Tuple stored in a TableFile.
type TupleDesc struct {
	Fields []FieldType
}

func (td *TupleDesc) bytesPerTuple() int {
	n := 0
	for _, f := range td.Fields {
		switch f.Ftype {
		case IntType:
			n += 8
		case StringType:
			n += StringLength
		}
	}
	return n
}

// FieldNamed returns the index of the first field named name, or an error
// if no such field exists.
func (td *TupleDesc) FieldNamed(name string) (int, error) {
	for i, f := range td.Fields {
		if f.Fname == name {
			return i, nil
		}
	}
	return -1, DbError{TupleNotFoundError, fmt.Sprintf("no field named %q", name)}
}

// DBValue is the interface implemented by IntField and StringField.
type DBValue interface {
	dbValue()
}

// IntField is a DBValue holding a signed 64-bit integer.
type IntField struct {
	Value int64
}

func (IntField) dbValue() {}

// StringField is a DBValue holding a string truncated to StringLength.
type StringField struct {
	Value string
}

func (StringField) dbValue() {}

// recordID identifies where a Tuple lives within its TableFile. HeapFile
// uses heapFileRid; other TableFile implementations may use any comparable
// type.
type recordID any

// Tuple is a row: a TupleDesc plus one DBValue per field, plus the
// recordID it was read from (nil for freshly-constructed tuples).
type Tuple struct {
	Desc   TupleDesc
	Fields []DBValue
	Rid    recordID
}

// equals reports whether t and other have the same field values (ignoring
// Rid, which is storage-location metadata rather than tuple content).
func (t *Tuple) equals(other *Tuple) bool {
	if len(t.Fields) != len(other.Fields) {
		return false
	}
	for i := range t.Fields {
		switch a := t.Fields[i].(type) {
		case IntField:
			b, ok := other.Fields[i].(IntField)
			if !ok || a.Value != b.Value {
				return false
			}
		case StringField:
			b, ok := other.Fields[i].(StringField)
			if !ok || a.Value != b.Value {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// project returns a new Tuple containing only the named fields, in the
// order given by fields.
func (t *Tuple) project(fields []FieldType) (*Tuple, error) {
	out := make([]DBValue, len(fields))
	for i, f := range fields {
		idx, err := t.Desc.FieldNamed(f.Fname)
		if err != nil {
			return nil, err
		}
		out[i] = t.Fields[idx]
	}
	return &Tuple{Desc: TupleDesc{Fields: fields}, Fields: out, Rid: nil}, nil
}

// writeTo serializes t in fixed-width form, matching the heap page layout:
// 8 bytes per int field, StringLength bytes per string field (NUL-padded).
func (t *Tuple) writeTo(b *bytes.Buffer) error {
	for _, f := range t.Fields {
		switch v := f.(type) {
		case IntField:
			if err := binary.Write(b, binary.LittleEndian, v.Value); err != nil {
				return err
			}
		case StringField:
			buf := make([]byte, StringLength)
			copy(buf, v.Value)
			if _, err := b.Write(buf); err != nil {
				return err
			}
		default:
			return DbError{TypeMismatchError, "unsupported field type"}
		}
	}
	return nil
}

// readTupleFrom deserializes one fixed-width tuple matching td from buf.
func readTupleFrom(buf *bytes.Buffer, td *TupleDesc) (*Tuple, error) {
	fields := make([]DBValue, len(td.Fields))
	for i, ft := range td.Fields {
		switch ft.Ftype {
		case IntType:
			var v int64
			if err := binary.Read(buf, binary.LittleEndian, &v); err != nil {
				return nil, DbError{MalformedDataError, err.Error()}
			}
			fields[i] = IntField{v}
		case StringType:
			raw := make([]byte, StringLength)
			if _, err := buf.Read(raw); err != nil {
				return nil, DbError{MalformedDataError, err.Error()}
			}
			end := bytes.IndexByte(raw, 0)
			if end < 0 {
				end = len(raw)
			}
			fields[i] = StringField{string(raw[:end])}
		}
	}
	return &Tuple{Desc: *td, Fields: fields, Rid: nil}, nil
}
