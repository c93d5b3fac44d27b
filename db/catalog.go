package db

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// TableFile is what §6 requires of collaborators registered with a
// Catalog: a PageFile plus the tuple-level operations access methods
// expose to the TxnCoordinator.
type TableFile interface {
	PageFile
	Descriptor() *TupleDesc
	InsertTuple(txn TransactionId, t *Tuple) ([]Page, error)
	DeleteTuple(txn TransactionId, t *Tuple) ([]Page, error)
	Iterator(txn TransactionId) (func() (*Tuple, error), error)
}

// Catalog maps table identifiers and names to their backing TableFile.
// It is the "Catalog.file_for(table_id)" collaborator spec §6 requires.
type Catalog struct {
	mu        sync.RWMutex
	byId      map[TableId]TableFile
	nameToId  map[string]TableId
	idToName  map[TableId]string
	dir       string
	descFile  string
	coord     *TxnCoordinator
	nextTable TableId
}

// NewCatalog creates an empty catalog. descFile, if non-empty, is a text
// description of the tables to load via ParseCatalogFile; dir is the
// directory backing-store files are resolved relative to. coord is wired
// into every HeapFile the catalog creates so access methods can route page
// requests through the shared PageCache/LockTable.
func NewCatalog(descFile string, coord *TxnCoordinator, dir string) *Catalog {
	return &Catalog{
		byId:     make(map[TableId]TableFile),
		nameToId: make(map[string]TableId),
		idToName: make(map[TableId]string),
		dir:      dir,
		descFile: descFile,
		coord:    coord,
	}
}

// SetCoordinator wires coord in after construction, for callers that must
// create the Catalog before the TxnCoordinator that references it exists
// (the coordinator needs a catalog; the catalog's ParseCatalogFile needs a
// coordinator to hand each HeapFile it opens). Only ParseCatalogFile reads
// this field, so it is safe to set any time before that call.
func (c *Catalog) SetCoordinator(coord *TxnCoordinator) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.coord = coord
}

// FileFor returns the TableFile registered for id.
func (c *Catalog) FileFor(id TableId) (TableFile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.byId[id]
	if !ok {
		return nil, DbError{GenericError, fmt.Sprintf("no table registered with id %d", id)}
	}
	return f, nil
}

// TableNamed looks up a table's id by name.
func (c *Catalog) TableNamed(name string) (TableId, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	id, ok := c.nameToId[name]
	if !ok {
		return 0, DbError{GenericError, fmt.Sprintf("no table named %q", name)}
	}
	return id, nil
}

func (c *Catalog) tableNameToFile(name string) string {
	return filepath.Join(c.dir, name+".dat")
}

// Register adds name/file to the catalog under a freshly minted TableId.
func (c *Catalog) Register(name string, file TableFile) TableId {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := c.nextTable
	c.nextTable++
	if hf, ok := file.(*HeapFile); ok {
		hf.setTable(id)
	}
	c.byId[id] = file
	c.nameToId[name] = id
	c.idToName[id] = name
	return id
}

// ParseCatalogFile reads the catalog description file (one table per line,
// "name (field:type, field:type, ...)", types "int" or "string") and opens
// or creates the backing HeapFile for each table.
func (c *Catalog) ParseCatalogFile() error {
	if c.descFile == "" {
		return nil
	}
	f, err := os.Open(filepath.Join(c.dir, c.descFile))
	if err != nil {
		return DbError{IoError, err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		name, td, err := parseCatalogLine(line)
		if err != nil {
			return err
		}
		hf, err := NewHeapFile(c.tableNameToFile(name), td, c.coord)
		if err != nil {
			return err
		}
		c.Register(name, hf)
	}
	if err := scanner.Err(); err != nil {
		return DbError{IoError, err.Error()}
	}
	return nil
}

func parseCatalogLine(line string) (string, *TupleDesc, error) {
	open := strings.Index(line, "(")
	close := strings.LastIndex(line, ")")
	if open < 0 || close < open {
		return "", nil, DbError{ParseError, fmt.Sprintf("malformed catalog line: %q", line)}
	}
	name := strings.TrimSpace(line[:open])
	if name == "" {
		return "", nil, DbError{ParseError, fmt.Sprintf("catalog line missing table name: %q", line)}
	}
	fieldsPart := line[open+1 : close]
	var fields []FieldType
	for _, raw := range strings.Split(fieldsPart, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		parts := strings.SplitN(raw, ":", 2)
		if len(parts) != 2 {
			return "", nil, DbError{ParseError, fmt.Sprintf("malformed field %q in %q", raw, line)}
		}
		fname := strings.TrimSpace(parts[0])
		ftypeName := strings.TrimSpace(parts[1])
		var ftype DBType
		switch ftypeName {
		case "int":
			ftype = IntType
		case "string":
			ftype = StringType
		default:
			return "", nil, DbError{ParseError, fmt.Sprintf("unknown field type %q", ftypeName)}
		}
		fields = append(fields, FieldType{Fname: fname, TableQualifier: name, Ftype: ftype})
	}
	return name, &TupleDesc{Fields: fields}, nil
}
