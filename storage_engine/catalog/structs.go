package catalog

import (
	types "daemonstore/types"

	"github.com/dgraph-io/ristretto/v2"
)

type CatalogManager struct {
	dbRoot        string
	currDb        string
	TableToFileId map[string]TableFileMapping
	nextFileID    uint32
	tableSchemas  map[string]types.TableSchema

	// schemaCache fronts the disk read in GetTableSchema. Distinct from
	// tableSchemas: that map is this instance's authoritative view of
	// what's registered, populated on Register/Load; schemaCache just
	// saves a JSON parse when a schema falls out of tableSchemas. It is
	// per instance and starts empty: entries come from RegisterNewTable
	// and from GetTableSchema's own disk reads, keyed by database and
	// table name.
	schemaCache *ristretto.Cache[string, types.TableSchema]
}

type TableFileMapping struct {
	HeapFileID  uint32 `json:"heap_file_id"`
	IndexFileID uint32 `json:"index_file_id"`
}
