package indexmanager

import (
	"daemonstore/storage_engine/access/hashindex"
	"daemonstore/storage_engine/bufferpool"
	diskmanager "daemonstore/storage_engine/disk_manager"
	"daemonstore/types"
	"fmt"
	"os"
	"path/filepath"
)

/*
IndexManager is the hash-index counterpart of heapfile_manager.HeapFileManager:
one .idx file per table, page 0
reserved as a metadata page holding the hash index's root (header page) id,
everything else delegated to the shared BufferPool/DiskManager.
*/

func NewIndexManager(baseDir string, diskManager *diskmanager.DiskManager, bufferPool *bufferpool.BufferPool) (*IndexManager, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create indexes directory: %w", err)
	}

	return &IndexManager{
		baseDir:     baseDir,
		indexes:     make(map[string]*hashindex.HashIndex),
		bufferPool:  bufferPool,
		diskManager: diskManager,
	}, nil
}

func indexPath(baseDir, tableName string) string {
	return filepath.Join(baseDir, fmt.Sprintf("%s_primary.idx", tableName))
}

// GetOrCreateIndex returns the cached primary-key hash index for a table,
// opening or creating its backing file on first use.
func (im *IndexManager) GetOrCreateIndex(tableName string, indexFileID uint32) (*hashindex.HashIndex, error) {
	im.mu.RLock()
	idx, exists := im.indexes[tableName]
	im.mu.RUnlock()
	if exists && idx != nil {
		return idx, nil
	}

	im.mu.Lock()
	defer im.mu.Unlock()

	if idx, exists := im.indexes[tableName]; exists && idx != nil {
		return idx, nil
	}

	path := indexPath(im.baseDir, tableName)
	_, statErr := os.Stat(path)
	isNew := os.IsNotExist(statErr)

	if _, err := im.diskManager.OpenFileWithID(path, indexFileID); err != nil {
		return nil, fmt.Errorf("failed to open index file for table '%s': %w", tableName, err)
	}

	if isNew {
		// Reserve local page 0 as the metadata page that holds the root
		// (header page) pointer written by WriteRootID below.
		if _, err := im.diskManager.AllocatePage(indexFileID, types.PageTypeMetadata); err != nil {
			return nil, fmt.Errorf("failed to reserve index metadata page: %w", err)
		}

		created, err := hashindex.NewHashIndex(im.bufferPool, indexFileID, DefaultBucketCount, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create hash index for table '%s': %w", tableName, err)
		}

		localHeaderID, err := im.diskManager.GetLocalPageID(indexFileID, created.HeaderPageID())
		if err != nil {
			return nil, fmt.Errorf("failed to resolve local header id: %w", err)
		}
		if err := im.diskManager.WriteRootID(indexFileID, localHeaderID); err != nil {
			return nil, fmt.Errorf("failed to persist index root: %w", err)
		}
		idx = created
	} else {
		fd, err := im.diskManager.GetFileDescriptor(indexFileID)
		if err != nil {
			return nil, err
		}
		for localPage := int64(0); localPage < fd.NextPageID; localPage++ {
			if err := im.diskManager.RegisterPage(indexFileID, localPage); err != nil {
				return nil, fmt.Errorf("failed to register index page %d: %w", localPage, err)
			}
		}

		localHeaderID, err := im.diskManager.ReadRootID(indexFileID)
		if err != nil {
			return nil, fmt.Errorf("failed to read index root: %w", err)
		}
		headerPageID, err := im.diskManager.GetGlobalPageID(indexFileID, localHeaderID)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve header page: %w", err)
		}
		idx = hashindex.OpenHashIndex(im.bufferPool, indexFileID, headerPageID, nil)
	}

	im.indexes[tableName] = idx
	return idx, nil
}

// CloseIndex flushes and drops the cached index for a single table.
func (im *IndexManager) CloseIndex(tableName string) error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if _, exists := im.indexes[tableName]; !exists {
		return nil
	}
	if err := im.bufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("failed to flush index pages for table '%s': %w", tableName, err)
	}
	delete(im.indexes, tableName)
	return nil
}

// CloseAll flushes and drops every cached index. Called on database switch
// or shutdown.
func (im *IndexManager) CloseAll() error {
	im.mu.Lock()
	defer im.mu.Unlock()

	if len(im.indexes) == 0 {
		return nil
	}
	if err := im.bufferPool.FlushAllPages(); err != nil {
		return fmt.Errorf("failed to flush index pages: %w", err)
	}
	for tableName := range im.indexes {
		delete(im.indexes, tableName)
	}
	return nil
}
