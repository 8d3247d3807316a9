package checkpoint

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"time"
)

/*
This file is the main file of the NewCheckPointManager
Checkpoint manager creates a checkpoint file which is saved on queries that were able to successfully write to the heap and index file
It is important to have a checkpoint manager as it helps in knowing which commands already ran successfully while WAL replay
Therefore preventing double execution of the same commands
*/

func NewCheckpointManager(dbPath string) (*CheckpointManager, error) {
	return &CheckpointManager{
		checkpointPath: filepath.Join(dbPath, "checkpoint.json"),
	}, nil
}

// checksumCheckpoint mirrors wal_manager's calculateCRC: it hashes the
// fields that matter for recovery (LSN, database name, table count) so a
// torn write is detectable even though the rename itself is atomic.
func checksumCheckpoint(lsn uint64, database string, tableCount int) uint32 {
	hasher := crc32.NewIEEE()

	lsnBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(lsnBytes, lsn)
	hasher.Write(lsnBytes)

	hasher.Write([]byte(database))

	countBytes := make([]byte, 8)
	binary.BigEndian.PutUint64(countBytes, uint64(tableCount))
	hasher.Write(countBytes)

	return hasher.Sum32()
}

// SaveCheckpoint atomically saves a checkpoint. tableCount is the catalog's
// current table count, stamped alongside the LSN so a later LoadCheckpoint
// can tell the checkpoint and the catalog it's paired with agree.
func (cm *CheckpointManager) SaveCheckpoint(lsn uint64, database string, tableCount int) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	checkpoint := Checkpoint{
		LSN:        lsn,
		Timestamp:  getCurrentTimestamp(),
		Database:   database,
		TableCount: tableCount,
		Checksum:   checksumCheckpoint(lsn, database, tableCount),
	}

	// Serialize to JSON
	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	// ====================================================================
	// CRITICAL: Atomic write pattern to prevent corruption
	// Write to temporary file
	// Sync temp file to disk (fsync)
	// Atomically rename temp to actual file
	// ====================================================================

	tempPath := cm.checkpointPath + ".tmp"

	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp checkpoint: %w", err)
	}

	// Sync temp file to disk (ensure data is durable)
	tempFile, err := os.OpenFile(tempPath, os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("failed to open temp checkpoint: %w", err)
	}
	if err := tempFile.Sync(); err != nil {
		tempFile.Close()
		return fmt.Errorf("failed to sync temp checkpoint: %w", err)
	}
	tempFile.Close()

	// Atomically rename temp to actual
	// On Unix, rename is atomic - file is either old or new, never corrupted
	if err := os.Rename(tempPath, cm.checkpointPath); err != nil {
		return fmt.Errorf("failed to rename checkpoint: %w", err)
	}

	// Sync directory to ensure rename is durable
	dir, err := os.Open(filepath.Dir(cm.checkpointPath))
	if err == nil {
		dir.Sync()
		dir.Close()
	}

	fmt.Printf("Checkpoint saved at LSN %d\n", lsn)
	return nil
}

// LoadCheckpoint loads the last checkpoint
func (cm *CheckpointManager) LoadCheckpoint() (*Checkpoint, error) {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	if _, err := os.Stat(cm.checkpointPath); os.IsNotExist(err) {
		// No checkpoint exists - start from beginning
		return &Checkpoint{LSN: 0}, nil
	}

	data, err := os.ReadFile(cm.checkpointPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}

	// Parse checkpoint
	var checkpoint Checkpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		// Checkpoint file is corrupted - start from beginning
		fmt.Println("Warning: Checkpoint file corrupted, starting from LSN 0")
		return &Checkpoint{LSN: 0}, nil
	}

	if checksumCheckpoint(checkpoint.LSN, checkpoint.Database, checkpoint.TableCount) != checkpoint.Checksum {
		fmt.Println("Warning: Checkpoint checksum mismatch, starting from LSN 0")
		return &Checkpoint{LSN: 0}, nil
	}

	fmt.Printf("[Checkpoint] Loaded LSN=%d timestamp=%d tables=%d\n",
		checkpoint.LSN, checkpoint.Timestamp, checkpoint.TableCount)

	return &checkpoint, nil
}

// DeleteCheckpoint removes the checkpoint file
func (cm *CheckpointManager) DeleteCheckpoint() error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if err := os.Remove(cm.checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}

	return nil
}

// getCurrentTimestamp returns current Unix timestamp
func getCurrentTimestamp() int64 {
	return time.Now().Unix()
}
