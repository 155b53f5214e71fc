package editsystem

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/osmgraph/core/difference"
)

// checkpointKeyPrefix mirrors the teacher's single-byte key-prefix
// scheme (pkg/storage/badger.go's nodeKey/edgeKey): a fixed prefix
// byte plus the checkpoint id keeps every persisted checkpoint under
// one badger iteration range.
const checkpointKeyPrefix = byte(0x10)

func checkpointKey(id string) []byte {
	return append([]byte{checkpointKeyPrefix}, []byte(id)...)
}

// BadgerCheckpointStore persists named checkpoints to an on-disk badger
// database, an optional durability layer alongside System's in-memory
// checkpoint map: SetCheckpoint/RestoreCheckpoint stay synchronous and
// in-memory; a caller that wants checkpoints to survive a process
// restart calls Save/Load explicitly against a store.
type BadgerCheckpointStore struct {
	db *badger.DB
}

// OpenBadgerCheckpointStore opens (creating if absent) a badger
// database at dataDir for checkpoint persistence.
func OpenBadgerCheckpointStore(dataDir string) (*BadgerCheckpointStore, error) {
	opts := badger.DefaultOptions(dataDir)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("editsystem: open checkpoint store: %w", err)
	}
	return &BadgerCheckpointStore{db: db}, nil
}

// Close releases the underlying badger database.
func (s *BadgerCheckpointStore) Close() error {
	return s.db.Close()
}

// Save persists the System's current (history, index) under id by
// serializing it through ToJSON. The whole history is written, redo
// tail included, the same pair SetCheckpoint snapshots in memory (Save
// also calls SetCheckpoint).
func (sys *System) Save(store *BadgerCheckpointStore, id string) error {
	sys.SetCheckpoint(id)
	payload, err := sys.ToJSON()
	if err != nil {
		return err
	}
	return store.db.Update(func(txn *badger.Txn) error {
		return txn.Set(checkpointKey(id), []byte(payload))
	})
}

// Load restores a checkpoint previously written with Save, replacing
// the System's history/index/staging in place (same effect as
// RestoreCheckpoint, but sourced from disk instead of the in-memory
// map). Returns badger.ErrKeyNotFound if id was never saved.
func (sys *System) Load(store *BadgerCheckpointStore, id string) error {
	var payload string
	err := store.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(checkpointKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			payload = string(val)
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("editsystem: load checkpoint %s: %w", id, err)
	}

	restored, err := FromJSONAsync(payload)
	if err != nil {
		return err
	}

	prevStaging := sys.staging.Graph
	prevStable := sys.stable().Graph
	fromIndex := sys.index

	sys.history = restored.history
	sys.index = restored.index
	sys.staging = Edit{Graph: sys.stable().Graph.Derive()}
	sys.ids = restored.ids

	sys.emit(Event{Kind: EventStagingChange, Diff: difference.Compute(prevStaging, sys.staging.Graph)})
	sys.emit(Event{Kind: EventStableChange, Diff: difference.Compute(prevStable, sys.stable().Graph)})
	sys.emit(Event{Kind: EventHistoryJump, FromIndex: fromIndex, ToIndex: sys.index})
	return nil
}
