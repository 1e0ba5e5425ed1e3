package ledger

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"

	"finledger_go/utils"
)

// Database key prefixes for better organization
const (
	blockIndexKeyPrefix = "blockindex_" // Prefix for accessing blocks by index
	blockHashKeyPrefix  = "blockhash_"  // Prefix for accessing blocks by hash
	blockHeightKey      = "height"      // Key for the current chain height
)

// BlockIndexDB is a derived LevelDB index over the sealed chain, serving the
// block-by-index and block-by-hash read paths. The chain.json document stays
// the authoritative persisted state; this index is rebuildable from it.
type BlockIndexDB struct {
	db        *leveldb.DB
	batchLock sync.Mutex
	path      string
}

// NewBlockIndexDB opens the index database under <dataDir>/index.
func NewBlockIndexDB(dataDir string) (*BlockIndexDB, error) {
	dbPath := filepath.Join(dataDir, "index")

	options := &opt.Options{
		BlockCacheCapacity:  8 * 1024 * 1024, // 8MB block cache
		WriteBuffer:         4 * 1024 * 1024, // 4MB write buffer
		CompactionTableSize: 2 * 1024 * 1024, // 2MB compaction table size
	}

	db, err := leveldb.OpenFile(dbPath, options)
	if err != nil {
		return nil, NewErrorf(ErrorTypePersistence, "failed to open block index at %s", dbPath).Wrap(err)
	}

	utils.LogInfo("Block index initialized at: %s", dbPath)

	return &BlockIndexDB{
		db:   db,
		path: dbPath,
	}, nil
}

// Close closes the database connection
func (idx *BlockIndexDB) Close() error {
	if idx.db != nil {
		return idx.db.Close()
	}
	return nil
}

// SaveBlock stores a sealed block under both its index and its hash, and
// advances the recorded height when the block extends the chain.
func (idx *BlockIndexDB) SaveBlock(block *Block) error {
	blockData, err := json.Marshal(block)
	if err != nil {
		return NewError(ErrorTypePersistence, "failed to marshal block for index").Wrap(err)
	}

	batch := new(leveldb.Batch)

	indexKey := fmt.Sprintf("%s%d", blockIndexKeyPrefix, block.Index)
	batch.Put([]byte(indexKey), blockData)

	hashKey := fmt.Sprintf("%s%s", blockHashKeyPrefix, block.Hash)
	batch.Put([]byte(hashKey), blockData)

	currentHeight, err := idx.Height()
	if err != nil || block.Index > currentHeight {
		batch.Put([]byte(blockHeightKey), []byte(fmt.Sprintf("%d", block.Index)))
	}

	idx.batchLock.Lock()
	defer idx.batchLock.Unlock()

	if err := idx.db.Write(batch, nil); err != nil {
		return NewErrorf(ErrorTypePersistence, "failed to index block %d", block.Index).Wrap(err)
	}

	utils.LogDebug("Block %d indexed with hash %s", block.Index, block.Hash)
	return nil
}

// GetBlockByIndex retrieves a block by its position in the chain.
func (idx *BlockIndexDB) GetBlockByIndex(index int64) (*Block, error) {
	indexKey := fmt.Sprintf("%s%d", blockIndexKeyPrefix, index)

	data, err := idx.db.Get([]byte(indexKey), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, NewErrorf(ErrorTypePersistence, "block with index %d not found", index)
		}
		return nil, NewErrorf(ErrorTypePersistence, "failed to retrieve block %d", index).Wrap(err)
	}

	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, NewErrorf(ErrorTypePersistence, "failed to unmarshal indexed block %d", index).Wrap(err)
	}

	return &block, nil
}

// GetBlockByHash retrieves a block by its sealed hash.
func (idx *BlockIndexDB) GetBlockByHash(hash string) (*Block, error) {
	hashKey := fmt.Sprintf("%s%s", blockHashKeyPrefix, hash)

	data, err := idx.db.Get([]byte(hashKey), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return nil, NewErrorf(ErrorTypePersistence, "block with hash %s not found", hash)
		}
		return nil, NewErrorf(ErrorTypePersistence, "failed to retrieve block %s", hash).Wrap(err)
	}

	var block Block
	if err := json.Unmarshal(data, &block); err != nil {
		return nil, NewErrorf(ErrorTypePersistence, "failed to unmarshal indexed block %s", hash).Wrap(err)
	}

	return &block, nil
}

// Height returns the highest indexed block index, or -1 when the index holds
// no blocks yet.
func (idx *BlockIndexDB) Height() (int64, error) {
	data, err := idx.db.Get([]byte(blockHeightKey), nil)
	if err != nil {
		if err == leveldb.ErrNotFound {
			return -1, nil
		}
		return -1, NewError(ErrorTypePersistence, "failed to retrieve index height").Wrap(err)
	}

	var height int64
	if _, err := fmt.Sscanf(string(data), "%d", &height); err != nil {
		return -1, NewError(ErrorTypePersistence, "failed to parse index height").Wrap(err)
	}

	return height, nil
}

// Rebuild re-indexes every block of the given chain. Called after loading a
// persisted chain so a stale or missing index catches up with chain.json.
func (idx *BlockIndexDB) Rebuild(chain []*Block) error {
	for _, block := range chain {
		if err := idx.SaveBlock(block); err != nil {
			return err
		}
	}
	utils.LogInfo("Block index rebuilt with %d blocks", len(chain))
	return nil
}
