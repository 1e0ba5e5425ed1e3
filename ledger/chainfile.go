package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// chainDocument is the on-disk layout of a persisted ledger: the configured
// difficulty plus the ordered chain. Difficulty is a pointer so an absent
// field can be distinguished from a legitimate difficulty of zero.
type chainDocument struct {
	Difficulty *int     `json:"difficulty"`
	Chain      []*Block `json:"chain"`
}

// ChainStore persists the entire chain as a single JSON document, one file
// per ledger instance.
type ChainStore struct {
	path string
}

// NewChainStore creates the data directory if needed and returns a store
// rooted at <dataDir>/chain.json.
func NewChainStore(dataDir string) (*ChainStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, NewErrorf(ErrorTypePersistence, "failed to create data directory %s", dataDir).Wrap(err)
	}
	return &ChainStore{path: filepath.Join(dataDir, ChainFileName)}, nil
}

// Path returns the location of the persisted chain file.
func (s *ChainStore) Path() string {
	return s.path
}

// Exists reports whether a persisted chain document is present.
func (s *ChainStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Save serializes the full chain. The write goes through a temp file and a
// rename so a crash mid-write cannot leave a truncated document behind.
func (s *ChainStore) Save(chain []*Block, difficulty int) error {
	doc := chainDocument{Difficulty: &difficulty, Chain: chain}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return NewError(ErrorTypePersistence, "failed to marshal chain").Wrap(err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return NewErrorf(ErrorTypePersistence, "failed to write chain file %s", tmp).Wrap(err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return NewErrorf(ErrorTypePersistence, "failed to replace chain file %s", s.path).Wrap(err)
	}
	return nil
}

// Load reads and structurally validates the persisted chain. Any schema
// mismatch or missing required field fails with a persistence error; there is
// no partial recovery of a corrupt store.
func (s *ChainStore) Load() ([]*Block, int, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, 0, NewErrorf(ErrorTypePersistence, "failed to read chain file %s", s.path).Wrap(err)
	}

	var doc chainDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, 0, NewErrorf(ErrorTypePersistence, "corrupt chain file %s", s.path).Wrap(err)
	}

	difficulty := DefaultDifficulty
	if doc.Difficulty != nil {
		difficulty = *doc.Difficulty
	}
	if difficulty < 0 {
		return nil, 0, NewErrorf(ErrorTypePersistence, "invalid difficulty %d in chain file", difficulty)
	}

	if err := validateChainStructure(doc.Chain); err != nil {
		return nil, 0, err
	}

	return doc.Chain, difficulty, nil
}

// validateChainStructure checks the required fields of every block and
// transaction without recomputing hashes; cryptographic verification remains
// the job of Ledger.ValidateChain.
func validateChainStructure(chain []*Block) error {
	if len(chain) == 0 {
		return NewError(ErrorTypePersistence, "chain file contains no blocks")
	}
	for i, block := range chain {
		if block == nil {
			return NewErrorf(ErrorTypePersistence, "block %d is null", i)
		}
		if block.Index != int64(i) {
			return NewErrorf(ErrorTypePersistence, "block at position %d has index %d", i, block.Index)
		}
		if block.Hash == "" {
			return NewErrorf(ErrorTypePersistence, "block %d is missing its hash", i)
		}
		if block.PreviousHash == "" {
			return NewErrorf(ErrorTypePersistence, "block %d is missing its previous hash", i)
		}
		if i == 0 && block.PreviousHash != GenesisPreviousHash {
			return NewErrorf(ErrorTypePersistence,
				"genesis block has previous hash %q, want %q", block.PreviousHash, GenesisPreviousHash)
		}
		for j, tx := range block.Transactions {
			if tx == nil {
				return NewErrorf(ErrorTypePersistence, "block %d transaction %d is null", i, j)
			}
			if tx.ID == "" || tx.Timestamp == 0 || tx.Kind == "" {
				return NewErrorf(ErrorTypePersistence,
					"block %d transaction %d is missing required fields", i, j)
			}
		}
	}
	return nil
}
