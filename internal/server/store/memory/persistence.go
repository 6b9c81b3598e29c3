package memory

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/dmitrijs2005/omnidesk/internal/filex"
)

const snapshotFile = "tables.json"

type snapshot struct {
	Version uint64               `json:"version"`
	Seq     uint64               `json:"seq"`
	Tables  map[string][]*record `json:"tables"`
}

// persistence writes snapshots atomically. Writes may finish out of order;
// a snapshot older than the last one written is dropped.
type persistence struct {
	dir   string
	mu    sync.Mutex
	saved uint64
}

func (p *persistence) path() string {
	return filepath.Join(p.dir, snapshotFile)
}

func (p *persistence) save(snap *snapshot) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if snap.Version <= p.saved {
		return nil
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if _, err := filex.EnsureDir(p.dir); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	if err := filex.WriteAtomic(p.path(), b, 0o600); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	p.saved = snap.Version
	return nil
}

// load returns nil when no snapshot exists yet.
func (p *persistence) load() (*snapshot, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	b, err := os.ReadFile(p.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &snapshot{}
	if err := json.Unmarshal(b, snap); err != nil {
		return nil, fmt.Errorf("decode snapshot %s: %w", p.path(), err)
	}
	p.saved = snap.Version
	return snap, nil
}
