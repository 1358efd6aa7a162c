package strata

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/bep/debounce"
	"go.uber.org/zap"
)

// defaultSaveInterval is the minimum quiet period before a scheduled
// snapshot is written. Bursts of mutations coalesce into one save.
const defaultSaveInterval = time.Second

// NodeRecord is the persisted shape of one node.
type NodeRecord struct {
	ID      int64   `json:"id"`
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Z       int     `json:"z"`
	Type    string  `json:"type,omitempty"`
	Content any     `json:"content,omitempty"`
}

// Snapshot is the persisted shape of a whole session: the viewport plus
// every node.
type Snapshot struct {
	Zoom    float64      `json:"zoom"`
	OffsetX float64      `json:"offsetX"`
	OffsetY float64      `json:"offsetY"`
	Nodes   []NodeRecord `json:"nodes"`
}

// PersistenceSink stores and retrieves snapshots. Sinks are best-effort:
// the engine never blocks on them and a failing sink never rolls back
// in-memory state. Load returns (nil, nil) when nothing is stored yet.
type PersistenceSink interface {
	Save(snap *Snapshot) error
	Load() (*Snapshot, error)
}

// FileSink is a PersistenceSink backed by a single JSON file.
type FileSink struct {
	Path string
}

// Save writes the snapshot as indented JSON.
func (f *FileSink) Save(snap *Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := os.WriteFile(f.Path, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Load reads the snapshot file. A missing file is not an error; it means
// no snapshot has been saved yet.
func (f *FileSink) Load() (*Snapshot, error) {
	data, err := os.ReadFile(f.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// saver debounces snapshot writes to a sink. Schedule is called from the
// engine thread; the debounced flush runs on the debounce timer's
// goroutine, touching only the pending slot under the mutex. A failed
// save is re-queued and retried on the next debounce window.
type saver struct {
	sink      PersistenceSink
	log       *zap.Logger
	debounced func(func())

	mu      sync.Mutex
	pending *Snapshot
}

func newSaver(sink PersistenceSink, interval time.Duration, log *zap.Logger) *saver {
	if interval < defaultSaveInterval {
		interval = defaultSaveInterval
	}
	return &saver{
		sink:      sink,
		log:       log,
		debounced: debounce.New(interval),
	}
}

// Schedule records the latest snapshot and arms the debounce window.
// Later schedules within the window replace the pending snapshot.
func (s *saver) Schedule(snap *Snapshot) {
	s.mu.Lock()
	s.pending = snap
	s.mu.Unlock()
	s.debounced(s.flushPending)
}

// Flush writes any pending snapshot immediately. For shutdown.
func (s *saver) Flush() {
	s.flushPending()
}

func (s *saver) flushPending() {
	s.mu.Lock()
	snap := s.pending
	s.pending = nil
	s.mu.Unlock()
	if snap == nil {
		return
	}
	if err := s.sink.Save(snap); err != nil {
		s.log.Warn("snapshot save failed, will retry", zap.Error(err))
		s.mu.Lock()
		if s.pending == nil {
			s.pending = snap
		}
		s.mu.Unlock()
		s.debounced(s.flushPending)
	}
}
