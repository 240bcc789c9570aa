package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/okian/clutch/internal/domain/model"
	"github.com/okian/clutch/pkg/logger"
	"github.com/okian/clutch/pkg/metrics"
)

const (
	checkpointVersion = 1
	maxDecodedSize    = 64 << 20
)

type checkpoint struct {
	Version   int                   `json:"version"`
	SavedAt   time.Time             `json:"saved_at"`
	Records   []model.MemoryRecord  `json:"records"`
	Identity  *model.PlayerIdentity `json:"identity,omitempty"`
	Cooldowns []model.CooldownEntry `json:"cooldowns,omitempty"`
	Counters  Stats                 `json:"counters"`
}

// Checkpoint writes records and session state to the configured path. The
// file is replaced atomically.
func (s *Store) Checkpoint() error {
	if s.cfg.Path == "" {
		return nil
	}
	ctx := context.Background()

	doc := checkpoint{Version: checkpointVersion, SavedAt: s.now().UTC()}
	if s.session != nil {
		st := s.session()
		doc.Identity = st.Identity
		doc.Cooldowns = st.Cooldowns
	}
	s.mu.RLock()
	doc.Records = make([]model.MemoryRecord, 0, len(s.order))
	for _, id := range s.order {
		doc.Records = append(doc.Records, *s.records[id])
	}
	doc.Counters = s.stats
	s.mu.RUnlock()

	err := s.write(doc)
	metrics.RecordMemoryCheckpoint(err == nil)
	if err != nil {
		s.logger.Error(ctx, "memory checkpoint failed", logger.String("path", s.cfg.Path), logger.Error(err))
		return err
	}
	s.logger.Debug(ctx, "memory checkpoint written",
		logger.String("path", s.cfg.Path),
		logger.Int("records", len(doc.Records)))
	return nil
}

func (s *Store) write(doc checkpoint) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", ErrPersistence, err)
	}
	if compressed(s.cfg.Path) {
		enc, err := zstd.NewWriter(nil,
			zstd.WithEncoderLevel(zstd.SpeedDefault),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return fmt.Errorf("%w: zstd writer: %v", ErrPersistence, err)
		}
		data = enc.EncodeAll(data, make([]byte, 0, len(data)/4))
		_ = enc.Close()
	}

	dir := filepath.Dir(s.cfg.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.cfg.Path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: write: %v", ErrPersistence, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: close: %v", ErrPersistence, err)
	}
	if err := os.Rename(tmp.Name(), s.cfg.Path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("%w: rename: %v", ErrPersistence, err)
	}
	return nil
}

// Load replaces the in-process records with the checkpoint at the configured
// path and returns the session state saved with it. A missing file is a cold
// start and returns an empty state.
func (s *Store) Load() (SessionState, error) {
	if s.cfg.Path == "" {
		return SessionState{}, nil
	}
	ctx := context.Background()

	data, err := os.ReadFile(s.cfg.Path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info(ctx, "no memory checkpoint, starting cold", logger.String("path", s.cfg.Path))
		return SessionState{}, nil
	}
	if err != nil {
		return SessionState{}, fmt.Errorf("%w: read: %v", ErrPersistence, err)
	}
	if compressed(s.cfg.Path) {
		dec, err := zstd.NewReader(nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(maxDecodedSize),
		)
		if err != nil {
			return SessionState{}, fmt.Errorf("%w: zstd reader: %v", ErrPersistence, err)
		}
		data, err = dec.DecodeAll(data, nil)
		dec.Close()
		if err != nil {
			return SessionState{}, fmt.Errorf("%w: decompress: %v", ErrPersistence, err)
		}
	}

	var doc checkpoint
	if err := json.Unmarshal(data, &doc); err != nil {
		return SessionState{}, fmt.Errorf("%w: decode: %v", ErrPersistence, err)
	}
	if doc.Version != checkpointVersion {
		return SessionState{}, fmt.Errorf("%w: unsupported version %d", ErrPersistence, doc.Version)
	}

	s.mu.Lock()
	s.records = make(map[string]*model.MemoryRecord, len(doc.Records))
	s.order = s.order[:0]
	for i := range doc.Records {
		r := doc.Records[i]
		if _, dup := s.records[r.ID]; dup || r.ID == "" {
			continue
		}
		s.insertLocked(&r)
	}
	s.enforceCapLocked()
	s.stats = doc.Counters
	s.stats.Size = 0
	s.stats.HitRate = 0
	n := len(s.records)
	s.mu.Unlock()

	metrics.UpdateMemoryRecords(n)
	s.logger.Info(ctx, "memory checkpoint loaded",
		logger.String("path", s.cfg.Path),
		logger.Int("records", n),
		logger.Time("saved_at", doc.SavedAt))
	return SessionState{Identity: doc.Identity, Cooldowns: doc.Cooldowns}, nil
}

func compressed(path string) bool {
	return strings.HasSuffix(path, ".zst")
}
