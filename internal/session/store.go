package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/lorewarden/lorewarden/internal/log"
)

const (
	storeDirMode    = 0o750
	tempFilePattern = ".sessions-*.json.tmp"
)

// snapshotMessage is the wire form of a message in the snapshot file.
// Ordinals are implicit from position, so the file round-trips exactly.
type snapshotMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FileStore is a durable mapping from chat identifier to ordered message
// history, persisted as one JSON snapshot file.
type FileStore struct {
	path   string
	fileLk *flock.Flock
	logger log.Logger

	mu       sync.RWMutex
	sessions map[string][]Message
	locks    map[string]*sync.Mutex

	// flushMu serializes each mutate-flush-rollback sequence as a whole,
	// not just the snapshot write. Without that, another session's flush
	// could persist this session's map mutation before its own flush
	// fails, and the rollback would leave memory behind the durable
	// snapshot.
	flushMu sync.Mutex
}

// Open creates a FileStore backed by the snapshot at path.
//
// The canonical snapshot is loaded if present; an absent file initializes
// an empty store. A malformed snapshot fails with [ErrCorruptStore] rather
// than silently discarding history. Open also takes an exclusive file lock
// next to the snapshot; a second process opening the same path gets
// [ErrLocked]. Call Close to release the lock.
func Open(path string, logger log.Logger) (*FileStore, error) {
	if logger == nil {
		logger = log.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(path), storeDirMode); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	fileLk := flock.New(path + ".lock")
	locked, err := fileLk.TryLock()
	if err != nil {
		return nil, fmt.Errorf("locking snapshot: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, path)
	}

	sessions, err := loadSnapshot(path)
	if err != nil {
		if unlockErr := fileLk.Unlock(); unlockErr != nil {
			logger.Warn("releasing snapshot lock failed", "error", unlockErr)
		}
		return nil, err
	}

	logger.Info("session store opened", "path", path, "sessions", len(sessions))

	return &FileStore{
		path:     path,
		fileLk:   fileLk,
		logger:   logger,
		sessions: sessions,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

func loadSnapshot(path string) (map[string][]Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string][]Message), nil
		}
		return nil, fmt.Errorf("reading snapshot %s: %w", path, err)
	}

	var snapshot map[string][]snapshotMessage
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("%w: decoding %s: %v", ErrCorruptStore, path, err)
	}

	sessions := make(map[string][]Message, len(snapshot))
	for id, records := range snapshot {
		msgs := make([]Message, len(records))
		for i, r := range records {
			msgs[i] = Message{Role: r.Role, Content: r.Content, Ordinal: i}
		}
		sessions[id] = msgs
	}
	return sessions, nil
}

// Close releases the snapshot file lock. The store must not be used after
// Close.
func (s *FileStore) Close() error {
	if err := s.fileLk.Unlock(); err != nil {
		return fmt.Errorf("releasing snapshot lock: %w", err)
	}
	return nil
}

// GetOrCreate resolves a session.
//
// An empty id generates a new unique identifier, persists the empty
// session, and returns it. A known id returns the existing session
// unchanged. An unknown non-empty id fails with [ErrNotFound]: callers
// wanting creation-on-demand must pass "".
func (s *FileStore) GetOrCreate(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if id != "" {
		return s.Get(ctx, id)
	}

	newID := uuid.NewString()

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.sessions[newID] = make([]Message, 0)
	s.mu.Unlock()

	if err := s.flush(); err != nil {
		s.mu.Lock()
		delete(s.sessions, newID)
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: persisting new session: %v", ErrPersistence, err)
	}

	s.logger.Debug("created session", "id", newID)
	return &Session{ID: newID, Messages: []Message{}}, nil
}

// Get returns a copy of the session with the given id, or [ErrNotFound].
// Pure read, no side effects.
func (s *FileStore) Get(ctx context.Context, id string) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	msgs, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	out := make([]Message, len(msgs))
	copy(out, msgs)
	return &Session{ID: id, Messages: out}, nil
}

// Append adds msgs to the session in order, assigning the next contiguous
// ordinals, and flushes the store before returning. Appending several
// messages in one call is a single logical append: either all of them
// become durable or none do.
//
// A failed flush rolls the in-memory append back and returns
// [ErrPersistence].
func (s *FileStore) Append(ctx context.Context, id string, msgs ...Message) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return s.Get(ctx, id)
	}

	lk := s.sessionLock(id)
	lk.Lock()
	defer lk.Unlock()

	s.mu.RLock()
	prev, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	updated := make([]Message, len(prev), len(prev)+len(msgs))
	copy(updated, prev)
	for i, m := range msgs {
		m.Ordinal = len(prev) + i
		updated = append(updated, m)
	}

	s.flushMu.Lock()
	defer s.flushMu.Unlock()

	s.mu.Lock()
	s.sessions[id] = updated
	s.mu.Unlock()

	if err := s.flush(); err != nil {
		s.mu.Lock()
		s.sessions[id] = prev
		s.mu.Unlock()
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	s.logger.Debug("appended messages", "id", id, "count", len(msgs), "total", len(updated))

	out := make([]Message, len(updated))
	copy(out, updated)
	return &Session{ID: id, Messages: out}, nil
}

// List returns a listing view of all sessions, ordered by id.
func (s *FileStore) List(ctx context.Context) ([]Info, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	infos := make([]Info, 0, len(s.sessions))
	for id, msgs := range s.sessions {
		infos = append(infos, Info{ID: id, MessageCount: len(msgs)})
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos, nil
}

// Ping reports whether the snapshot location is still reachable. Used by
// readiness checks.
func (s *FileStore) Ping() error {
	if _, err := os.Stat(filepath.Dir(s.path)); err != nil {
		return fmt.Errorf("snapshot directory: %w", err)
	}
	return nil
}

// sessionLock returns the mutex serializing appends for one session,
// creating it on first use.
func (s *FileStore) sessionLock(id string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lk, ok := s.locks[id]
	if !ok {
		lk = &sync.Mutex{}
		s.locks[id] = lk
	}
	return lk
}

// flush writes the full snapshot durably: stage to a temp file in the
// snapshot directory, then promote with an atomic rename. Callers must
// hold flushMu.
func (s *FileStore) flush() error {
	s.mu.RLock()
	snapshot := make(map[string][]snapshotMessage, len(s.sessions))
	for id, msgs := range s.sessions {
		records := make([]snapshotMessage, len(msgs))
		for i, m := range msgs {
			records[i] = snapshotMessage{Role: m.Role, Content: m.Content}
		}
		snapshot[id] = records
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, tempFilePattern)
	if err != nil {
		return fmt.Errorf("staging snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing snapshot: %w", err)
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("promoting snapshot: %w", err)
	}

	return nil
}
