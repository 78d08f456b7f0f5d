package workspace

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"
	"time"
)

const DefaultTTL = 12 * time.Hour

var (
	ErrNoWorkspace    = errors.New("workspace id is required")
	ErrWorkspaceOwner = errors.New("workspace belongs to another user")
)

// SnapshotStore persists workspace snapshots between process restarts.
// Load returns nil, nil when nothing is stored under id.
type SnapshotStore interface {
	Load(ctx context.Context, id string) (*Snapshot, error)
	Save(ctx context.Context, snap Snapshot, ttl time.Duration) error
	Delete(ctx context.Context, id string) error
}

// Ref identifies the workspace of one request.
type Ref struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
}

type ManagerConfig struct {
	TTL   time.Duration
	Store SnapshotStore
	Now   func() time.Time
	// OnCount is called with the number of live workspaces after it changes.
	OnCount func(n int)
}

// Manager keeps one Workspace per session in memory.
type Manager struct {
	mu      sync.Mutex
	items   map[string]*Workspace
	ttl     time.Duration
	store   SnapshotStore
	now     func() time.Time
	onCount func(int)
}

func NewManager(cfg ManagerConfig) *Manager {
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Manager{
		items:   make(map[string]*Workspace),
		ttl:     ttl,
		store:   cfg.Store,
		now:     now,
		onCount: cfg.OnCount,
	}
}

// View runs fn on the workspace under its lock without persisting.
func (m *Manager) View(ctx context.Context, ref Ref, fn func(w *Workspace) error) error {
	w, err := m.get(ctx, ref)
	if err != nil {
		return err
	}
	w.Lock()
	defer w.Unlock()
	return fn(w)
}

// Update runs fn on the workspace under its lock and persists a snapshot
// after fn returns, failed or not. Snapshot failures are logged only.
func (m *Manager) Update(ctx context.Context, ref Ref, fn func(w *Workspace) error) error {
	w, err := m.get(ctx, ref)
	if err != nil {
		return err
	}
	w.Lock()
	defer w.Unlock()
	err = fn(w)
	m.persist(ctx, w)
	return err
}

func (m *Manager) persist(ctx context.Context, w *Workspace) {
	if m.store == nil {
		return
	}
	now := m.now()
	ttl := w.expiresAt.Sub(now)
	if ttl <= 0 {
		return
	}
	if err := m.store.Save(ctx, w.Snapshot(now), ttl); err != nil {
		log.Printf("workspace %s: save snapshot: %v", w.ID, err)
	}
}

func (m *Manager) get(ctx context.Context, ref Ref) (*Workspace, error) {
	id := strings.TrimSpace(ref.ID)
	if id == "" {
		return nil, ErrNoWorkspace
	}

	m.mu.Lock()
	m.sweepLocked()
	if w, ok := m.items[id]; ok {
		if !ownedBy(w.UserID, ref.UserID) {
			m.mu.Unlock()
			return nil, ErrWorkspaceOwner
		}
		m.touchLocked(w, ref.ExpiresAt)
		m.mu.Unlock()
		return w, nil
	}
	m.mu.Unlock()

	fresh := newWorkspace(id, ref.UserID, m.now)
	if m.store != nil {
		snap, err := m.store.Load(ctx, id)
		if err != nil {
			log.Printf("workspace %s: load snapshot: %v", id, err)
		} else if snap != nil && ownedBy(snap.UserID, ref.UserID) {
			fresh.restore(*snap)
		} else if snap != nil {
			log.Printf("workspace %s: snapshot owned by another user, starting fresh", id)
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok := m.items[id]; ok {
		if !ownedBy(w.UserID, ref.UserID) {
			return nil, ErrWorkspaceOwner
		}
		m.touchLocked(w, ref.ExpiresAt)
		return w, nil
	}
	m.touchLocked(fresh, ref.ExpiresAt)
	m.items[id] = fresh
	m.countLocked()
	return fresh, nil
}

// ownedBy reports whether a workspace recorded for owner may serve userID.
// Either side being unknown is not a conflict.
func ownedBy(owner, userID string) bool {
	return owner == "" || userID == "" || owner == userID
}

// touchLocked extends the idle deadline, capped by the token expiry.
func (m *Manager) touchLocked(w *Workspace, tokenExpiry time.Time) {
	now := m.now()
	w.lastUsed = now
	w.expiresAt = now.Add(m.ttl)
	if !tokenExpiry.IsZero() && tokenExpiry.Before(w.expiresAt) {
		w.expiresAt = tokenExpiry
	}
}

// Close drops the workspace and its stored snapshot.
func (m *Manager) Close(ctx context.Context, id string) {
	m.mu.Lock()
	if _, ok := m.items[id]; ok {
		delete(m.items, id)
		m.countLocked()
	}
	m.mu.Unlock()

	if m.store != nil {
		if err := m.store.Delete(ctx, id); err != nil {
			log.Printf("workspace %s: delete snapshot: %v", id, err)
		}
	}
}

// Sweep drops expired workspaces and returns how many were removed.
func (m *Manager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sweepLocked()
}

func (m *Manager) sweepLocked() int {
	now := m.now()
	removed := 0
	for id, w := range m.items {
		if !now.Before(w.expiresAt) {
			delete(m.items, id)
			removed++
		}
	}
	if removed > 0 {
		m.countLocked()
	}
	return removed
}

// Run sweeps every interval until ctx is done.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				log.Printf("workspace sweep: removed %d expired", n)
			}
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

func (m *Manager) countLocked() {
	if m.onCount != nil {
		m.onCount(len(m.items))
	}
}
