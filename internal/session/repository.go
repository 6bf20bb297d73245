package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// tableVersion is the only supported session table format version.
const tableVersion = 1

// Sentinel errors returned by the repository.
var (
	ErrNotFound    = errors.New("session: not found")
	ErrLastSession = errors.New("session: cannot delete the last remaining session")
	ErrEmptyTitle  = errors.New("session: title must not be empty")
)

// Defaults are applied to bootstrap and to Create options that omit fields.
type Defaults struct {
	Title    string
	Model    string
	Provider string
}

func (d Defaults) withFallbacks() Defaults {
	if d.Title == "" {
		d.Title = "New session"
	}
	if d.Model == "" {
		d.Model = "unknown"
	}
	if d.Provider == "" {
		d.Provider = "unknown"
	}
	return d
}

// table is the on-disk shape of the session table file.
type table struct {
	Version       int                  `json:"version"`
	MainSessionID string               `json:"mainSessionId"`
	Sessions      map[string]*Metadata `json:"sessions"`
}

// tableFile mirrors table with optional fields so loading can distinguish
// missing keys from zero values.
type tableFile struct {
	Version       *int                 `json:"version"`
	MainSessionID *string              `json:"mainSessionId"`
	Sessions      map[string]*Metadata `json:"sessions"`
}

// Repository is the session metadata store. Every mutation runs a full
// load-normalize-persist cycle; persistence is write-to-temp-then-rename,
// so readers only ever observe a complete table.
//
// Safe for concurrent use within one process. Not a multi-process lock.
type Repository struct {
	path     string
	defaults Defaults

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// NewRepository creates a repository persisting its table at path.
func NewRepository(path string, defaults Defaults) *Repository {
	return &Repository{
		path:     path,
		defaults: defaults.withFallbacks(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Get returns the session with the given id.
func (r *Repository) Get(id string) (*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return nil, err
	}
	s, ok := st.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.clone(), nil
}

// GetMain returns the current main session.
func (r *Repository) GetMain() (*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return nil, err
	}
	s, ok := st.Sessions[st.MainSessionID]
	if !ok {
		return nil, fmt.Errorf("%w: main session %s", ErrNotFound, st.MainSessionID)
	}
	return s.clone(), nil
}

// List returns all sessions sorted by UpdatedAt descending.
func (r *Repository) List() ([]*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return nil, err
	}
	out := make([]*Metadata, 0, len(st.Sessions))
	for _, s := range st.Sessions {
		out = append(out, s.clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

// Create adds a new session. It becomes main when requested or when the
// table was empty.
func (r *Repository) Create(opts CreateOptions) (*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return nil, err
	}

	s := r.newSession(opts)
	if opts.MakeMain || len(st.Sessions) == 0 {
		for _, other := range st.Sessions {
			other.IsMain = false
		}
		s.IsMain = true
		st.MainSessionID = s.ID
	}
	st.Sessions[s.ID] = s

	if err := r.persist(st); err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// Update merges the given fields into an existing session, refreshing
// UpdatedAt. An explicit empty title is rejected.
func (r *Repository) Update(id string, upd Update) (*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if upd.Title != nil && *upd.Title == "" {
		return nil, ErrEmptyTitle
	}

	st, err := r.load()
	if err != nil {
		return nil, err
	}
	s, ok := st.Sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	if upd.Title != nil {
		s.Title = *upd.Title
	}
	if upd.Model != nil {
		s.Model = *upd.Model
	}
	if upd.Provider != nil {
		s.Provider = *upd.Provider
	}
	if upd.MessageCount != nil {
		s.MessageCount = *upd.MessageCount
	}
	if upd.TokenCount != nil {
		s.TokenCount = *upd.TokenCount
	}
	if upd.Status != nil {
		s.Status = *upd.Status
	}
	if upd.LastCompactedAt != nil {
		t := *upd.LastCompactedAt
		s.LastCompactedAt = &t
	}
	s.UpdatedAt = r.now()

	if err := r.persist(st); err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// Delete removes a session. Removing the sole remaining session is
// rejected. Removing the main session promotes replacementMainID, or an
// arbitrary other session when no replacement is named.
func (r *Repository) Delete(id, replacementMainID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return err
	}
	if _, ok := st.Sessions[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if len(st.Sessions) == 1 {
		return ErrLastSession
	}

	wasMain := st.MainSessionID == id
	delete(st.Sessions, id)

	if wasMain {
		next := replacementMainID
		if next == "" {
			next = firstSessionID(st)
		}
		replacement, ok := st.Sessions[next]
		if !ok {
			return fmt.Errorf("%w: replacement main %s", ErrNotFound, next)
		}
		for _, other := range st.Sessions {
			other.IsMain = false
		}
		replacement.IsMain = true
		st.MainSessionID = replacement.ID
	}

	return r.persist(st)
}

// SetMain exclusively flags the given session as main.
func (r *Repository) SetMain(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return err
	}
	target, ok := st.Sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	for _, s := range st.Sessions {
		s.IsMain = false
	}
	target.IsMain = true
	st.MainSessionID = target.ID

	return r.persist(st)
}

// NewSession archives the current main session and creates a fresh main
// session, for starting a new top-level conversation.
func (r *Repository) NewSession(opts CreateOptions) (*Metadata, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	st, err := r.load()
	if err != nil {
		return nil, err
	}

	if prev, ok := st.Sessions[st.MainSessionID]; ok {
		prev.Status = StatusArchived
		prev.IsMain = false
		prev.UpdatedAt = r.now()
	}

	s := r.newSession(opts)
	s.IsMain = true
	st.Sessions[s.ID] = s
	st.MainSessionID = s.ID

	if err := r.persist(st); err != nil {
		return nil, err
	}
	return s.clone(), nil
}

// newSession builds a fresh record from options and repository defaults.
func (r *Repository) newSession(opts CreateOptions) *Metadata {
	now := r.now()
	id := r.newID()
	transcriptPath := opts.TranscriptPath
	if transcriptPath == "" {
		transcriptPath = id + ".jsonl"
	}
	title := opts.Title
	if title == "" {
		title = r.defaults.Title
	}
	model := opts.Model
	if model == "" {
		model = r.defaults.Model
	}
	provider := opts.Provider
	if provider == "" {
		provider = r.defaults.Provider
	}
	return &Metadata{
		ID:              id,
		Title:           title,
		CreatedAt:       now,
		UpdatedAt:       now,
		Model:           model,
		Provider:        provider,
		Status:          StatusActive,
		TranscriptPath:  transcriptPath,
		ParentSessionID: opts.ParentSessionID,
		ForkTurnIndex:   opts.ForkTurnIndex,
	}
}

// load reads and validates the table, bootstrapping or normalizing as
// needed. The normalized result is persisted back, so a successful load
// always leaves a consistent file behind.
func (r *Repository) load() (*table, error) {
	raw, err := os.ReadFile(r.path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(raw) == 0) {
		return r.bootstrap()
	}
	if err != nil {
		return nil, fmt.Errorf("session: read %s: %w", r.path, err)
	}

	var tf tableFile
	if err := json.Unmarshal(raw, &tf); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", r.path, err)
	}
	if tf.Version == nil || *tf.Version != tableVersion {
		return nil, fmt.Errorf("session: %s: unsupported table version", r.path)
	}
	if tf.MainSessionID == nil {
		return nil, fmt.Errorf("session: %s: missing mainSessionId", r.path)
	}
	for id, s := range tf.Sessions {
		if s == nil || s.ID != id {
			return nil, fmt.Errorf("session: %s: record %q has mismatched id", r.path, id)
		}
		if s.Title == "" || s.Model == "" || s.Provider == "" || s.TranscriptPath == "" {
			return nil, fmt.Errorf("session: %s: record %q has missing fields", r.path, id)
		}
		if !s.Status.valid() {
			return nil, fmt.Errorf("session: %s: record %q has invalid status %q", r.path, id, s.Status)
		}
	}

	// A structurally valid but empty session map is the sole auto-heal
	// case: it re-bootstraps rather than erroring.
	if len(tf.Sessions) == 0 {
		return r.bootstrap()
	}

	st := &table{
		Version:       tableVersion,
		MainSessionID: *tf.MainSessionID,
		Sessions:      tf.Sessions,
	}
	if changed := normalize(st); changed {
		if err := r.persist(st); err != nil {
			return nil, err
		}
	}
	return st, nil
}

// bootstrap creates a fresh single-session table and persists it.
func (r *Repository) bootstrap() (*table, error) {
	st := &table{
		Version:  tableVersion,
		Sessions: make(map[string]*Metadata),
	}
	s := r.newSession(CreateOptions{})
	s.IsMain = true
	st.Sessions[s.ID] = s
	st.MainSessionID = s.ID

	if err := r.persist(st); err != nil {
		return nil, err
	}
	return st, nil
}

// normalize recomputes isMain flags so exactly one session — the one
// addressed by mainSessionId, or the first available if that id is stale —
// is flagged main. Reports whether anything changed.
func normalize(st *table) bool {
	main := st.MainSessionID
	if _, ok := st.Sessions[main]; !ok {
		main = firstSessionID(st)
	}

	changed := main != st.MainSessionID
	st.MainSessionID = main
	for id, s := range st.Sessions {
		want := id == main
		if s.IsMain != want {
			s.IsMain = want
			changed = true
		}
	}
	return changed
}

// firstSessionID returns the lexically first session id, for deterministic
// main promotion.
func firstSessionID(st *table) string {
	ids := make([]string, 0, len(st.Sessions))
	for id := range st.Sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if len(ids) == 0 {
		return ""
	}
	return ids[0]
}

// persist writes the full table to a temp file in the same directory and
// atomically renames it into place.
func (r *Repository) persist(st *table) error {
	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("session: encode table: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("session: create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".sessions-*.json")
	if err != nil {
		return fmt.Errorf("session: create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("session: rename %s: %w", r.path, err)
	}
	return nil
}
