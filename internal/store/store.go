// Package store keeps the client-side view of the user's folders and
// documents. Every mutation runs under one lock; network calls never do.
package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

// ErrStaleResponse is returned when a newer request superseded this one and
// its result was discarded.
var ErrStaleResponse = errors.New("store: stale response discarded")

// API is the subset of the remote client the store depends on.
type API interface {
	ListFolders(ctx context.Context, parentID string) ([]model.Folder, error)
	GetFolderContents(ctx context.Context, folderID string) (model.FolderContents, error)
	CreateFolder(ctx context.Context, name string, parentID string) (model.Folder, error)
	DeleteFolder(ctx context.Context, id string) error
	ListDocuments(ctx context.Context, folderID string) ([]model.Document, error)
	UploadDocument(ctx context.Context, folderID string, name string, r io.Reader, size int64, onSent func(sent int64)) (model.Document, error)
	DeleteDocument(ctx context.Context, id string) error
	ListSharedDocuments(ctx context.Context) ([]model.SharedDocument, error)
	StorageUsage(ctx context.Context) (model.StorageUsage, error)
}

type ViewMode string

const (
	ViewGrid ViewMode = "grid"
	ViewList ViewMode = "list"
)

type SortField string

const (
	SortByName      SortField = "name"
	SortBySize      SortField = "size"
	SortByUpdatedAt SortField = "updated_at"
	SortByType      SortField = "type"
)

type SortOrder string

const (
	Ascending  SortOrder = "asc"
	Descending SortOrder = "desc"
)

// State is a point-in-time copy of the store. Mutating it has no effect on
// the store.
type State struct {
	Folders         []model.Folder
	Documents       []model.Document
	CurrentFolder   *model.Folder
	CurrentFolderID string
	Shared          []model.SharedDocument
	Storage         model.StorageUsage
	ViewMode        ViewMode
	SortBy          SortField
	SortOrder       SortOrder
	Selection       map[ItemKey]struct{}
	Loading         bool
	Error           string
}

// generation tags one collection load. A response is applied only when the
// collection was not reloaded while the request was in flight.
type generation struct {
	seq      uint64
	folderID string
}

type Store struct {
	api API
	log *slog.Logger

	mu    sync.Mutex
	state State

	foldersGen   generation
	documentsGen generation
	foldersOf    string
	documentsOf  string
	sharedGen    uint64
	storageGen   uint64
	inflight     int

	// known remembers every folder seen so breadcrumbs can be rebuilt.
	known map[string]model.Folder

	subMu  sync.Mutex
	nextID int
	subs   map[int]chan struct{}
}

func New(api API, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		api: api,
		log: log.With("component", "store"),
		state: State{
			Folders:   []model.Folder{},
			Documents: []model.Document{},
			Shared:    []model.SharedDocument{},
			ViewMode:  ViewList,
			SortBy:    SortByName,
			SortOrder: Ascending,
			Selection: map[ItemKey]struct{}{},
		},
		known: map[string]model.Folder{},
		subs:  map[int]chan struct{}{},
	}
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// CurrentFolderID is the folder the listing currently shows; "" is the root.
func (s *Store) CurrentFolderID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.CurrentFolderID
}

// Subscribe returns a channel signalled after every state change. Signals
// coalesce; read Snapshot to get the state. Call cancel to unsubscribe.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// update runs fn under the state lock and notifies subscribers afterwards.
func (s *Store) update(fn func(st *State)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) begin() {
	s.update(func(st *State) {
		s.inflight++
		st.Loading = true
	})
}

// end must be called once per begin, inside the same update as the result.
func (s *Store) end(st *State) {
	s.inflight--
	if s.inflight <= 0 {
		s.inflight = 0
		st.Loading = false
	}
}

// fail records err as the slice error and hands it back to the caller.
func (s *Store) fail(st *State, op string, err error) error {
	st.Error = apierror.DisplayMessage(err)
	s.log.Warn("store operation failed", "op", op, "error", err)
	return err
}

func (s *Store) stale(op string) error {
	s.log.Debug("discarding stale response", "op", op)
	return ErrStaleResponse
}

func (s *Store) SetViewMode(mode ViewMode) {
	if mode != ViewGrid && mode != ViewList {
		return
	}
	s.update(func(st *State) { st.ViewMode = mode })
}

func (s *Store) SetSort(field SortField, order SortOrder) {
	switch field {
	case SortByName, SortBySize, SortByUpdatedAt, SortByType:
	default:
		field = SortByName
	}
	if order != Descending {
		order = Ascending
	}
	s.update(func(st *State) {
		st.SortBy = field
		st.SortOrder = order
	})
}

func (s *Store) ClearError() {
	s.update(func(st *State) { st.Error = "" })
}

func (st State) clone() State {
	out := st
	out.Folders = make([]model.Folder, len(st.Folders))
	for i, f := range st.Folders {
		out.Folders[i] = cloneFolder(f)
	}
	out.Documents = make([]model.Document, len(st.Documents))
	for i, d := range st.Documents {
		out.Documents[i] = cloneDocument(d)
	}
	out.Shared = make([]model.SharedDocument, len(st.Shared))
	for i, d := range st.Shared {
		out.Shared[i] = d
		out.Shared[i].Document = cloneDocument(d.Document)
	}
	if st.CurrentFolder != nil {
		f := cloneFolder(*st.CurrentFolder)
		out.CurrentFolder = &f
	}
	out.Selection = make(map[ItemKey]struct{}, len(st.Selection))
	for k := range st.Selection {
		out.Selection[k] = struct{}{}
	}
	return out
}

func cloneFolder(f model.Folder) model.Folder {
	if f.ParentID != nil {
		id := *f.ParentID
		f.ParentID = &id
	}
	return f
}

func cloneDocument(d model.Document) model.Document {
	if d.FolderID != nil {
		id := *d.FolderID
		d.FolderID = &id
	}
	return d
}
