// Package upload runs batches of file uploads with bounded concurrency.
// Each file is an independent task; one failure never affects another.
package upload

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/store"
	"go-notes-workspace/pkg/apierror"
)

const (
	DefaultConcurrency = 3
	subscriberBuffer   = 256
)

var (
	ErrTaskNotFound = errors.New("upload task not found")
	ErrTaskActive   = errors.New("upload task still in progress")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

// Uploader is satisfied by *store.Store.
type Uploader interface {
	UploadDocument(ctx context.Context, file store.File, folderID string, progress chan<- store.Progress) (model.Document, error)
	CurrentFolderID() string
}

type Task struct {
	ID        string
	BatchID   string
	Name      string
	Size      int64
	FolderID  string
	Status    Status
	Progress  int
	Document  *model.Document
	Error     string
	UpdatedAt time.Time
}

type Event struct {
	Task Task
}

type Pipeline struct {
	uploader    Uploader
	log         *slog.Logger
	concurrency int

	mu    sync.Mutex
	tasks map[string]*Task
	order []string

	subMu   sync.Mutex
	nextSub int
	subs    map[int]chan Event
}

func New(uploader Uploader, log *slog.Logger, concurrency int) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Pipeline{
		uploader:    uploader,
		log:         log.With("component", "upload"),
		concurrency: concurrency,
		tasks:       map[string]*Task{},
		subs:        map[int]chan Event{},
	}
}

// Batch is one Drop call.
type Batch struct {
	ID      string
	TaskIDs []string

	pipeline *Pipeline
	done     chan struct{}
}

// Wait blocks until every task of the batch is terminal and returns them in
// drop order.
func (b *Batch) Wait() []Task {
	<-b.done
	out := make([]Task, 0, len(b.TaskIDs))
	for _, id := range b.TaskIDs {
		if t, ok := b.pipeline.Task(id); ok {
			out = append(out, t)
		}
	}
	return out
}

func (b *Batch) Done() <-chan struct{} {
	return b.done
}

// Drop queues files for upload into targetFolderID, or into the current
// folder when it is empty. It returns immediately.
func (p *Pipeline) Drop(ctx context.Context, files []store.File, targetFolderID string) *Batch {
	if targetFolderID == "" {
		targetFolderID = p.uploader.CurrentFolderID()
	}

	batch := &Batch{ID: uuid.NewString(), pipeline: p, done: make(chan struct{})}
	created := make([]Task, 0, len(files))

	p.mu.Lock()
	for _, f := range files {
		t := &Task{
			ID:        uuid.NewString(),
			BatchID:   batch.ID,
			Name:      f.Name,
			Size:      f.Size,
			FolderID:  targetFolderID,
			Status:    StatusPending,
			UpdatedAt: time.Now(),
		}
		p.tasks[t.ID] = t
		p.order = append(p.order, t.ID)
		batch.TaskIDs = append(batch.TaskIDs, t.ID)
		created = append(created, *t)
	}
	p.mu.Unlock()

	for _, t := range created {
		p.publish(t)
	}

	p.log.Info("upload batch queued", "batch_id", batch.ID, "files", len(files), "folder_id", targetFolderID)

	go func() {
		defer close(batch.done)

		var g errgroup.Group
		g.SetLimit(p.concurrency)
		for i, f := range files {
			f := f
			id := batch.TaskIDs[i]
			g.Go(func() error {
				p.run(ctx, id, f, targetFolderID)
				return nil
			})
		}
		_ = g.Wait()
	}()

	return batch
}

func (p *Pipeline) run(ctx context.Context, id string, file store.File, folderID string) {
	if err := ctx.Err(); err != nil {
		p.finish(id, nil, apierror.Network(err))
		return
	}

	p.transition(id, func(t *Task) {
		t.Status = StatusUploading
		t.Progress = 0
	})

	progress := make(chan store.Progress)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for pr := range progress {
			p.transition(id, func(t *Task) {
				if pr.Percent > t.Progress {
					t.Progress = pr.Percent
				}
			})
		}
	}()

	doc, err := p.uploader.UploadDocument(ctx, file, folderID, progress)
	<-drained

	if err != nil {
		p.log.Warn("upload failed", "task_id", id, "name", file.Name, "error", err)
		p.finish(id, nil, err)
		return
	}
	p.finish(id, &doc, nil)
}

func (p *Pipeline) finish(id string, doc *model.Document, err error) {
	p.transition(id, func(t *Task) {
		if err != nil {
			t.Status = StatusFailed
			t.Error = apierror.DisplayMessage(err)
			return
		}
		t.Status = StatusSuccess
		t.Progress = 100
		t.Document = doc
	})
}

// transition applies fn unless the task already reached a terminal state.
func (p *Pipeline) transition(id string, fn func(t *Task)) {
	p.mu.Lock()
	t, ok := p.tasks[id]
	if !ok || t.Status.Terminal() {
		p.mu.Unlock()
		return
	}
	before := *t
	fn(t)
	if *t == before {
		p.mu.Unlock()
		return
	}
	t.UpdatedAt = time.Now()
	snapshot := *t
	p.mu.Unlock()

	p.publish(snapshot)
}

func (p *Pipeline) Task(id string) (Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[id]
	if !ok {
		return Task{}, false
	}
	return *t, true
}

// Tasks returns every tracked task in drop order.
func (p *Pipeline) Tasks() []Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Task, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.tasks[id])
	}
	return out
}

// Acknowledge forgets a finished task. Failed tasks are never retried on
// their own; dropping the file again starts a new task.
func (p *Pipeline) Acknowledge(id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	t, ok := p.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if !t.Status.Terminal() {
		return ErrTaskActive
	}
	delete(p.tasks, id)
	p.order = slices.DeleteFunc(p.order, func(v string) bool { return v == id })
	return nil
}

// Subscribe streams task changes. Slow subscribers miss events rather than
// stall uploads; Tasks always has the current state.
func (p *Pipeline) Subscribe() (<-chan Event, func()) {
	p.subMu.Lock()
	defer p.subMu.Unlock()

	id := p.nextSub
	p.nextSub++
	ch := make(chan Event, subscriberBuffer)
	p.subs[id] = ch

	return ch, func() {
		p.subMu.Lock()
		defer p.subMu.Unlock()
		if c, ok := p.subs[id]; ok {
			delete(p.subs, id)
			close(c)
		}
	}
}

func (p *Pipeline) publish(t Task) {
	p.subMu.Lock()
	defer p.subMu.Unlock()
	for _, ch := range p.subs {
		select {
		case ch <- Event{Task: t}:
		default:
		}
	}
}
