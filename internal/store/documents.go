package store

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/pkg/apierror"
)

// File is an upload source. Open is called once per upload attempt.
type File struct {
	Name string
	Size int64
	Open func() (io.ReadCloser, error)
}

// LocalFile describes a file on disk as an upload source.
func LocalFile(path string) (File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return File{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return File{}, apierror.Validation("cannot upload a directory", path)
	}
	return File{
		Name: filepath.Base(path),
		Size: info.Size(),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}, nil
}

// Progress reports how much of one upload reached the server.
type Progress struct {
	Sent    int64
	Total   int64
	Percent int
}

// LoadDocuments replaces the document listing with the contents of folderID.
func (s *Store) LoadDocuments(ctx context.Context, folderID string) error {
	var tag generation
	s.update(func(st *State) {
		s.documentsGen = generation{seq: s.documentsGen.seq + 1, folderID: folderID}
		tag = s.documentsGen
		s.inflight++
		st.Loading = true
	})

	docs, err := s.api.ListDocuments(ctx, folderID)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if s.documentsGen != tag {
			result = s.stale("load_documents")
			return
		}
		if err != nil {
			result = s.fail(st, "load_documents", err)
			return
		}
		st.Documents = orEmpty(docs)
		s.documentsOf = tag.folderID
		st.Error = ""
		pruneSelection(st)
	})
	return result
}

// UploadDocument uploads file into folderID ("" is the root). When progress
// is non-nil it receives non-decreasing percentages from 0 to 100 and is
// closed by the store when the upload ends. The caller must drain it.
func (s *Store) UploadDocument(ctx context.Context, file File, folderID string, progress chan<- Progress) (model.Document, error) {
	reporter := newProgressReporter(ctx, progress, file.Size)
	defer reporter.close()

	if file.Name == "" || file.Open == nil {
		var err error
		s.update(func(st *State) {
			err = s.fail(st, "upload_document", apierror.Validation("file is required", ""))
		})
		return model.Document{}, err
	}

	body, err := file.Open()
	if err != nil {
		var result error
		s.update(func(st *State) {
			result = s.fail(st, "upload_document", apierror.Validation("cannot read file", err.Error()))
		})
		return model.Document{}, result
	}
	defer body.Close()

	s.begin()
	reporter.report(0)

	doc, err := s.api.UploadDocument(ctx, folderID, file.Name, body, file.Size, reporter.report)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if err != nil {
			result = s.fail(st, "upload_document", err)
			return
		}
		s.invalidateDocuments(model.Deref(doc.FolderID))
		if s.documentsOf == model.Deref(doc.FolderID) {
			st.Documents = upsertDocument(st.Documents, doc)
		}
	})
	if result == nil {
		reporter.finish()
	}
	return doc, result
}

// DeleteDocument removes id once the server confirms.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.begin()

	err := s.api.DeleteDocument(ctx, id)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if err != nil {
			result = s.fail(st, "delete_document", err)
			return
		}
		s.invalidateDocuments(s.documentsOf)
		st.Documents = slices.DeleteFunc(st.Documents, func(d model.Document) bool { return d.ID == id })
		delete(st.Selection, ItemKey{Kind: KindDocument, ID: id})
	})
	return result
}

func (s *Store) LoadSharedDocuments(ctx context.Context) error {
	var tag uint64
	s.update(func(st *State) {
		s.sharedGen++
		tag = s.sharedGen
		s.inflight++
		st.Loading = true
	})

	shared, err := s.api.ListSharedDocuments(ctx)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if s.sharedGen != tag {
			result = s.stale("load_shared_documents")
			return
		}
		if err != nil {
			result = s.fail(st, "load_shared_documents", err)
			return
		}
		st.Shared = orEmpty(shared)
	})
	return result
}

func (s *Store) LoadStorageUsage(ctx context.Context) error {
	var tag uint64
	s.update(func(st *State) {
		s.storageGen++
		tag = s.storageGen
		s.inflight++
		st.Loading = true
	})

	usage, err := s.api.StorageUsage(ctx)

	var result error
	s.update(func(st *State) {
		s.end(st)
		if s.storageGen != tag {
			result = s.stale("load_storage_usage")
			return
		}
		if err != nil {
			result = s.fail(st, "load_storage_usage", err)
			return
		}
		st.Storage = model.NewStorageUsage(usage.UsedBytes, usage.TotalBytes)
	})
	return result
}

func (s *Store) invalidateDocuments(folderID string) {
	if s.documentsGen.folderID == folderID {
		s.documentsGen.seq++
	}
}

func upsertDocument(docs []model.Document, doc model.Document) []model.Document {
	if i := slices.IndexFunc(docs, func(d model.Document) bool { return d.ID == doc.ID }); i >= 0 {
		docs[i] = cloneDocument(doc)
		return docs
	}
	return append(docs, cloneDocument(doc))
}

// progressReporter turns byte counts into clamped, non-decreasing
// percentages. 100 is only sent once the server accepted the document.
type progressReporter struct {
	ctx   context.Context
	ch    chan<- Progress
	total int64

	mu     sync.Mutex
	last   int
	closed bool
}

func newProgressReporter(ctx context.Context, ch chan<- Progress, total int64) *progressReporter {
	return &progressReporter{ctx: ctx, ch: ch, total: total, last: -1}
}

func (p *progressReporter) report(sent int64) {
	pct := 0
	if p.total > 0 {
		pct = int(sent * 100 / p.total)
	}
	p.send(sent, min(max(pct, 0), 99))
}

func (p *progressReporter) finish() {
	p.send(p.total, 100)
}

func (p *progressReporter) send(sent int64, pct int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch == nil || p.closed || pct <= p.last {
		return
	}
	p.last = pct
	select {
	case p.ch <- Progress{Sent: sent, Total: p.total, Percent: pct}:
	case <-p.ctx.Done():
	}
}

func (p *progressReporter) close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil && !p.closed {
		close(p.ch)
	}
	p.closed = true
}
