package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
	"go-notes-workspace/internal/store"
	"go-notes-workspace/internal/tokens"
	"go-notes-workspace/internal/upload"
)

func TestFormatSize(t *testing.T) {
	require.Equal(t, "512 B", formatSize(512))
	require.Equal(t, "1.5 KB", formatSize(1536))
	require.Equal(t, "2.0 MB", formatSize(2*1024*1024))
}

func TestFormatBreadcrumbs(t *testing.T) {
	require.Equal(t, "Home", formatBreadcrumbs(nil))
	require.Equal(t, "Home / work / 2026", formatBreadcrumbs([]model.Folder{{Name: "work"}, {Name: "2026"}}))
}

func TestRenderItemsGrid(t *testing.T) {
	var buf bytes.Buffer
	renderItems(&buf, []store.Item{
		{Key: store.FolderKey("1"), Name: "docs"},
		{Key: store.DocumentKey("2"), Name: "a.md"},
	}, store.ViewGrid)

	require.Contains(t, buf.String(), "docs/")
	require.Contains(t, buf.String(), "a.md")
}

func TestRenderTokensUnboundedRunway(t *testing.T) {
	var buf bytes.Buffer
	renderTokens(&buf, tokens.State{Balance: 500, LowBalanceThreshold: 1000, WindowDays: 30})

	require.Contains(t, buf.String(), "Days left:    ∞")
	require.Contains(t, buf.String(), "token balance is low")
}

func TestProgressPrinterSkipsDuplicates(t *testing.T) {
	var buf bytes.Buffer
	p := newProgressPrinter(&buf)
	task := upload.Task{ID: "t1", Name: "a.md", Status: upload.StatusUploading, Progress: 40}

	p.update(task)
	p.update(task)
	task.Status, task.Progress = upload.StatusSuccess, 100
	p.update(task)

	require.Equal(t, 2, bytes.Count(buf.Bytes(), []byte("\n")))
}
