//go:build integration

package integration

import (
	"bytes"
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-notes-workspace/internal/model"
)

func TestAuthFlowAndProtectedEndpoints(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()

	c, username := signUp(t, server)

	me, err := c.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, username, me.Username)

	_, oldRefresh := c.Tokens()
	_, err = c.Refresh(ctx)
	require.NoError(t, err)
	_, newRefresh := c.Tokens()
	assert.NotEqual(t, oldRefresh, newRefresh)

	resp, err := http.Get(server.URL + "/api/v1/folders")
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	require.NoError(t, c.Logout(ctx))
}

func TestWrongPasswordIsRejected(t *testing.T) {
	server := newServer(t)

	_, username := signUp(t, server)
	_, err := newClient(server).Login(context.Background(), username, "not-the-password")

	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, statusOf(err))
}

func TestFolderDocumentLifecycle(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	c, _ := signUp(t, server)

	notes, err := c.CreateFolder(ctx, "notes", "")
	require.NoError(t, err)
	drafts, err := c.CreateFolder(ctx, "drafts", notes.ID)
	require.NoError(t, err)

	content := "# plan\n\nship it\n"
	doc, err := c.UploadDocument(ctx, drafts.ID, "plan.md", strings.NewReader(content), int64(len(content)), nil)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), doc.Size)

	contents, err := c.GetFolderContents(ctx, drafts.ID)
	require.NoError(t, err)
	require.Len(t, contents.Documents, 1)
	assert.Equal(t, "plan.md", contents.Documents[0].Name)
	require.NotNil(t, contents.CurrentFolder)
	assert.Equal(t, "drafts", contents.CurrentFolder.Name)

	root, err := c.GetFolderContents(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, root.CurrentFolder)
	require.Len(t, root.Folders, 1)

	usage, err := c.StorageUsage(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(len(content)), usage.UsedBytes)

	require.NoError(t, c.DeleteFolder(ctx, notes.ID))

	_, err = c.GetFolderContents(ctx, drafts.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, statusOf(err))

	usage, err = c.StorageUsage(ctx)
	require.NoError(t, err)
	assert.Zero(t, usage.UsedBytes)
}

func TestUploadOverQuotaIsRejected(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	c, _ := signUp(t, server)

	big := bytes.Repeat([]byte("x"), 400*1024)
	_, err := c.UploadDocument(ctx, "", "one.txt", bytes.NewReader(big), int64(len(big)), nil)
	require.NoError(t, err)
	_, err = c.UploadDocument(ctx, "", "two.txt", bytes.NewReader(big), int64(len(big)), nil)
	require.NoError(t, err)

	_, err = c.UploadDocument(ctx, "", "three.txt", bytes.NewReader(big), int64(len(big)), nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(err))

	docs, err := c.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestShareIsPushedAndListed(t *testing.T) {
	server := newServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	owner, ownerName := signUp(t, server)
	reader, readerName := signUp(t, server)

	stream, err := reader.Notifications(ctx)
	require.NoError(t, err)

	doc, err := owner.UploadDocument(ctx, "", "shared.md", strings.NewReader("hello"), 5, nil)
	require.NoError(t, err)

	// Give the hub a moment to register the socket before publishing.
	time.Sleep(100 * time.Millisecond)

	_, err = owner.ShareDocument(ctx, doc.ID, readerName, model.PermissionView)
	require.NoError(t, err)

	select {
	case n, ok := <-stream:
		require.True(t, ok)
		assert.Equal(t, model.NotificationDocumentShared, n.Type)
	case <-ctx.Done():
		t.Fatal("no notification received")
	}

	incoming, err := reader.ListSharedDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, doc.ID, incoming[0].ID)
	assert.Equal(t, ownerName, incoming[0].SharedBy.Username)
	assert.Equal(t, model.PermissionView, incoming[0].Permission)

	_, err = owner.ShareDocument(ctx, doc.ID, ownerName, model.PermissionView)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, statusOf(err))
}

func TestTokenConsumption(t *testing.T) {
	server := newServer(t)
	ctx := context.Background()
	c, _ := signUp(t, server)

	account, err := c.TokenBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(testTokenGrant), account.Balance)

	account, err = c.ConsumeTokens(ctx, 250, "summarize")
	require.NoError(t, err)
	assert.Equal(t, int64(testTokenGrant-250), account.Balance)

	_, err = c.ConsumeTokens(ctx, testTokenGrant, "summarize")
	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, statusOf(err))

	daily, err := c.TokenDailyUsage(ctx, 7)
	require.NoError(t, err)
	require.Len(t, daily, 7)
	assert.Equal(t, int64(250), daily[len(daily)-1].Tokens)

	breakdown, err := c.TokenBreakdown(ctx, 7)
	require.NoError(t, err)
	require.Len(t, breakdown, 1)
	assert.Equal(t, "summarize", breakdown[0].Feature)
	assert.InDelta(t, 100.0, breakdown[0].Percentage, 0.001)
}

func TestHealth(t *testing.T) {
	server := newServer(t)
	require.NoError(t, newClient(server).Health(context.Background()))
}
