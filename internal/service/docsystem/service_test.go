package docsystem

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforest/internal/attachments"
	"docforest/internal/blob"
	"docforest/internal/crdt/crdttest"
	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
	docsysSvc "docforest/internal/domain/services/docsystem"
	"docforest/internal/mediatypes"
	"docforest/internal/mpath"
	"docforest/internal/repository/memory"
)

type fakeConverter struct {
	update string
	err    error
	calls  int
	last   string
}

func (c *fakeConverter) Markdown(ctx context.Context, markdown string) (string, error) {
	c.calls++
	c.last = markdown
	return c.update, c.err
}

type env struct {
	docs      docsysSvc.DocumentService
	tree      docsysSvc.TreeService
	content   docsysSvc.ContentService
	favorites docsysSvc.FavoriteService
	store     *blob.MemoryStore
	converter *fakeConverter
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := memory.NewStore(mpath.Default, logger)
	docRepo := memory.NewDocumentRepository(s)
	accessRepo := memory.NewAccessRepository(s)
	favRepo := memory.NewFavoriteRepository(s)

	types, err := mediatypes.Load()
	require.NoError(t, err)

	e := &env{store: blob.NewMemoryStore(), converter: &fakeConverter{}}
	e.docs = NewDocumentService(docRepo, accessRepo, memory.NewTransactionManager(), mpath.Default, logger)
	e.tree = NewTreeService(docRepo, accessRepo, logger)
	e.content = NewContentService(docRepo, accessRepo, e.store, attachments.New("/media/", logger), types, e.converter, logger)
	e.favorites = NewFavoriteService(docRepo, accessRepo, favRepo, logger)
	return e
}

func strPtr(s string) *string { return &s }

func (e *env) create(t *testing.T, user, title string, ref *models.Document, pos models.Position) *models.Document {
	t.Helper()
	req := &docsysSvc.CreateDocumentRequest{UserID: user, Position: pos, Title: strPtr(title)}
	if ref != nil {
		req.Reference = ref.ID
	}
	doc, err := e.docs.CreateDocument(context.Background(), req)
	require.NoError(t, err)
	return doc
}

func TestCreateDocument_OwnerAndPlacement(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	root := e.create(t, "alice", "root", nil, models.PositionLastChild)
	assert.Equal(t, "0001", root.Path)
	child := e.create(t, "alice", "child", root, models.PositionLastChild)
	assert.Equal(t, "00010001", child.Path)

	// a sibling of a root is a new root, which only needs read access
	sibling := e.create(t, "alice", "next", root, models.PositionRight)
	assert.Equal(t, "0002", sibling.Path)

	got, err := e.docs.GetDocument(ctx, "alice", child.ID)
	require.NoError(t, err)
	assert.Equal(t, "child", *got.Title)

	// other users cannot tell the document exists
	_, err = e.docs.GetDocument(ctx, "bob", child.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateDocument_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  *docsysSvc.CreateDocumentRequest
	}{
		{"missing user", &docsysSvc.CreateDocumentRequest{Position: models.PositionLastChild}},
		{"invalid position", &docsysSvc.CreateDocumentRequest{UserID: "alice"}},
		{"sibling without reference", &docsysSvc.CreateDocumentRequest{UserID: "alice", Position: models.PositionLeft}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.docs.CreateDocument(ctx, tt.req)
			assert.True(t, errors.Is(err, domain.ErrValidation), "got %v", err)
		})
	}
}

func TestCreateDocument_RequiresEditorOnParent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	root := e.create(t, "alice", "root", nil, models.PositionLastChild)
	child := e.create(t, "alice", "child", root, models.PositionLastChild)

	// no role at all looks like a missing document
	_, err := e.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{UserID: "bob", Reference: root.ID, Position: models.PositionLastChild})
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	memAccess(t, e, root, "bob", models.RoleReader)
	_, err = e.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{UserID: "bob", Reference: root.ID, Position: models.PositionLastChild})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	_, err = e.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{UserID: "bob", Reference: child.ID, Position: models.PositionRight})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	// readers may still start a new tree next to a root
	doc, err := e.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{UserID: "bob", Reference: root.ID, Position: models.PositionRight})
	require.NoError(t, err)
	assert.True(t, doc.IsRoot())
}

func TestUpdateDocument_SetAndClearTitle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "draft", nil, models.PositionLastChild)

	got, err := e.docs.UpdateDocument(ctx, "alice", doc.ID, &docsysSvc.UpdateDocumentRequest{})
	require.NoError(t, err)
	assert.Equal(t, "draft", *got.Title)

	got, err = e.docs.UpdateDocument(ctx, "alice", doc.ID, &docsysSvc.UpdateDocumentRequest{
		Title: docsysSvc.OptionalString{Set: true, Value: strPtr("final")},
	})
	require.NoError(t, err)
	assert.Equal(t, "final", *got.Title)

	got, err = e.docs.UpdateDocument(ctx, "alice", doc.ID, &docsysSvc.UpdateDocumentRequest{
		Title: docsysSvc.OptionalString{Set: true},
	})
	require.NoError(t, err)
	assert.Nil(t, got.Title)
}

func TestDeleteDocument_RequiresOwner(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	root := e.create(t, "alice", "root", nil, models.PositionLastChild)
	child := e.create(t, "alice", "child", root, models.PositionLastChild)
	memAccess(t, e, root, "bob", models.RoleEditor)

	err := e.docs.DeleteDocument(ctx, "bob", root.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	require.NoError(t, e.docs.DeleteDocument(ctx, "alice", root.ID))
	_, err = e.docs.GetDocument(ctx, "alice", child.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestMoveDocument(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.create(t, "alice", "A", nil, models.PositionLastChild)
	a1 := e.create(t, "alice", "a1", a, models.PositionLastChild)
	a2 := e.create(t, "alice", "a2", a, models.PositionLastChild)
	x := e.create(t, "alice", "x", a2, models.PositionLastChild)

	moved, err := e.docs.MoveDocument(ctx, "alice", &docsysSvc.MoveDocumentRequest{Subject: a2.ID, Reference: a1.ID, Position: models.PositionLeft})
	require.NoError(t, err)
	assert.Equal(t, a2.ID, moved.ID)

	kids, err := e.tree.Children(ctx, "alice", a.ID)
	require.NoError(t, err)
	require.Len(t, kids, 2)
	assert.Equal(t, []string{"a2", "a1"}, []string{*kids[0].Title, *kids[1].Title})

	_, err = e.docs.MoveDocument(ctx, "alice", &docsysSvc.MoveDocumentRequest{Subject: a2.ID, Reference: x.ID, Position: models.PositionLastChild})
	assert.True(t, errors.Is(err, domain.ErrCycle))

	_, err = e.docs.MoveDocument(ctx, "alice", &docsysSvc.MoveDocumentRequest{Subject: a2.ID, Reference: a1.ID})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	// a reader of the subject cannot move it
	memAccess(t, e, a, "bob", models.RoleReader)
	_, err = e.docs.MoveDocument(ctx, "bob", &docsysSvc.MoveDocumentRequest{Subject: a1.ID, Reference: a2.ID, Position: models.PositionRight})
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	// a root cannot become a sibling of a nested document, whatever the caller's role there
	r := e.create(t, "bob", "R", nil, models.PositionLastChild)
	_, err = e.docs.MoveDocument(ctx, "bob", &docsysSvc.MoveDocumentRequest{Subject: r.ID, Reference: a1.ID, Position: models.PositionLeft})
	assert.True(t, errors.Is(err, domain.ErrInvalidTarget))
	assert.False(t, errors.Is(err, domain.ErrForbidden))
}

func TestTree_AncestorsDescendantsAndNesting(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.create(t, "alice", "A", nil, models.PositionLastChild)
	a1 := e.create(t, "alice", "Report one", a, models.PositionLastChild)
	a2 := e.create(t, "alice", "notes", a, models.PositionLastChild)
	x := e.create(t, "alice", "report two", a2, models.PositionLastChild)

	page, err := e.tree.Descendants(ctx, "alice", a.ID, models.DescendantFilters{Title: "report"}, models.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, a1.ID, page.Results[0].ID)
	assert.Equal(t, x.ID, page.Results[1].ID)

	tree, err := e.tree.Tree(ctx, "alice", a.ID)
	require.NoError(t, err)
	require.Len(t, tree.Children, 2)
	require.Len(t, tree.Children[1].Children, 1)
	assert.Equal(t, x.ID, tree.Children[1].Children[0].ID)

	// bob only sees ancestors from the level they were granted on
	memAccess(t, e, a2, "bob", models.RoleReader)
	ancestors, err := e.tree.Ancestors(ctx, "bob", x.ID)
	require.NoError(t, err)
	require.Len(t, ancestors, 1)
	assert.Equal(t, a2.ID, ancestors[0].ID)

	ancestors, err = e.tree.Ancestors(ctx, "alice", x.ID)
	require.NoError(t, err)
	assert.Len(t, ancestors, 2)
}

func TestTree_Roots(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.create(t, "alice", "A", nil, models.PositionLastChild)
	a1 := e.create(t, "alice", "a1", a, models.PositionLastChild)
	x := e.create(t, "alice", "x", a1, models.PositionLastChild)
	b := e.create(t, "alice", "B", nil, models.PositionLastChild)

	// every created document carries an owner grant; only the tops are listed
	roots, err := e.tree.Roots(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, roots, 2)
	assert.Equal(t, a.ID, roots[0].ID)
	assert.Equal(t, b.ID, roots[1].ID)

	memAccess(t, e, x, "bob", models.RoleReader)
	memAccess(t, e, a1, "bob", models.RoleReader)
	roots, err = e.tree.Roots(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, roots, 1)
	assert.Equal(t, a1.ID, roots[0].ID)

	require.NoError(t, e.docs.DeleteDocument(ctx, "alice", a.ID))
	roots, err = e.tree.Roots(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, roots)
}

func TestFavorites(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.create(t, "alice", "A", nil, models.PositionLastChild)
	a1 := e.create(t, "alice", "a1", a, models.PositionLastChild)

	err := e.favorites.AddFavorite(ctx, "bob", a1.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, e.favorites.AddFavorite(ctx, "alice", a.ID))
	require.NoError(t, e.favorites.AddFavorite(ctx, "alice", a1.ID))
	require.NoError(t, e.favorites.AddFavorite(ctx, "alice", a1.ID))

	page, err := e.favorites.ListFavorites(ctx, "alice", models.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)

	require.NoError(t, e.favorites.RemoveFavorite(ctx, "alice", a.ID))
	page, err = e.favorites.ListFavorites(ctx, "alice", models.ListOptions{})
	require.NoError(t, err)
	require.Len(t, page.Results, 1)
	assert.Equal(t, a1.ID, page.Results[0].ID)
}

func TestPutContent_StoresBlobAndAttachments(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "A", nil, models.PositionLastChild)

	key := doc.ID + "/attachments/5a8e2c40-1f0d-4b6a-8e3f-2d9c7b1a0e55.png"
	update := crdttest.Images("caption", "/media/"+key).Base64()

	got, err := e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{Content: &update})
	require.NoError(t, err)
	assert.Equal(t, []string{key}, got.Attachments)
	require.NotNil(t, got.ContentRef)
	assert.Equal(t, models.ContentKey(doc.ID), *got.ContentRef)

	info, err := e.store.Head(ctx, models.ContentKey(doc.ID))
	require.NoError(t, err)
	assert.Equal(t, "application/octet-stream", info.ContentType)
	assert.Equal(t, "alice", info.Metadata["owner"])
}

func TestPutContent_Markdown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "A", nil, models.PositionLastChild)

	e.converter.update = crdttest.Images("hello").Base64()
	_, err := e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{Markdown: strPtr("# hello")})
	require.NoError(t, err)
	assert.Equal(t, 1, e.converter.calls)

	e.converter.err = &domain.ServiceUnavailableError{Service: "conversion service", Err: errors.New("timeout")}
	_, err = e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{Markdown: strPtr("# hello")})
	assert.True(t, errors.Is(err, domain.ErrServiceUnavailable))
}

func TestPutContent_HTML(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "A", nil, models.PositionLastChild)

	e.converter.update = crdttest.Images("hello").Base64()
	html := `<h2>Notes</h2><script>alert(1)</script><p>hello</p>`
	_, err := e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{HTML: &html})
	require.NoError(t, err)
	assert.Equal(t, 1, e.converter.calls)
	assert.Contains(t, e.converter.last, "## Notes")
	assert.NotContains(t, e.converter.last, "alert")

	_, err = e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{HTML: &html, Markdown: strPtr("x")})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

func TestPutContent_Errors(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "A", nil, models.PositionLastChild)

	_, err := e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{Content: strPtr("AA=="), Markdown: strPtr("x")})
	assert.True(t, errors.Is(err, domain.ErrValidation))

	_, err = e.content.PutContent(ctx, "alice", doc.ID, &docsysSvc.PutContentRequest{Content: strPtr("%%%")})
	assert.True(t, errors.Is(err, domain.ErrDecodeFailed))

	memAccess(t, e, doc, "bob", models.RoleReader)
	_, err = e.content.PutContent(ctx, "bob", doc.ID, &docsysSvc.PutContentRequest{Content: strPtr("AA==")})
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}

func TestUploadAttachment(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	doc := e.create(t, "alice", "A", nil, models.PositionLastChild)

	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")
	att, err := e.content.UploadAttachment(ctx, "alice", doc.ID, &docsysSvc.UploadAttachmentRequest{Filename: "dot.png", Data: png})
	require.NoError(t, err)
	assert.Equal(t, "image/png", att.ContentType)
	assert.False(t, att.Unsafe)
	assert.Regexp(t, `^`+doc.ID+`/attachments/[0-9a-f-]{36}\.png$`, att.Key)
	assert.Equal(t, "/media/"+att.Key, att.URL)

	html := []byte("<html><body><script>alert(1)</script></body></html>")
	att, err = e.content.UploadAttachment(ctx, "alice", doc.ID, &docsysSvc.UploadAttachmentRequest{Filename: "x.html", Data: html})
	require.NoError(t, err)
	assert.True(t, att.Unsafe)
	assert.Regexp(t, `-unsafe\.html$`, att.Key)

	info, err := e.store.Head(ctx, att.Key)
	require.NoError(t, err)
	assert.Equal(t, "text/html", info.ContentType)

	_, err = e.content.UploadAttachment(ctx, "alice", doc.ID, &docsysSvc.UploadAttachmentRequest{Filename: "empty"})
	assert.True(t, errors.Is(err, domain.ErrValidation))
}

// memAccess grants a role through the access guard's repository.
func memAccess(t *testing.T, e *env, doc *models.Document, user string, role models.Role) {
	t.Helper()
	g := e.docs.(*documentService).access
	require.NoError(t, g.Grant(context.Background(), &models.Access{DocumentID: doc.ID, UserID: user, Role: role}))
}
