package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docforest/internal/domain"
	models "docforest/internal/domain/models/docsystem"
)

func TestRoleFor_InheritsStrongest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	access := NewAccessRepository(f.s)

	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.A.ID, UserID: "u1", Role: models.RoleReader}))
	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.a2.ID, UserID: "u1", Role: models.RoleEditor}))

	tests := []struct {
		doc  *models.Document
		user string
		want models.Role
	}{
		{f.A, "u1", models.RoleReader},
		{f.a1, "u1", models.RoleReader},
		{f.a2, "u1", models.RoleEditor},
		{f.x, "u1", models.RoleEditor},
		{f.B, "u1", ""},
		{f.x, "u2", ""},
	}
	for _, tt := range tests {
		role, err := access.RoleFor(ctx, tt.user, get(t, f.r, tt.doc))
		require.NoError(t, err)
		assert.Equal(t, tt.want, role, "%s on %s", tt.user, *tt.doc.Title)
	}

	// access follows the document when it moves
	f.move(t, f.a2, f.B, models.PositionLastChild)
	role, err := access.RoleFor(ctx, "u1", get(t, f.r, f.x))
	require.NoError(t, err)
	assert.Equal(t, models.RoleEditor, role)

	require.NoError(t, access.Revoke(ctx, f.a2.ID, "u1"))
	role, err = access.RoleFor(ctx, "u1", get(t, f.r, f.x))
	require.NoError(t, err)
	assert.Equal(t, models.Role(""), role)
}

func TestGrant_UnknownDocument(t *testing.T) {
	s, _ := newTestStore(t)
	err := NewAccessRepository(s).Grant(context.Background(), &models.Access{DocumentID: "missing", UserID: "u1", Role: models.RoleOwner})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestFavorites_ListAccessible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	access := NewAccessRepository(f.s)
	favs := NewFavoriteRepository(f.s)

	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.A.ID, UserID: "u1", Role: models.RoleOwner}))
	for _, d := range []*models.Document{f.a1, f.B, f.x, f.a3} {
		require.NoError(t, favs.Add(ctx, "u1", d.ID))
	}
	require.NoError(t, favs.Add(ctx, "u1", f.a1.ID))

	page, err := favs.ListAccessible(ctx, "u1", models.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Count)
	assert.Equal(t, []string{"a3", "x", "a1"}, titles(page.Results))

	ok, err := favs.IsFavorite(ctx, "u1", f.B.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, f.r.SoftDelete(ctx, f.a2.ID))
	page, err = favs.ListAccessible(ctx, "u1", models.ListOptions{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Count)
	assert.Equal(t, []string{"a3"}, titles(page.Results))

	require.NoError(t, access.Revoke(ctx, f.A.ID, "u1"))
	page, err = favs.ListAccessible(ctx, "u1", models.ListOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Count)
	assert.Empty(t, page.Results)

	require.NoError(t, favs.Remove(ctx, "u1", f.B.ID))
	ok, err = favs.IsFavorite(ctx, "u1", f.B.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFavorites_AddRequiresLiveDocument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.r.SoftDelete(ctx, f.a1.ID))

	err := NewFavoriteRepository(f.s).Add(ctx, "u1", f.a1.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestHardDelete_DropsAccessAndFavorites(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	access := NewAccessRepository(f.s)
	favs := NewFavoriteRepository(f.s)

	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.x.ID, UserID: "u1", Role: models.RoleReader}))
	require.NoError(t, favs.Add(ctx, "u1", f.x.ID))
	require.NoError(t, f.r.HardDelete(ctx, f.a2.ID))

	ok, err := favs.IsFavorite(ctx, "u1", f.x.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 2, get(t, f.r, f.A).NumChild)
	require.NoError(t, f.s.checkInvariants())
}

func TestListGranted_SortedByPath(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	access := NewAccessRepository(f.s)

	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.x.ID, UserID: "u1", Role: models.RoleReader}))
	require.NoError(t, access.Grant(ctx, &models.Access{DocumentID: f.A.ID, UserID: "u1", Role: models.RoleOwner}))

	docs, err := access.ListGranted(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, f.A.ID, docs[0].ID)
	assert.Equal(t, f.x.ID, docs[1].ID)

	docs, err = access.ListGranted(ctx, "u2")
	require.NoError(t, err)
	assert.Empty(t, docs)
}
