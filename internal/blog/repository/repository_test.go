package repository

import (
	"context"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/sachtalks/sachtalks-api/internal/blog"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docclient"
	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/stretchr/testify/require"
)

func newRepo() *DocRepo {
	return NewDocRepo(docclient.New(docclient.NewLocalTransport(dispatch.New(docstore.NewMemoryStore()))))
}

func str(s string) *string { return &s }

func TestDocRepo_CreateRoundTrip(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	before := time.Now().UTC().Truncate(time.Millisecond)

	in := blog.Input{Title: "Hello", Slug: "hello", Content: "body", Excerpt: str("short"), Category: str("news"), Published: true}
	created, err := r.Create(ctx, in)
	require.NoError(t, err)
	require.Len(t, created.ID, 24)

	got, err := r.GetBySlug(ctx, "hello")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, "Hello", got.Title)
	require.Equal(t, "body", got.Content)
	require.Equal(t, "short", *got.Excerpt)
	require.Equal(t, "news", *got.Category)
	require.True(t, got.Published)
	require.False(t, got.Deleted)

	ts, err := time.Parse(TimeLayout, got.CreatedAt)
	require.NoError(t, err)
	require.False(t, ts.Before(before), "createdAt %s earlier than call time %s", ts, before)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, *got, all[0])
}

func TestDocRepo_VisibilityLifecycle(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	created, err := r.Create(ctx, blog.Input{Title: "Draft", Slug: "draft", Content: "c"})
	require.NoError(t, err)

	pub, err := r.ListPublished(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, pub)

	require.NoError(t, r.Update(ctx, created.ID, map[string]interface{}{"published": true}))
	pub, err = r.ListPublished(ctx, 0)
	require.NoError(t, err)
	require.Len(t, pub, 1)

	require.NoError(t, r.SoftDelete(ctx, created.ID))
	pub, err = r.ListPublished(ctx, 0)
	require.NoError(t, err)
	require.Empty(t, pub)
	got, err := r.GetBySlug(ctx, "draft")
	require.NoError(t, err)
	require.Nil(t, got)

	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Deleted)
	require.False(t, all[0].Published)
}

func TestDocRepo_UpdateNeverLeavesDeletedAndPublished(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	created, err := r.Create(ctx, blog.Input{Title: "Live", Slug: "live", Content: "c", Published: true})
	require.NoError(t, err)

	require.NoError(t, r.Update(ctx, created.ID, map[string]interface{}{"deleted": true}))
	all, err := r.ListAll(ctx)
	require.NoError(t, err)
	require.True(t, all[0].Deleted)
	require.False(t, all[0].Published)

	require.NoError(t, r.Update(ctx, created.ID, map[string]interface{}{"deleted": true, "published": true}))
	all, err = r.ListAll(ctx)
	require.NoError(t, err)
	require.True(t, all[0].Deleted)
	require.False(t, all[0].Published)

	require.NoError(t, r.Update(ctx, created.ID, map[string]interface{}{"published": true}))
	all, err = r.ListAll(ctx)
	require.NoError(t, err)
	require.False(t, all[0].Deleted)
	require.True(t, all[0].Published)
}

func TestDocRepo_CreatedAtIsNeverUpdated(t *testing.T) {
	r := newRepo().WithClock(func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) })
	ctx := context.Background()
	created, err := r.Create(ctx, blog.Input{Title: "t", Slug: "s", Content: "c", Published: true})
	require.NoError(t, err)
	require.Equal(t, "2024-05-01T10:00:00.000Z", created.CreatedAt)

	require.NoError(t, r.Update(ctx, created.ID, map[string]interface{}{"title": "t2", "createdAt": "1999-01-01T00:00:00.000Z", "_id": "x"}))
	got, err := r.GetBySlug(ctx, "s")
	require.NoError(t, err)
	require.Equal(t, "t2", got.Title)
	require.Equal(t, "2024-05-01T10:00:00.000Z", got.CreatedAt)
	require.Equal(t, created.ID, got.ID)
}

func TestDocRepo_ListPublishedNewestFirstAndLimit(t *testing.T) {
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := newRepo().WithClock(func() time.Time { clock = clock.Add(time.Hour); return clock })
	ctx := context.Background()
	for _, s := range []string{"one", "two", "three"} {
		_, err := r.Create(ctx, blog.Input{Title: s, Slug: s, Content: "c", Published: true})
		require.NoError(t, err)
	}

	pub, err := r.ListPublished(ctx, 2)
	require.NoError(t, err)
	require.Len(t, pub, 2)
	require.Equal(t, "three", pub[0].Slug)
	require.Equal(t, "two", pub[1].Slug)

	again, err := r.ListPublished(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, pub, again)
}

func TestDocRepo_PublishedSlugsProjection(t *testing.T) {
	r := newRepo()
	ctx := context.Background()
	_, err := r.Create(ctx, blog.Input{Title: "Live", Slug: "live", Content: "secret body", Published: true})
	require.NoError(t, err)
	_, err = r.Create(ctx, blog.Input{Title: "Draft", Slug: "draft", Content: "c"})
	require.NoError(t, err)

	got, err := r.PublishedSlugs(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "live", got[0].Slug)
	require.NotEmpty(t, got[0].CreatedAt)
	require.Empty(t, got[0].Content)
	require.Empty(t, got[0].Title)
}

func TestDocRepo_MissingTargets(t *testing.T) {
	r := newRepo()
	ctx := context.Background()

	err := r.Update(ctx, "000000000000000000000000", map[string]interface{}{"title": "x"})
	require.True(t, apperrors.Is(err, apperrors.KindNotFound), "got %v", err)

	err = r.SoftDelete(ctx, "000000000000000000000000")
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	created, err := r.Create(ctx, blog.Input{Title: "t", Slug: "s", Content: "c"})
	require.NoError(t, err)
	require.NoError(t, r.HardDelete(ctx, created.ID))
	err = r.HardDelete(ctx, created.ID)
	require.True(t, apperrors.Is(err, apperrors.KindNotFound))

	err = r.Update(ctx, "not-hex", map[string]interface{}{"title": "x"})
	require.True(t, apperrors.Is(err, apperrors.KindClient))
}

func TestProperty_ListPublishedVisibility(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("a post is listed iff published and not deleted", prop.ForAll(
		func(published []bool, deleted []bool) bool {
			r := newRepo()
			ctx := context.Background()
			want := map[string]bool{}
			n := len(published)
			if len(deleted) < n {
				n = len(deleted)
			}
			for i := 0; i < n; i++ {
				slug := "post-" + string(rune('a'+i))
				b, err := r.Create(ctx, blog.Input{Title: slug, Slug: slug, Content: "c", Published: published[i]})
				if err != nil {
					return false
				}
				if deleted[i] {
					if err := r.Update(ctx, b.ID, map[string]interface{}{"deleted": true}); err != nil {
						return false
					}
				}
				want[slug] = published[i] && !deleted[i]
			}
			all, err := r.ListAll(ctx)
			if err != nil {
				return false
			}
			for _, b := range all {
				if b.Deleted && b.Published {
					return false
				}
			}
			got, err := r.ListPublished(ctx, 0)
			if err != nil {
				return false
			}
			seen := map[string]bool{}
			for _, b := range got {
				if !want[b.Slug] || !b.Visible() {
					return false
				}
				seen[b.Slug] = true
			}
			for slug, v := range want {
				if v != seen[slug] {
					return false
				}
			}
			return true
		},
		gen.SliceOfN(8, gen.Bool()), gen.SliceOfN(8, gen.Bool()),
	))

	properties.TestingRun(t)
}
