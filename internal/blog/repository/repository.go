package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/blog"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docclient"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
)

const Collection = "blogs"

// TimeLayout matches the ISO-8601 form stored in createdAt.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Repository defines the blog operations used by the handlers and the sitemap.
type Repository interface {
	ListPublished(ctx context.Context, limit int) ([]blog.Blog, error)
	ListAll(ctx context.Context) ([]blog.Blog, error)
	GetBySlug(ctx context.Context, slug string) (*blog.Blog, error)
	Create(ctx context.Context, in blog.Input) (*blog.Blog, error)
	Update(ctx context.Context, id string, partial map[string]interface{}) error
	SoftDelete(ctx context.Context, id string) error
	HardDelete(ctx context.Context, id string) error
}

// DocRepo keeps blogs in the "blogs" collection through the dispatcher.
type DocRepo struct {
	c   *docclient.Client
	now func() time.Time
}

func NewDocRepo(c *docclient.Client) *DocRepo {
	return &DocRepo{c: c, now: time.Now}
}

// WithClock replaces the time source used for createdAt.
func (r *DocRepo) WithClock(now func() time.Time) *DocRepo {
	r.now = now
	return r
}

var newestFirst = &dispatch.Options{Sort: bson.D{{Key: "createdAt", Value: -1}}}

func visible() docclient.Query {
	return docclient.Query{"published": true, "deleted": map[string]interface{}{"$ne": true}}
}

// doc is the stored shape. Older documents may carry id or created_at.
type doc struct {
	blog.Blog
	OID          string `json:"_id"`
	LegacyCreate string `json:"created_at"`
}

func (d doc) toBlog() blog.Blog {
	b := d.Blog
	if d.OID != "" {
		b.ID = d.OID
	}
	if b.CreatedAt == "" {
		b.CreatedAt = d.LegacyCreate
	}
	return b
}

func toBlogs(docs []doc) []blog.Blog {
	out := make([]blog.Blog, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toBlog())
	}
	return out
}

func (r *DocRepo) ListPublished(ctx context.Context, limit int) ([]blog.Blog, error) {
	opts := *newestFirst
	if limit > 0 {
		opts.Limit = int64(limit)
	}
	var docs []doc
	if err := r.c.Find(ctx, Collection, visible(), &opts, &docs); err != nil {
		return nil, err
	}
	return toBlogs(docs), nil
}

// ListAll includes drafts and soft-deleted posts. Admin only.
func (r *DocRepo) ListAll(ctx context.Context) ([]blog.Blog, error) {
	var docs []doc
	if err := r.c.Find(ctx, Collection, docclient.Query{}, newestFirst, &docs); err != nil {
		return nil, err
	}
	return toBlogs(docs), nil
}

var sitemapFields = bson.D{{Key: "slug", Value: 1}, {Key: "createdAt", Value: 1}, {Key: "created_at", Value: 1}}

// PublishedSlugs lists visible posts newest first with only slug and createdAt populated.
func (r *DocRepo) PublishedSlugs(ctx context.Context) ([]blog.Blog, error) {
	opts := *newestFirst
	opts.Projection = sitemapFields
	var docs []doc
	if err := r.c.Find(ctx, Collection, visible(), &opts, &docs); err != nil {
		return nil, err
	}
	return toBlogs(docs), nil
}

// GetBySlug returns (nil, nil) when no visible post has the slug.
func (r *DocRepo) GetBySlug(ctx context.Context, slug string) (*blog.Blog, error) {
	q := visible()
	q["slug"] = slug
	var d doc
	found, err := r.c.FindOne(ctx, Collection, q, &d)
	if err != nil || !found {
		return nil, err
	}
	b := d.toBlog()
	return &b, nil
}

func (r *DocRepo) Create(ctx context.Context, in blog.Input) (*blog.Blog, error) {
	fields, err := toMap(in)
	if err != nil {
		return nil, err
	}
	fields["createdAt"] = r.now().UTC().Format(TimeLayout)
	var d doc
	if err := r.c.InsertOne(ctx, Collection, fields, &d); err != nil {
		return nil, err
	}
	b := d.toBlog()
	return &b, nil
}

// Update applies partial as a $set merge. Identifier and timestamp keys are dropped.
// A post is never left both deleted and published: deleting unpublishes it, and
// publishing without touching deleted restores it.
func (r *DocRepo) Update(ctx context.Context, id string, partial map[string]interface{}) error {
	set := make(map[string]interface{}, len(partial))
	for k, v := range partial {
		switch k {
		case "_id", "id", "createdAt", "created_at":
			continue
		}
		set[k] = v
	}
	if len(set) == 0 {
		return apperrors.Client("nothing to update")
	}
	if isTrue(set["deleted"]) {
		set["published"] = false
	} else if _, touched := set["deleted"]; !touched && isTrue(set["published"]) {
		set["deleted"] = false
	}
	res, err := r.c.UpdateOne(ctx, Collection, docclient.Query{"_id": docclient.OID(id)}, set)
	if err != nil {
		return err
	}
	if !res.Acknowledged {
		return apperrors.Upstream(nil, "Update operation was not acknowledged by MongoDB")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Blog with id %s was not found", id)
	}
	return nil
}

// SoftDelete hides the post in one update so it is never deleted yet published.
func (r *DocRepo) SoftDelete(ctx context.Context, id string) error {
	return r.Update(ctx, id, map[string]interface{}{"published": false, "deleted": true})
}

func (r *DocRepo) HardDelete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, Collection, docclient.Query{"_id": docclient.OID(id)})
	if err != nil {
		return err
	}
	if !res.Acknowledged {
		return apperrors.Upstream(nil, "Delete operation was not acknowledged by MongoDB")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Blog with id %s was not found or already deleted", id)
	}
	return nil
}

func isTrue(v interface{}) bool {
	b, ok := v.(bool)
	return ok && b
}

func toMap(v interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}
