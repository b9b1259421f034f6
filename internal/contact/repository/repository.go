package repository

import (
	"context"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/contact"
	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docclient"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
)

const Collection = "contact_submissions"

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

type Repository interface {
	Create(ctx context.Context, in contact.Input) (*contact.Submission, error)
	ListAll(ctx context.Context) ([]contact.Submission, error)
	UnreadCount(ctx context.Context) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkUnread(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type DocRepo struct {
	c   *docclient.Client
	now func() time.Time
}

func NewDocRepo(c *docclient.Client) *DocRepo {
	return &DocRepo{c: c, now: time.Now}
}

func (r *DocRepo) WithClock(now func() time.Time) *DocRepo {
	r.now = now
	return r
}

type doc struct {
	contact.Submission
	OID          string `json:"_id"`
	LegacyCreate string `json:"created_at"`
}

func (d doc) toSubmission() contact.Submission {
	s := d.Submission
	if d.OID != "" {
		s.ID = d.OID
	}
	if s.CreatedAt == "" {
		s.CreatedAt = d.LegacyCreate
	}
	return s
}

// Create stores the submission unread, stamped with the current time.
func (r *DocRepo) Create(ctx context.Context, in contact.Input) (*contact.Submission, error) {
	fields := map[string]interface{}{
		"name":      in.Name,
		"mobile":    in.Mobile,
		"email":     in.Email,
		"address":   nil,
		"message":   in.Message,
		"read":      false,
		"createdAt": r.now().UTC().Format(timeLayout),
	}
	if in.Address != nil {
		fields["address"] = *in.Address
	}
	var d doc
	if err := r.c.InsertOne(ctx, Collection, fields, &d); err != nil {
		return nil, err
	}
	s := d.toSubmission()
	return &s, nil
}

func (r *DocRepo) ListAll(ctx context.Context) ([]contact.Submission, error) {
	var docs []doc
	opts := &dispatch.Options{Sort: bson.D{{Key: "createdAt", Value: -1}}}
	if err := r.c.Find(ctx, Collection, docclient.Query{}, opts, &docs); err != nil {
		return nil, err
	}
	out := make([]contact.Submission, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toSubmission())
	}
	return out, nil
}

func (r *DocRepo) UnreadCount(ctx context.Context) (int64, error) {
	return r.c.Count(ctx, Collection, docclient.Query{"read": map[string]interface{}{"$ne": true}})
}

func (r *DocRepo) MarkRead(ctx context.Context, id string) error { return r.setRead(ctx, id, true) }

func (r *DocRepo) MarkUnread(ctx context.Context, id string) error { return r.setRead(ctx, id, false) }

func (r *DocRepo) setRead(ctx context.Context, id string, read bool) error {
	res, err := r.c.UpdateOne(ctx, Collection, docclient.Query{"_id": docclient.OID(id)}, map[string]interface{}{"read": read})
	if err != nil {
		return err
	}
	if !res.Acknowledged {
		return apperrors.Upstream(nil, "Update operation was not acknowledged by MongoDB")
	}
	if res.MatchedCount == 0 {
		return apperrors.NotFound("Contact submission with id %s was not found", id)
	}
	return nil
}

func (r *DocRepo) Delete(ctx context.Context, id string) error {
	res, err := r.c.DeleteOne(ctx, Collection, docclient.Query{"_id": docclient.OID(id)})
	if err != nil {
		return err
	}
	if !res.Acknowledged {
		return apperrors.Upstream(nil, "Delete operation was not acknowledged by MongoDB")
	}
	if res.DeletedCount == 0 {
		return apperrors.NotFound("Contact submission with id %s was not found or already deleted", id)
	}
	return nil
}
