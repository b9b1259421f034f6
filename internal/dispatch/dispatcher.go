package dispatch

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"github.com/sachtalks/sachtalks-api/pkg/logger"
	"github.com/sachtalks/sachtalks-api/pkg/metrics"
	"go.mongodb.org/mongo-driver/bson"
)

const tlsHint = "MongoDB SSL/TLS connection error. Please check your MONGODB_URI connection string includes proper TLS configuration."

// Dispatcher executes decoded requests against a Store.
type Dispatcher struct {
	store docstore.Store
}

func New(store docstore.Store) *Dispatcher {
	return &Dispatcher{store: store}
}

// Dispatch runs req and returns the value placed in the envelope's data field.
// Store failures come back as upstream errors.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (interface{}, error) {
	start := time.Now()
	out, err := d.run(ctx, req)
	metrics.DispatchDuration.WithLabelValues(string(req.Action())).Observe(time.Since(start).Seconds())
	if err == nil {
		metrics.DispatchOperations.WithLabelValues(string(req.Action()), "success").Inc()
		return out, nil
	}

	if ae, ok := apperrors.As(err); ok && (ae.Kind == apperrors.KindClient || ae.Kind == apperrors.KindConfiguration) {
		metrics.DispatchOperations.WithLabelValues(string(req.Action()), strings.ToLower(string(ae.Kind))).Inc()
		logger.Warnf("dispatch %s rejected: %v", describe(req), err)
		return nil, err
	}

	metrics.DispatchOperations.WithLabelValues(string(req.Action()), "store_error").Inc()
	logger.Errorf("dispatch %s failed: %v", describe(req), err)
	return nil, apperrors.Upstream(err, "%s", storeMessage(err)).WithStatus(http.StatusInternalServerError)
}

func (d *Dispatcher) run(ctx context.Context, req Request) (interface{}, error) {
	switch r := req.(type) {
	case FindRequest:
		q, err := NormalizeQuery(r.Query)
		if err != nil {
			return nil, err
		}
		return d.store.Find(ctx, r.Collection(), q, r.Options)
	case FindOneRequest:
		q, err := NormalizeQuery(r.Query)
		if err != nil {
			return nil, err
		}
		doc, err := d.store.FindOne(ctx, r.Collection(), q, r.Projection)
		if err != nil || doc == nil {
			return nil, err
		}
		return doc, nil
	case InsertOneRequest:
		doc := make(bson.M, len(r.Data)+1)
		for k, v := range r.Data {
			doc[k] = v
		}
		id, err := d.store.InsertOne(ctx, r.Collection(), doc)
		if err != nil {
			return nil, err
		}
		doc["_id"] = id
		return doc, nil
	case UpdateOneRequest:
		q, err := NormalizeQuery(r.Query)
		if err != nil {
			return nil, err
		}
		return d.store.UpdateOne(ctx, r.Collection(), q, r.Data)
	case DeleteOneRequest:
		q, err := NormalizeQuery(r.Query)
		if err != nil {
			return nil, err
		}
		return d.store.DeleteOne(ctx, r.Collection(), q)
	case CountRequest:
		q, err := NormalizeQuery(r.Query)
		if err != nil {
			return nil, err
		}
		return d.store.Count(ctx, r.Collection(), q)
	}
	return nil, apperrors.Client("Unknown action: %s", req.Action())
}

// storeMessage passes the store's message through, pointing TLS failures at the URI.
func storeMessage(err error) string {
	msg := err.Error()
	if strings.Contains(msg, "SSL") || strings.Contains(msg, "TLS") || strings.Contains(msg, "tls:") || strings.Contains(msg, "x509") {
		return tlsHint
	}
	return msg
}
