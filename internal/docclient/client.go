// Package docclient calls the action dispatcher and decodes its envelope.
package docclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sachtalks/sachtalks-api/internal/dispatch"
	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
)

// Transport carries one encoded envelope to the dispatcher and returns the reply.
type Transport interface {
	RoundTrip(ctx context.Context, body []byte) (status int, reply []byte, err error)
}

// Query is a filter document as sent over the wire.
type Query map[string]interface{}

// OID wraps a hex identifier in its extended JSON form.
func OID(hex string) map[string]interface{} {
	return map[string]interface{}{"$oid": hex}
}

type Client struct {
	t Transport
}

func New(t Transport) *Client {
	return &Client{t: t}
}

type reply struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func (c *Client) call(ctx context.Context, env dispatch.Envelope, out interface{}) (bool, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return false, apperrors.Client("encode %s request: %v", env.Action, err)
	}
	status, raw, err := c.t.RoundTrip(ctx, body)
	if err != nil {
		return false, err
	}
	var r reply
	if jerr := json.Unmarshal(raw, &r); jerr != nil || (!r.Success && r.Error == "") {
		text := string(bytes.TrimSpace(raw))
		if status >= http.StatusMultipleChoices {
			if text == "" {
				text = fmt.Sprintf("MongoDB API request failed with status %d", status)
			}
			return false, remoteError(status, text)
		}
		if jerr != nil {
			return false, apperrors.Upstream(jerr, "decode %s reply", env.Action)
		}
		return false, remoteError(status, "Unknown error")
	}
	if !r.Success {
		return false, remoteError(status, r.Error)
	}
	if len(r.Data) == 0 || bytes.Equal(r.Data, []byte("null")) {
		return false, nil
	}
	if out != nil {
		if err := json.Unmarshal(r.Data, out); err != nil {
			return false, apperrors.Upstream(err, "decode %s data", env.Action)
		}
	}
	return true, nil
}

// remoteError keeps the status class of the dispatcher's reply.
func remoteError(status int, msg string) error {
	switch {
	case status == http.StatusBadRequest:
		return apperrors.Client("%s", msg)
	case status == http.StatusNotFound:
		return apperrors.NotFound("%s", msg)
	case status >= http.StatusInternalServerError:
		return apperrors.Upstream(nil, "%s", msg).WithStatus(status)
	}
	return apperrors.Upstream(nil, "%s", msg)
}

// Find decodes all matching documents into out, which must point to a slice.
func (c *Client) Find(ctx context.Context, collection string, q Query, opts *dispatch.Options, out interface{}) error {
	_, err := c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionFind), Collection: collection, Query: q, Options: opts}, out)
	return err
}

// FindOne reports false when nothing matched.
func (c *Client) FindOne(ctx context.Context, collection string, q Query, out interface{}) (bool, error) {
	return c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionFindOne), Collection: collection, Query: q}, out)
}

// InsertOne decodes the stored document, including its new _id, into out.
func (c *Client) InsertOne(ctx context.Context, collection string, doc map[string]interface{}, out interface{}) error {
	_, err := c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionInsertOne), Collection: collection, Data: doc}, out)
	return err
}

func (c *Client) UpdateOne(ctx context.Context, collection string, q Query, set map[string]interface{}) (docstore.UpdateResult, error) {
	var res docstore.UpdateResult
	_, err := c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionUpdateOne), Collection: collection, Query: q, Data: set}, &res)
	return res, err
}

func (c *Client) DeleteOne(ctx context.Context, collection string, q Query) (docstore.DeleteResult, error) {
	var res docstore.DeleteResult
	_, err := c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionDeleteOne), Collection: collection, Query: q}, &res)
	return res, err
}

func (c *Client) Count(ctx context.Context, collection string, q Query) (int64, error) {
	var n int64
	_, err := c.call(ctx, dispatch.Envelope{Action: string(dispatch.ActionCount), Collection: collection, Query: q}, &n)
	return n, err
}
