// Package dispatch maps the generic {action, collection, query, data, options}
// envelope onto the primitive store operations.
package dispatch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/sachtalks/sachtalks-api/internal/docstore"
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson"
)

type Action string

const (
	ActionFind      Action = "find"
	ActionFindOne   Action = "findOne"
	ActionInsertOne Action = "insertOne"
	ActionUpdateOne Action = "updateOne"
	ActionDeleteOne Action = "deleteOne"
	ActionCount     Action = "count"
)

// Request is one decoded operation. Each variant carries only what it needs.
type Request interface {
	Action() Action
	Collection() string
}

type target struct{ collection string }

func (t target) Collection() string { return t.collection }

type FindRequest struct {
	target
	Query   map[string]interface{}
	Options docstore.FindOptions
}

type FindOneRequest struct {
	target
	Query      map[string]interface{}
	Projection bson.D
}

type InsertOneRequest struct {
	target
	Data map[string]interface{}
}

type UpdateOneRequest struct {
	target
	Query map[string]interface{}
	Data  map[string]interface{}
}

type DeleteOneRequest struct {
	target
	Query map[string]interface{}
}

type CountRequest struct {
	target
	Query map[string]interface{}
}

func (FindRequest) Action() Action      { return ActionFind }
func (FindOneRequest) Action() Action   { return ActionFindOne }
func (InsertOneRequest) Action() Action { return ActionInsertOne }
func (UpdateOneRequest) Action() Action { return ActionUpdateOne }
func (DeleteOneRequest) Action() Action { return ActionDeleteOne }
func (CountRequest) Action() Action     { return ActionCount }

// Envelope is the wire form of a request.
type Envelope struct {
	Action     string                 `json:"action"`
	Collection string                 `json:"collection"`
	Query      map[string]interface{} `json:"query,omitempty"`
	Data       map[string]interface{} `json:"data,omitempty"`
	Options    *Options               `json:"options,omitempty"`
}

// Options is the wire form of find options. Sort and Projection keep key order.
type Options struct {
	Sort       bson.D
	Limit      int64
	Skip       int64
	Projection bson.D
}

func (o Options) MarshalJSON() ([]byte, error) {
	parts := make([]string, 0, 4)
	for _, f := range []struct {
		name string
		d    bson.D
	}{{"sort", o.Sort}, {"projection", o.Projection}} {
		if len(f.d) == 0 {
			continue
		}
		b, err := bson.MarshalExtJSON(f.d, false, false)
		if err != nil {
			return nil, err
		}
		parts = append(parts, fmt.Sprintf("%q:%s", f.name, b))
	}
	if o.Limit > 0 {
		parts = append(parts, fmt.Sprintf(`"limit":%d`, o.Limit))
	}
	if o.Skip > 0 {
		parts = append(parts, fmt.Sprintf(`"skip":%d`, o.Skip))
	}
	return []byte("{" + strings.Join(parts, ",") + "}"), nil
}

type wireEnvelope struct {
	Action     string          `json:"action"`
	Collection string          `json:"collection"`
	Query      json.RawMessage `json:"query"`
	Data       json.RawMessage `json:"data"`
	Options    json.RawMessage `json:"options"`
}

type wireFindOptions struct {
	Sort       json.RawMessage `json:"sort"`
	Limit      *float64        `json:"limit"`
	Skip       *float64        `json:"skip"`
	Projection json.RawMessage `json:"projection"`
}

// DecodeRequest validates the raw envelope and returns its typed variant.
// All failures are client errors raised before any store work.
func DecodeRequest(raw []byte) (Request, error) {
	var env wireEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.Client("invalid request body: %v", err)
	}
	if env.Action == "" || env.Collection == "" {
		return nil, apperrors.Client("Missing required fields: action, collection")
	}
	t := target{collection: env.Collection}

	switch Action(env.Action) {
	case ActionFind:
		q, err := decodeObject("query", env.Query)
		if err != nil {
			return nil, err
		}
		opts, err := decodeFindOptions(env.Options)
		if err != nil {
			return nil, err
		}
		return FindRequest{target: t, Query: q, Options: opts}, nil
	case ActionFindOne:
		q, err := decodeObject("query", env.Query)
		if err != nil {
			return nil, err
		}
		opts, err := decodeFindOptions(env.Options)
		if err != nil {
			return nil, err
		}
		return FindOneRequest{target: t, Query: q, Projection: opts.Projection}, nil
	case ActionInsertOne:
		d, err := requireData(env)
		if err != nil {
			return nil, err
		}
		return InsertOneRequest{target: t, Data: d}, nil
	case ActionUpdateOne:
		d, err := requireData(env)
		if err != nil {
			return nil, err
		}
		q, err := decodeObject("query", env.Query)
		if err != nil {
			return nil, err
		}
		return UpdateOneRequest{target: t, Query: q, Data: d}, nil
	case ActionDeleteOne:
		q, err := decodeObject("query", env.Query)
		if err != nil {
			return nil, err
		}
		return DeleteOneRequest{target: t, Query: q}, nil
	case ActionCount:
		q, err := decodeObject("query", env.Query)
		if err != nil {
			return nil, err
		}
		return CountRequest{target: t, Query: q}, nil
	}
	return nil, apperrors.Client("Unknown action: %s", env.Action)
}

func requireData(env wireEnvelope) (map[string]interface{}, error) {
	d, err := decodeObject("data", env.Data)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apperrors.Client("Missing data for %s", env.Action)
	}
	return d, nil
}

// decodeObject decodes a JSON object, keeping integers integral. Absent or null yields nil.
func decodeObject(field string, raw json.RawMessage) (map[string]interface{}, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]interface{}
	if err := dec.Decode(&m); err != nil {
		return nil, apperrors.Client("%s must be an object", field)
	}
	return plain(m).(map[string]interface{}), nil
}

func decodeFindOptions(raw json.RawMessage) (docstore.FindOptions, error) {
	var out docstore.FindOptions
	if isAbsent(raw) {
		return out, nil
	}
	var w wireFindOptions
	if err := json.Unmarshal(raw, &w); err != nil {
		return out, apperrors.Client("options must be an object: %v", err)
	}
	var err error
	if out.Sort, err = decodeOrdered("options.sort", w.Sort); err != nil {
		return out, err
	}
	if out.Projection, err = decodeOrdered("options.projection", w.Projection); err != nil {
		return out, err
	}
	if out.Limit, err = wholeNumber("options.limit", w.Limit); err != nil {
		return out, err
	}
	if out.Skip, err = wholeNumber("options.skip", w.Skip); err != nil {
		return out, err
	}
	return out, nil
}

// decodeOrdered keeps key order, which sort specifications depend on.
func decodeOrdered(field string, raw json.RawMessage) (bson.D, error) {
	if isAbsent(raw) {
		return nil, nil
	}
	var d bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &d); err != nil {
		return nil, apperrors.Client("%s must be an object", field)
	}
	return d, nil
}

func wholeNumber(field string, v *float64) (int64, error) {
	if v == nil {
		return 0, nil
	}
	if *v < 0 || *v != math.Trunc(*v) {
		return 0, apperrors.Client("%s must be a non-negative integer", field)
	}
	return int64(*v), nil
}

func isAbsent(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null"))
}

// plain converts json.Number values the way the store's native client would
// encode them: int32 when it fits, then int64, else double.
func plain(v interface{}) interface{} {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			if i >= math.MinInt32 && i <= math.MaxInt32 {
				return int32(i)
			}
			return i
		}
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case map[string]interface{}:
		for k, e := range x {
			x[k] = plain(e)
		}
		return x
	case []interface{}:
		for i, e := range x {
			x[i] = plain(e)
		}
		return x
	}
	return v
}

func describe(r Request) string {
	return fmt.Sprintf("%s %s", r.Action(), r.Collection())
}
