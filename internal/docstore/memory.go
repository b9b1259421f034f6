package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is a process-local Store used by unit tests and by the server
// when STORE_BACKEND=memory. It understands the filter subset the repositories
// send: equality plus $eq, $ne, $in, $nin and $exists.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][]bson.M
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][]bson.M)}
}

func (m *MemoryStore) Find(ctx context.Context, collection string, filter bson.M, o FindOptions) ([]bson.M, error) {
	m.mu.RLock()
	var matched []bson.M
	for _, d := range m.collections[collection] {
		ok, err := matches(d, filter)
		if err != nil {
			m.mu.RUnlock()
			return nil, err
		}
		if ok {
			matched = append(matched, clone(d))
		}
	}
	m.mu.RUnlock()

	if len(o.Sort) > 0 {
		sort.SliceStable(matched, func(i, j int) bool {
			for _, k := range o.Sort {
				c := compare(matched[i][k.Key], matched[j][k.Key])
				if c == 0 {
					continue
				}
				if direction(k.Value) < 0 {
					return c > 0
				}
				return c < 0
			}
			return false
		})
	}
	if o.Skip > 0 {
		if o.Skip >= int64(len(matched)) {
			matched = nil
		} else {
			matched = matched[o.Skip:]
		}
	}
	if o.Limit > 0 && o.Limit < int64(len(matched)) {
		matched = matched[:o.Limit]
	}

	out := make([]bson.M, 0, len(matched))
	for _, d := range matched {
		out = append(out, project(d, o.Projection))
	}
	return out, nil
}

func (m *MemoryStore) FindOne(ctx context.Context, collection string, filter bson.M, projection bson.D) (bson.M, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.collections[collection] {
		ok, err := matches(d, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			return project(d, projection), nil
		}
	}
	return nil, nil
}

func (m *MemoryStore) InsertOne(ctx context.Context, collection string, doc bson.M) (interface{}, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d := clone(doc)
	id, ok := d["_id"]
	if !ok || id == nil {
		id = primitive.NewObjectID()
		d["_id"] = id
	}
	for _, existing := range m.collections[collection] {
		if equal(existing["_id"], id) {
			return nil, fmt.Errorf("E11000 duplicate key error collection: %s dup key: { _id: %v }", collection, id)
		}
	}
	m.collections[collection] = append(m.collections[collection], d)
	return id, nil
}

func (m *MemoryStore) UpdateOne(ctx context.Context, collection string, filter bson.M, set bson.M) (UpdateResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.collections[collection] {
		ok, err := matches(d, filter)
		if err != nil {
			return UpdateResult{}, err
		}
		if !ok {
			continue
		}
		if v, has := set["_id"]; has && !equal(v, d["_id"]) {
			return UpdateResult{}, fmt.Errorf("performing an update on the path '_id' would modify the immutable field '_id'")
		}
		modified := int64(0)
		for k, v := range set {
			if cur, has := d[k]; !has || !equal(cur, v) {
				d[k] = v
				modified = 1
			}
		}
		return UpdateResult{Acknowledged: true, MatchedCount: 1, ModifiedCount: modified}, nil
	}
	return UpdateResult{Acknowledged: true}, nil
}

func (m *MemoryStore) DeleteOne(ctx context.Context, collection string, filter bson.M) (DeleteResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	docs := m.collections[collection]
	for i, d := range docs {
		ok, err := matches(d, filter)
		if err != nil {
			return DeleteResult{}, err
		}
		if ok {
			m.collections[collection] = append(docs[:i:i], docs[i+1:]...)
			return DeleteResult{Acknowledged: true, DeletedCount: 1}, nil
		}
	}
	return DeleteResult{Acknowledged: true}, nil
}

func (m *MemoryStore) Count(ctx context.Context, collection string, filter bson.M) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var n int64
	for _, d := range m.collections[collection] {
		ok, err := matches(d, filter)
		if err != nil {
			return 0, err
		}
		if ok {
			n++
		}
	}
	return n, nil
}

func matches(doc bson.M, filter bson.M) (bool, error) {
	for field, cond := range filter {
		v, present := doc[field]
		ops, isOps := operators(cond)
		if !isOps {
			if !present {
				if cond != nil {
					return false, nil
				}
				continue
			}
			if !equal(v, cond) {
				return false, nil
			}
			continue
		}
		for op, arg := range ops {
			ok, err := applyOperator(op, v, present, arg)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
		}
	}
	return true, nil
}

// operators returns cond as an operator document when every key starts with '$'.
func operators(cond interface{}) (map[string]interface{}, bool) {
	var m map[string]interface{}
	switch c := cond.(type) {
	case bson.M:
		m = c
	case map[string]interface{}:
		m = c
	case bson.D:
		m = c.Map()
	default:
		return nil, false
	}
	if len(m) == 0 {
		return nil, false
	}
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return m, true
}

func applyOperator(op string, v interface{}, present bool, arg interface{}) (bool, error) {
	switch op {
	case "$eq":
		if !present {
			return arg == nil, nil
		}
		return equal(v, arg), nil
	case "$ne":
		if !present {
			return arg != nil, nil
		}
		return !equal(v, arg), nil
	case "$exists":
		want, _ := arg.(bool)
		return present == want, nil
	case "$in", "$nin":
		list, ok := toSlice(arg)
		if !ok {
			return false, fmt.Errorf("%s needs an array", op)
		}
		found := false
		for _, x := range list {
			if (present && equal(v, x)) || (!present && x == nil) {
				found = true
				break
			}
		}
		if op == "$in" {
			return found, nil
		}
		return !found, nil
	}
	return false, fmt.Errorf("unknown operator: %s", op)
}

func toSlice(v interface{}) ([]interface{}, bool) {
	switch s := v.(type) {
	case []interface{}:
		return s, true
	case bson.A:
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice {
		return nil, false
	}
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func equal(a, b interface{}) bool {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
		return false
	}
	return reflect.DeepEqual(a, b)
}

// compare orders values of the same type; mixed types order by type name.
func compare(a, b interface{}) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	switch x := a.(type) {
	case string:
		if y, ok := b.(string); ok {
			return strings.Compare(x, y)
		}
	case bool:
		if y, ok := b.(bool); ok {
			switch {
			case x == y:
				return 0
			case !x:
				return -1
			}
			return 1
		}
	case primitive.ObjectID:
		if y, ok := b.(primitive.ObjectID); ok {
			return strings.Compare(x.Hex(), y.Hex())
		}
	case time.Time:
		if y, ok := b.(time.Time); ok {
			return x.Compare(y)
		}
	case primitive.DateTime:
		if y, ok := b.(primitive.DateTime); ok {
			return x.Time().Compare(y.Time())
		}
	}
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	return strings.Compare(fmt.Sprintf("%T", a), fmt.Sprintf("%T", b))
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func direction(v interface{}) int {
	if f, ok := number(v); ok && f < 0 {
		return -1
	}
	return 1
}

// project applies an inclusion or exclusion projection. _id is kept unless excluded.
func project(doc bson.M, proj bson.D) bson.M {
	if len(proj) == 0 {
		return clone(doc)
	}
	include := false
	for _, e := range proj {
		if e.Key != "_id" && truthy(e.Value) {
			include = true
			break
		}
	}
	out := bson.M{}
	if include {
		if id, ok := doc["_id"]; ok {
			out["_id"] = id
		}
		for _, e := range proj {
			if !truthy(e.Value) {
				delete(out, e.Key)
				continue
			}
			if v, ok := doc[e.Key]; ok {
				out[e.Key] = v
			}
		}
		return out
	}
	for k, v := range doc {
		out[k] = v
	}
	for _, e := range proj {
		delete(out, e.Key)
	}
	return out
}

func truthy(v interface{}) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	if f, ok := number(v); ok {
		return f != 0
	}
	return v != nil
}

func clone(d bson.M) bson.M {
	out := make(bson.M, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
