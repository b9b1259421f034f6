package dispatch

import (
	"github.com/sachtalks/sachtalks-api/pkg/apperrors"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Identifier is one of the two serializable forms of a primary identifier.
type Identifier interface {
	ObjectID() (primitive.ObjectID, error)
}

// RawID is a bare hex string.
type RawID string

// ExtendedID is the hex string of an extended JSON wrapper {"$oid": "..."}.
type ExtendedID string

func (id RawID) ObjectID() (primitive.ObjectID, error) { return parseHex(string(id)) }

func (id ExtendedID) ObjectID() (primitive.ObjectID, error) { return parseHex(string(id)) }

func parseHex(s string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(s)
	if err != nil {
		return primitive.NilObjectID, apperrors.Client("invalid _id %q: must be a 24 character hex string", s)
	}
	return oid, nil
}

// ParseIdentifier recognises v as an Identifier. Anything else reports false.
func ParseIdentifier(v interface{}) (Identifier, bool) {
	switch x := v.(type) {
	case string:
		return RawID(x), true
	case map[string]interface{}:
		if s, ok := x["$oid"].(string); ok {
			return ExtendedID(s), true
		}
	case primitive.M:
		if s, ok := x["$oid"].(string); ok {
			return ExtendedID(s), true
		}
	}
	return nil, false
}

// NormalizeQuery returns a shallow copy of q whose top-level _id is converted
// to an ObjectID. Nested identifiers are left alone. The input is never mutated.
func NormalizeQuery(q map[string]interface{}) (map[string]interface{}, error) {
	if q == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(q))
	for k, v := range q {
		out[k] = v
	}
	raw, ok := out["_id"]
	if !ok {
		return out, nil
	}
	id, ok := ParseIdentifier(raw)
	if !ok {
		return out, nil
	}
	oid, err := id.ObjectID()
	if err != nil {
		return nil, err
	}
	out["_id"] = oid
	return out, nil
}
