package resolvers

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

// Finder is satisfied by *mongo.Collection.
type Finder interface {
	Find(ctx context.Context, filter any, opts ...options.Lister[options.FindOptions]) (*mongo.Cursor, error)
}

// MongoResolver streams userField from the documents matching filterKeys.
// Every filter key is both a scope context key and a document field:
//
//	resolvers.NewMongoResolver(db.Collection("enrollments"), "user_id", "course_id")
//
// matches {"course_id": scopeContext["course_id"]}.
type MongoResolver struct {
	coll       Finder
	userField  string
	filterKeys []string
}

// NewMongoResolver returns a resolver over coll.
func NewMongoResolver(coll Finder, userField string, filterKeys ...string) *MongoResolver {
	return &MongoResolver{coll: coll, userField: userField, filterKeys: filterKeys}
}

// Filter returns the query document for the given contexts.
func (r *MongoResolver) Filter(scopeContext, instanceContext map[string]any) (bson.D, error) {
	values, err := lookupAll(r.filterKeys, scopeContext, instanceContext)
	if err != nil {
		return nil, err
	}
	filter := make(bson.D, 0, len(values))
	for i, key := range r.filterKeys {
		filter = append(filter, bson.E{Key: key, Value: values[i]})
	}
	return filter, nil
}

// Resolve implements notifications.ScopeResolver.
func (r *MongoResolver) Resolve(ctx context.Context, _ string, scopeContext, instanceContext map[string]any) (any, error) {
	filter, err := r.Filter(scopeContext, instanceContext)
	if err != nil {
		return nil, err
	}

	opts := options.Find().SetProjection(bson.D{{Key: r.userField, Value: 1}, {Key: "_id", Value: 0}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Join(ErrQuery, err)
	}
	return &mongoCursor{cur: cur, field: r.userField}, nil
}

type mongoCursor struct {
	cur   *mongo.Cursor
	field string
	ctx   context.Context
	val   any
	err   error
}

var _ notifications.Cursor = (*mongoCursor)(nil)

func (c *mongoCursor) Next(ctx context.Context) bool {
	c.ctx = ctx
	if c.err != nil || !c.cur.Next(ctx) {
		return false
	}
	var doc bson.M
	if err := c.cur.Decode(&doc); err != nil {
		c.err = err
		return false
	}
	c.val = documentID(doc[c.field])
	return true
}

func (c *mongoCursor) Value() any { return c.val }

func (c *mongoCursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.cur.Err()
}

func (c *mongoCursor) Close() error {
	ctx := c.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return c.cur.Close(context.WithoutCancel(ctx))
}

// documentID normalizes BSON numbers. Doubles with a fractional part and
// other kinds are returned unchanged and skipped by the core.
func documentID(v any) any {
	switch n := v.(type) {
	case int32:
		return int64(n)
	case float64:
		if n == math.Trunc(n) && math.Abs(n) < 1<<53 {
			return int64(n)
		}
	case string:
		return parseID(n)
	}
	return v
}
