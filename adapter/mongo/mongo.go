// Package mongo implements the quarry adapter contract for MongoDB.
//
// MongoDB is schemaless and non-transactional at this layer: Begin,
// Commit and Rollback fail with an UnsupportedError rather than
// simulating transaction guarantees, and column schema operations
// translate to index management only. Every row returned carries a
// synthetic "id" field mirroring the native "_id" identifier.
package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

func init() {
	adapter.Register(adapter.Mongo, func(cfg adapter.Config) (adapter.Adapter, error) {
		return New(cfg), nil
	})
}

// Adapter is the MongoDB implementation of adapter.Adapter.
type Adapter struct {
	cfg    adapter.Config
	client *mongo.Client
	db     *mongo.Database
}

// New returns an unconnected MongoDB adapter for the given config.
func New(cfg adapter.Config) *Adapter {
	return &Adapter{cfg: cfg}
}

// Backend implements adapter.Adapter.
func (a *Adapter) Backend() string { return adapter.Mongo }

// Database exposes the underlying driver database for raw integrations
// such as the aggregation query-builder extension.
func (a *Adapter) Database() *mongo.Database { return a.db }

func (a *Adapter) uri() string {
	if a.cfg.URI != "" {
		return a.cfg.URI
	}
	port := a.cfg.Port
	if port == 0 {
		port = 27017
	}
	cred := ""
	if a.cfg.Username != "" {
		cred = a.cfg.Username + ":" + a.cfg.Password + "@"
	}
	uri := fmt.Sprintf("mongodb://%s%s:%d", cred, a.cfg.Host, port)
	if a.cfg.SSL {
		uri += "/?tls=true"
	}
	return uri
}

// Connect implements adapter.Adapter.
func (a *Adapter) Connect(ctx context.Context) error {
	if a.client != nil {
		return nil
	}
	opts := options.Client().ApplyURI(a.uri())
	if a.cfg.Pool.Max > 0 {
		opts.SetMaxPoolSize(uint64(a.cfg.Pool.Max))
	}
	if a.cfg.Pool.Min > 0 {
		opts.SetMinPoolSize(uint64(a.cfg.Pool.Min))
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return quarry.NewConnectionError(adapter.Mongo, err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return quarry.NewConnectionError(adapter.Mongo, err)
	}
	a.client = client
	a.db = client.Database(a.cfg.Database)
	return nil
}

// Close implements adapter.Adapter. It is idempotent.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := a.client.Disconnect(ctx)
	a.client, a.db = nil, nil
	return err
}

func (a *Adapter) collection(name string) (*mongo.Collection, error) {
	if a.db == nil {
		return nil, quarry.NewConnectionError(adapter.Mongo, fmt.Errorf("not connected"))
	}
	return a.db.Collection(name), nil
}

// Select implements adapter.Adapter.
func (a *Adapter) Select(ctx context.Context, q *adapter.Query) ([]adapter.Row, error) {
	if len(q.Joins) > 0 {
		return nil, quarry.NewUnsupportedError(adapter.Mongo, "select", "join")
	}
	col, err := a.collection(q.Table)
	if err != nil {
		return nil, err
	}
	filter, err := Filter(q.Predicates)
	if err != nil {
		return nil, err
	}
	opts := options.Find()
	if len(q.Orders) > 0 {
		sort := bson.D{}
		for _, o := range q.Orders {
			dir := 1
			if o.Direction == "DESC" || o.Direction == "desc" {
				dir = -1
			}
			sort = append(sort, bson.E{Key: fieldName(o.Column), Value: dir})
		}
		opts.SetSort(sort)
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	if len(q.Columns) > 0 {
		proj := bson.D{}
		for _, c := range q.Columns {
			if c == "*" {
				proj = nil
				break
			}
			proj = append(proj, bson.E{Key: fieldName(c), Value: 1})
		}
		if proj != nil {
			opts.SetProjection(proj)
		}
	}
	cur, err := col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]adapter.Row, len(docs))
	for i, doc := range docs {
		rows[i] = mirrorID(adapter.Row(doc))
	}
	return rows, nil
}

// Count implements adapter.Adapter. Limit and offset bound the count,
// so existence probes stop at the first matching document.
func (a *Adapter) Count(ctx context.Context, q *adapter.Query) (int64, error) {
	if len(q.Joins) > 0 {
		return 0, quarry.NewUnsupportedError(adapter.Mongo, "count", "join")
	}
	col, err := a.collection(q.Table)
	if err != nil {
		return 0, err
	}
	filter, err := Filter(q.Predicates)
	if err != nil {
		return 0, err
	}
	opts := options.Count()
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	if q.Offset > 0 {
		opts.SetSkip(int64(q.Offset))
	}
	return col.CountDocuments(ctx, filter, opts)
}

// insertDoc maps neutral values onto the native document. The
// identifier gets the same hex-to-ObjectID coercion the read filters
// apply, so a document written with a hex-string id is found again by
// that same id; the coerced value is mirrored into "id".
func insertDoc(values adapter.Row) bson.M {
	doc := bson.M{}
	for k, v := range values {
		f := fieldName(k)
		doc[f] = idCoerce(f, v)
	}
	if id, ok := doc["_id"]; ok {
		doc["id"] = id
	}
	return doc
}

// Insert implements adapter.Adapter. The generated ObjectID is reported
// in canonical hex form; caller-supplied ids are stored under both
// "_id" and "id" so the two stay equal in value.
func (a *Adapter) Insert(ctx context.Context, m *adapter.Mutation) (any, error) {
	col, err := a.collection(m.Table)
	if err != nil {
		return nil, err
	}
	res, err := col.InsertOne(ctx, insertDoc(m.Values))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, quarry.NewConstraintError(m.Table, err)
		}
		return nil, err
	}
	return idValue(res.InsertedID), nil
}

// Update implements adapter.Adapter. Identifier fields are never
// rewritten. Returns the number of matched documents.
func (a *Adapter) Update(ctx context.Context, m *adapter.Mutation) (int64, error) {
	col, err := a.collection(m.Table)
	if err != nil {
		return 0, err
	}
	filter, err := Filter(m.Predicates)
	if err != nil {
		return 0, err
	}
	set := bson.M{}
	for k, v := range m.Values {
		if k == "id" || k == "_id" {
			continue
		}
		set[k] = v
	}
	res, err := col.UpdateMany(ctx, filter, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return 0, quarry.NewConstraintError(m.Table, err)
		}
		return 0, err
	}
	return res.MatchedCount, nil
}

// Delete implements adapter.Adapter.
func (a *Adapter) Delete(ctx context.Context, m *adapter.Mutation) (int64, error) {
	col, err := a.collection(m.Table)
	if err != nil {
		return 0, err
	}
	filter, err := Filter(m.Predicates)
	if err != nil {
		return 0, err
	}
	res, err := col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Begin implements adapter.Adapter. Multi-document transactions require
// a replica-set session, which this adapter does not manage; absence of
// transaction guarantees is surfaced, never simulated.
func (a *Adapter) Begin(context.Context) error {
	return quarry.NewUnsupportedError(adapter.Mongo, "begin", "transactions")
}

// Commit implements adapter.Adapter.
func (a *Adapter) Commit(context.Context) error {
	return quarry.NewUnsupportedError(adapter.Mongo, "commit", "transactions")
}

// Rollback implements adapter.Adapter.
func (a *Adapter) Rollback(context.Context) error {
	return quarry.NewUnsupportedError(adapter.Mongo, "rollback", "transactions")
}

// Raw implements adapter.Adapter. The query is a database command in
// MongoDB extended JSON, e.g. {"ping": 1} or a full "aggregate"
// command; the decoded native response is returned unchanged.
func (a *Adapter) Raw(ctx context.Context, query string, _ ...any) (any, error) {
	if a.db == nil {
		return nil, quarry.NewConnectionError(adapter.Mongo, fmt.Errorf("not connected"))
	}
	var cmd bson.D
	if err := bson.UnmarshalExtJSON([]byte(query), true, &cmd); err != nil {
		return nil, quarry.NewConfigError("mongodb: raw command is not valid extended JSON: %v", err)
	}
	var out bson.M
	if err := a.db.RunCommand(ctx, cmd).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Aggregate runs an aggregation pipeline against a collection and
// returns backend-neutral rows. This powers the query-builder
// aggregation extension.
func (a *Adapter) Aggregate(ctx context.Context, collection string, pipeline any) ([]adapter.Row, error) {
	col, err := a.collection(collection)
	if err != nil {
		return nil, err
	}
	cur, err := col.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var docs []bson.M
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	rows := make([]adapter.Row, len(docs))
	for i, doc := range docs {
		rows[i] = mirrorID(adapter.Row(doc))
	}
	return rows, nil
}

// CreateTable implements adapter.Adapter: it creates the collection and
// the unique indexes implied by the definition. Column shapes are not
// enforced; the store is schemaless.
func (a *Adapter) CreateTable(ctx context.Context, def *adapter.TableDef) error {
	if a.db == nil {
		return quarry.NewConnectionError(adapter.Mongo, fmt.Errorf("not connected"))
	}
	if err := a.db.CreateCollection(ctx, def.Name); err != nil {
		return err
	}
	return a.createIndexes(ctx, def)
}

// AlterTable implements adapter.Adapter: only new indexes apply.
func (a *Adapter) AlterTable(ctx context.Context, def *adapter.TableDef) error {
	return a.createIndexes(ctx, def)
}

func (a *Adapter) createIndexes(ctx context.Context, def *adapter.TableDef) error {
	col, err := a.collection(def.Name)
	if err != nil {
		return err
	}
	var models []mongo.IndexModel
	for _, c := range def.Columns {
		if c.Unique {
			models = append(models, mongo.IndexModel{
				Keys:    bson.D{{Key: c.Name, Value: 1}},
				Options: options.Index().SetUnique(true),
			})
		}
	}
	for _, idx := range def.Indexes {
		keys := bson.D{}
		for _, c := range idx.Columns {
			keys = append(keys, bson.E{Key: c, Value: 1})
		}
		models = append(models, mongo.IndexModel{
			Keys:    keys,
			Options: options.Index().SetUnique(idx.Unique),
		})
	}
	if len(models) == 0 {
		return nil
	}
	_, err = col.Indexes().CreateMany(ctx, models)
	return err
}

// DropTable implements adapter.Adapter.
func (a *Adapter) DropTable(ctx context.Context, table string) error {
	col, err := a.collection(table)
	if err != nil {
		return err
	}
	return col.Drop(ctx)
}

// HasTable implements adapter.Adapter.
func (a *Adapter) HasTable(ctx context.Context, table string) (bool, error) {
	if a.db == nil {
		return false, quarry.NewConnectionError(adapter.Mongo, fmt.Errorf("not connected"))
	}
	names, err := a.db.ListCollectionNames(ctx, bson.M{"name": table})
	if err != nil {
		return false, err
	}
	return len(names) > 0, nil
}

// HasColumn implements adapter.Adapter. A field "exists" when at least
// one document carries it.
func (a *Adapter) HasColumn(ctx context.Context, table, column string) (bool, error) {
	col, err := a.collection(table)
	if err != nil {
		return false, err
	}
	n, err := col.CountDocuments(ctx, bson.M{fieldName(column): bson.M{"$exists": true}})
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Tables implements adapter.Adapter.
func (a *Adapter) Tables(ctx context.Context) ([]string, error) {
	if a.db == nil {
		return nil, quarry.NewConnectionError(adapter.Mongo, fmt.Errorf("not connected"))
	}
	return a.db.ListCollectionNames(ctx, bson.M{})
}

// idValue normalizes a native identifier into its canonical neutral
// form: ObjectIDs become hex strings, everything else passes through.
func idValue(v any) any {
	if oid, ok := v.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return v
}

// mirrorID adds the synthetic "id" field mirroring "_id" on a result
// row, keeping both present and equal in value.
func mirrorID(row adapter.Row) adapter.Row {
	if raw, ok := row["_id"]; ok {
		id := idValue(raw)
		row["_id"] = id
		row["id"] = id
	}
	return row
}

var _ adapter.Adapter = (*Adapter)(nil)
