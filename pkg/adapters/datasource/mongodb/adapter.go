// Package mongodb is the remote-document source adapter. Schema is
// schema-on-read: a bounded number of documents per collection is sampled and
// observed field names are unioned, so the descriptor is inherently
// approximate. Only one query shape is honestly supported for execution.
package mongodb

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/datalens-ai/datalens-engine/pkg/adapters/datasource"
	"github.com/datalens-ai/datalens-engine/pkg/apperrors"
	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

// selectPattern is the single supported query shape:
// SELECT * FROM <collection> [LIMIT n]. Anything else is UnsupportedQuery -
// a deliberate, documented scope limit, not a bug.
var selectPattern = regexp.MustCompile(`(?is)^\s*SELECT\s+\*\s+FROM\s+("?)([A-Za-z0-9_.-]+)("?)\s*(?:LIMIT\s+(\d+)\s*)?;?\s*$`)

// Adapter provides MongoDB connectivity with the uniform capability set.
type Adapter struct {
	config     *Config
	client     *mongo.Client
	db         *mongo.Database
	sampleSize int
	logger     *zap.Logger
}

// NewAdapter connects a client for the configured database.
func NewAdapter(ctx context.Context, cfg *Config, sampleSize int, logger *zap.Logger) (*Adapter, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindMongoDB, err)
	}

	return &Adapter{
		config:     cfg,
		client:     client,
		db:         client.Database(cfg.Database),
		sampleSize: sampleSize,
		logger:     logger,
	}, nil
}

func (a *Adapter) Kind() string { return datasource.KindMongoDB }

// TestConnection verifies the server is reachable and the database lists
// collections without error.
func (a *Adapter) TestConnection(ctx context.Context) error {
	if err := a.client.Ping(ctx, nil); err != nil {
		return apperrors.ConnectionError(datasource.KindMongoDB, fmt.Errorf("ping failed: %w", err))
	}
	if _, err := a.db.ListCollectionNames(ctx, bson.D{}); err != nil {
		return apperrors.ConnectionError(datasource.KindMongoDB, fmt.Errorf("list collections: %w", err))
	}
	return nil
}

// IntrospectSchema samples up to sampleSize documents per collection and
// unions observed field names. A field seen with more than one type is
// reported as a union ("INTEGER/TEXT"); a field absent from some sampled
// documents is nullable.
func (a *Adapter) IntrospectSchema(ctx context.Context) (*schema.Descriptor, error) {
	names, err := a.db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindMongoDB, fmt.Errorf("list collections: %w", err))
	}

	desc := &schema.Descriptor{}
	for _, name := range names {
		table, err := a.introspectCollection(ctx, name)
		if err != nil {
			return nil, err
		}
		desc.Tables = append(desc.Tables, *table)
	}
	return desc, nil
}

func (a *Adapter) introspectCollection(ctx context.Context, name string) (*schema.Table, error) {
	docs, err := a.fetchDocuments(ctx, name, a.sampleSize)
	if err != nil {
		return nil, apperrors.ConnectionError(datasource.KindMongoDB, err)
	}

	fields, index := unionFields(docs)

	type fieldInfo struct {
		typ     string
		seen    int
		samples []any
	}
	infos := make([]fieldInfo, len(fields))
	for _, doc := range docs {
		for _, elem := range doc {
			i := index[elem.Key]
			infos[i].seen++
			infos[i].typ = schema.UnionType(infos[i].typ, inferBSONType(elem.Value))
			if len(infos[i].samples) < a.sampleSize && elem.Value != nil {
				infos[i].samples = append(infos[i].samples, displayValue(elem.Value))
			}
		}
	}

	table := &schema.Table{Name: name}
	for i, field := range fields {
		typ := infos[i].typ
		if typ == "" {
			typ = string(schema.TypeUnknown)
		}
		table.Columns = append(table.Columns, schema.Column{
			Name:         field,
			Type:         typ,
			Nullable:     infos[i].seen < len(docs),
			SampleValues: infos[i].samples,
		})
	}

	count, err := a.RowCount(ctx, name)
	if err != nil {
		return nil, err
	}
	table.RowCount = count
	return table, nil
}

// ExecuteQuery accepts only the supported shape and dispatches it as a find.
func (a *Adapter) ExecuteQuery(ctx context.Context, query string, limit int) (*datasource.QueryResult, error) {
	match := selectPattern.FindStringSubmatch(query)
	if match == nil {
		return nil, fmt.Errorf("%w: document store only supports SELECT * FROM <collection> [LIMIT n]",
			apperrors.ErrUnsupportedQuery)
	}

	collection := match[2]
	effective := datasource.EffectiveLimit(limit)
	if match[4] != "" {
		if n, err := strconv.Atoi(match[4]); err == nil {
			effective = datasource.EffectiveLimit(n)
		}
	}

	return a.SampleRows(ctx, collection, effective)
}

// SampleRows returns the first documents of a collection in tabular form.
// An empty collection name means the first collection.
func (a *Adapter) SampleRows(ctx context.Context, table string, limit int) (*datasource.QueryResult, error) {
	if table == "" {
		names, err := a.db.ListCollectionNames(ctx, bson.D{})
		if err != nil || len(names) == 0 {
			return nil, apperrors.NewExecutionError(datasource.KindMongoDB, fmt.Errorf("no collections: %v", err))
		}
		table = names[0]
	}

	effective := datasource.EffectiveLimit(limit)
	docs, err := a.fetchDocuments(ctx, table, effective+1)
	if err != nil {
		return nil, apperrors.NewExecutionError(datasource.KindMongoDB, err)
	}

	truncated := false
	if len(docs) > effective {
		truncated = true
		docs = docs[:effective]
	}

	fields, index := unionFields(docs)
	columns := make([]datasource.ColumnInfo, len(fields))
	for i, field := range fields {
		columns[i] = datasource.ColumnInfo{Name: field, Type: string(schema.TypeUnknown)}
	}

	rows := make([][]any, len(docs))
	for ri, doc := range docs {
		row := make([]any, len(fields))
		for _, elem := range doc {
			row[index[elem.Key]] = displayValue(elem.Value)
		}
		rows[ri] = row
	}

	return &datasource.QueryResult{
		Columns:   columns,
		Rows:      rows,
		RowCount:  len(rows),
		Truncated: truncated,
	}, nil
}

// RowCount returns the collection's estimated document count; exact counting
// scans the collection, which is not worth it for introspection.
func (a *Adapter) RowCount(ctx context.Context, table string) (int64, error) {
	count, err := a.db.Collection(table).EstimatedDocumentCount(ctx)
	if err != nil {
		return 0, apperrors.NewExecutionError(datasource.KindMongoDB, err)
	}
	return count, nil
}

// Close disconnects the client.
func (a *Adapter) Close() error {
	if a.client == nil {
		return nil
	}
	err := a.client.Disconnect(context.Background())
	a.client = nil
	if err != nil && err != mongo.ErrClientDisconnected {
		return err
	}
	return nil
}

func (a *Adapter) fetchDocuments(ctx context.Context, collection string, limit int) ([]bson.D, error) {
	cursor, err := a.db.Collection(collection).Find(ctx, bson.D{},
		options.Find().SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("find in %s: %w", collection, err)
	}

	var docs []bson.D
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("read documents from %s: %w", collection, err)
	}
	return docs, nil
}

// unionFields collects field names across documents in first-seen order.
func unionFields(docs []bson.D) (fields []string, index map[string]int) {
	index = make(map[string]int)
	for _, doc := range docs {
		for _, elem := range doc {
			if _, ok := index[elem.Key]; !ok {
				index[elem.Key] = len(fields)
				fields = append(fields, elem.Key)
			}
		}
	}
	return fields, index
}

// inferBSONType maps a decoded BSON value into the uniform vocabulary.
func inferBSONType(v any) schema.ValueType {
	switch v.(type) {
	case primitive.DateTime, primitive.Timestamp:
		return schema.TypeDatetime
	case primitive.ObjectID:
		return schema.TypeText
	case primitive.A:
		return schema.TypeArray
	case bson.D, bson.M:
		return schema.TypeObject
	case primitive.Decimal128:
		return schema.TypeReal
	case int32, int64:
		return schema.TypeInteger
	case float64:
		// BSON doubles are typed; do not reinterpret whole values as integers.
		return schema.TypeReal
	case string:
		// Document values carry their type; a string stays TEXT even when its
		// content looks numeric.
		return schema.TypeText
	default:
		return schema.InferValue(v)
	}
}

// displayValue converts BSON-specific values into plain representations.
func displayValue(v any) any {
	switch val := v.(type) {
	case primitive.ObjectID:
		return val.Hex()
	case primitive.DateTime:
		return val.Time().UTC()
	case primitive.A:
		return []any(val)
	case bson.D:
		return val.Map()
	default:
		return v
	}
}

// Ensure Adapter implements the capability set at compile time.
var _ datasource.Adapter = (*Adapter)(nil)
