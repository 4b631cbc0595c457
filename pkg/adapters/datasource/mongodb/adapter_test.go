package mongodb

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/datalens-ai/datalens-engine/pkg/schema"
)

func TestSelectPattern(t *testing.T) {
	tests := []struct {
		query      string
		collection string
		limit      string
		matches    bool
	}{
		{"SELECT * FROM users", "users", "", true},
		{"select * from users", "users", "", true},
		{"SELECT * FROM users LIMIT 10", "users", "10", true},
		{"  SELECT  *  FROM  users  LIMIT  5 ; ", "users", "5", true},
		{`SELECT * FROM "user-events"`, "user-events", "", true},
		{"SELECT * FROM db.users", "db.users", "", true},
		{"SELECT id FROM users", "", "", false},
		{"SELECT * FROM users WHERE id = 1", "", "", false},
		{"SELECT * FROM users ORDER BY id", "", "", false},
		{"SELECT * FROM users JOIN orders ON 1=1", "", "", false},
		{"SELECT COUNT(*) FROM users", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			match := selectPattern.FindStringSubmatch(tt.query)
			if !tt.matches {
				assert.Nil(t, match)
				return
			}
			require.NotNil(t, match)
			assert.Equal(t, tt.collection, match[2])
			assert.Equal(t, tt.limit, match[4])
		})
	}
}

func TestInferBSONType(t *testing.T) {
	tests := []struct {
		name     string
		value    any
		expected schema.ValueType
	}{
		{"object id", primitive.NewObjectID(), schema.TypeText},
		{"datetime", primitive.NewDateTimeFromTime(time.Now()), schema.TypeDatetime},
		{"int32", int32(5), schema.TypeInteger},
		{"int64", int64(5), schema.TypeInteger},
		{"whole double stays real", float64(5), schema.TypeReal},
		{"string stays text", "123", schema.TypeText},
		{"bool", true, schema.TypeBoolean},
		{"array", primitive.A{1, 2}, schema.TypeArray},
		{"embedded document", bson.D{{Key: "k", Value: 1}}, schema.TypeObject},
		{"decimal128", primitive.Decimal128{}, schema.TypeReal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, inferBSONType(tt.value))
		})
	}
}

func TestUnionFields(t *testing.T) {
	docs := []bson.D{
		{{Key: "_id", Value: 1}, {Key: "name", Value: "a"}},
		{{Key: "_id", Value: 2}, {Key: "email", Value: "b"}, {Key: "name", Value: "c"}},
	}

	fields, index := unionFields(docs)
	assert.Equal(t, []string{"_id", "name", "email"}, fields)
	assert.Equal(t, 2, index["email"])
}

func TestDisplayValue(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), displayValue(oid))

	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, at, displayValue(primitive.NewDateTimeFromTime(at)))

	assert.Equal(t, []any{1, 2}, displayValue(primitive.A{1, 2}))
	assert.Equal(t, "plain", displayValue("plain"))
}

func TestFromMap(t *testing.T) {
	cfg, err := FromMap(map[string]any{
		"uri":      "mongodb://localhost:27017",
		"database": "analytics",
	})
	require.NoError(t, err)
	assert.Equal(t, "mongodb://localhost:27017", cfg.URI)
	assert.Equal(t, "analytics", cfg.Database)

	_, err = FromMap(map[string]any{"database": "analytics"})
	assert.Error(t, err)

	_, err = FromMap(map[string]any{"uri": "mongodb://localhost:27017"})
	assert.Error(t, err)
}
