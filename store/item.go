package store

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"

	"github.com/jacentio/dimstore/dimension"
	"github.com/jacentio/dimstore/internal/keys"
)

// Attributes managed by the store on every entity item.
const (
	attrVersion   = "version"
	attrRefs      = "refs"
	attrCreatedAt = "created_at"
	attrUpdatedAt = "updated_at"

	constraintSK = "CONSTRAINT"
)

// itemMeta is the store-managed part of an entity item.
type itemMeta struct {
	ID        int64  `dynamodbav:"id"`
	Version   int64  `dynamodbav:"version"`
	Refs      int64  `dynamodbav:"refs"`
	CreatedAt string `dynamodbav:"created_at"`
	UpdatedAt string `dynamodbav:"updated_at"`
}

// counterItem is one row of the counter table.
type counterItem struct {
	Name  string `dynamodbav:"name"`
	Value int64  `dynamodbav:"value"`
}

// stored is a decoded entity item.
type stored struct {
	rec  dimension.Record
	meta itemMeta
}

func numberAttr(n int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(n, 10)}
}

func stringAttr(s string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: s}
}

func idKey(id int64) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{dimension.IDField: numberAttr(id)}
}

// valueAttr encodes a field value. Integers are numbers; strings and dates
// are strings, dates in their ISO form so they sort chronologically.
func valueAttr(v dimension.Value) types.AttributeValue {
	if v.Kind() == dimension.KindInt {
		return numberAttr(v.AsInt())
	}
	return stringAttr(v.Text())
}

// marshalRecord builds the full item for a new record.
func marshalRecord(schema *dimension.Schema, rec dimension.Record, now time.Time) map[string]types.AttributeValue {
	ts := now.UTC().Format(time.RFC3339)
	item := map[string]types.AttributeValue{
		dimension.IDField: numberAttr(rec.ID),
		attrVersion:       numberAttr(1),
		attrRefs:          numberAttr(0),
		attrCreatedAt:     stringAttr(ts),
		attrUpdatedAt:     stringAttr(ts),
	}
	for _, f := range schema.Fields {
		item[f.Name] = valueAttr(rec.Fields[f.Name])
	}
	return item
}

// unmarshalRecord decodes an entity item using the field kinds of schema.
func unmarshalRecord(schema *dimension.Schema, item map[string]types.AttributeValue) (stored, error) {
	var out stored
	if err := attributevalue.UnmarshalMap(item, &out.meta); err != nil {
		return stored{}, errors.Wrapf(err, "%s: decode item", schema.Entity)
	}
	out.rec = dimension.Record{ID: out.meta.ID, Fields: make(map[string]dimension.Value, len(schema.Fields))}
	for _, f := range schema.Fields {
		var text string
		switch av := item[f.Name].(type) {
		case *types.AttributeValueMemberN:
			text = av.Value
		case *types.AttributeValueMemberS:
			text = av.Value
		default:
			return stored{}, errors.Newf("%s %d: attribute %q missing or of type %T", schema.Entity, out.meta.ID, f.Name, av)
		}
		v, err := dimension.ParseValue(f.Kind, text)
		if err != nil {
			return stored{}, errors.Wrapf(err, "%s %d: attribute %q", schema.Entity, out.meta.ID, f.Name)
		}
		out.rec.Fields[f.Name] = v
	}
	return out, nil
}

// constraintKey locates the claim item of c for rec.
func (s *Store) constraintKey(schema *dimension.Schema, c dimension.Constraint, rec dimension.Record) map[string]types.AttributeValue {
	values := make([]string, len(c.Fields))
	for i, name := range c.Fields {
		values[i] = rec.Fields[name].Text()
	}
	return map[string]types.AttributeValue{
		"pk": stringAttr(keys.ConstraintPK(schema.Table, c.Name, values...)),
		"sk": stringAttr(constraintSK),
	}
}

// constraintItem is the claim item written alongside rec.
func (s *Store) constraintItem(schema *dimension.Schema, c dimension.Constraint, rec dimension.Record) map[string]types.AttributeValue {
	item := s.constraintKey(schema, c, rec)
	item["entity"] = stringAttr(schema.Entity)
	item["constraint"] = stringAttr(c.Name)
	item["owner_id"] = numberAttr(rec.ID)
	return item
}
