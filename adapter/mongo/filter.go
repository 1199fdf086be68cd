package mongo

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/quarrydb/quarry"
	"github.com/quarrydb/quarry/adapter"
)

// fieldName maps the neutral "id" column onto the native "_id" field.
func fieldName(col string) string {
	if col == "id" {
		return "_id"
	}
	return col
}

// idCoerce converts hex strings targeting "_id" into ObjectIDs so that
// ids round-trip between their neutral and native representations.
func idCoerce(field string, v any) any {
	if field != "_id" {
		return v
	}
	if s, ok := v.(string); ok {
		if oid, err := primitive.ObjectIDFromHex(s); err == nil {
			return oid
		}
	}
	return v
}

// Filter translates a uniform predicate list into a MongoDB filter
// document. SQL precedence is preserved: AND binds tighter than OR, so
// the list is split into OR-separated conjunction groups.
func Filter(preds []adapter.Predicate) (bson.M, error) {
	if len(preds) == 0 {
		return bson.M{}, nil
	}
	var groups []bson.M
	var current []bson.M
	flush := func() {
		switch len(current) {
		case 0:
		case 1:
			groups = append(groups, current[0])
		default:
			groups = append(groups, bson.M{"$and": current})
		}
		current = nil
	}
	for i, p := range preds {
		if i > 0 && p.Bool == adapter.Or {
			flush()
		}
		clause, err := clause(p)
		if err != nil {
			return nil, err
		}
		current = append(current, clause)
	}
	flush()
	if len(groups) == 1 {
		return groups[0], nil
	}
	return bson.M{"$or": groups}, nil
}

func clause(p adapter.Predicate) (bson.M, error) {
	field := fieldName(p.Column)
	switch strings.ToLower(p.Op) {
	case "=":
		return bson.M{field: idCoerce(field, p.Value)}, nil
	case "!=", "<>":
		return bson.M{field: bson.M{"$ne": idCoerce(field, p.Value)}}, nil
	case "<":
		return bson.M{field: bson.M{"$lt": p.Value}}, nil
	case "<=":
		return bson.M{field: bson.M{"$lte": p.Value}}, nil
	case ">":
		return bson.M{field: bson.M{"$gt": p.Value}}, nil
	case ">=":
		return bson.M{field: bson.M{"$gte": p.Value}}, nil
	case "in", "not in":
		vals, ok := p.Value.([]any)
		if !ok {
			return nil, quarry.NewConfigError("mongodb: %q predicate on %s requires a slice value, got %T", p.Op, p.Column, p.Value)
		}
		coerced := make([]any, len(vals))
		for i, v := range vals {
			coerced[i] = idCoerce(field, v)
		}
		op := "$in"
		if strings.ToLower(p.Op) == "not in" {
			op = "$nin"
		}
		return bson.M{field: bson.M{op: coerced}}, nil
	case "null":
		return bson.M{field: nil}, nil
	case "not null":
		return bson.M{field: bson.M{"$ne": nil}}, nil
	case "like", "not like":
		s, ok := p.Value.(string)
		if !ok {
			return nil, quarry.NewConfigError("mongodb: like predicate on %s requires a string value, got %T", p.Column, p.Value)
		}
		re := primitive.Regex{Pattern: likeToRegex(s), Options: "i"}
		if strings.ToLower(p.Op) == "not like" {
			return bson.M{field: bson.M{"$not": re}}, nil
		}
		return bson.M{field: re}, nil
	default:
		return nil, quarry.NewUnsupportedError(adapter.Mongo, "select", "operator "+p.Op)
	}
}

// likeToRegex converts a SQL LIKE pattern into an anchored regular
// expression: % matches any run, _ matches one character, everything
// else is matched literally.
func likeToRegex(pattern string) string {
	var sb strings.Builder
	sb.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteString(".")
		case '.', '^', '$', '*', '+', '?', '(', ')', '[', ']', '{', '}', '|', '\\':
			sb.WriteString("\\")
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	sb.WriteString("$")
	return sb.String()
}
