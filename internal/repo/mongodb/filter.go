package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/geocoder89/mediahub/internal/query"
)

var mongoOps = map[query.Operator]string{
	query.OpEq:  "$eq",
	query.OpGte: "$gte",
	query.OpGt:  "$gt",
	query.OpLte: "$lte",
	query.OpLt:  "$lt",
}

// buildFilter turns resolved conditions into a document filter on top of
// base. Conditions on the same field are merged into one operator document.
func buildFilter(base bson.M, conds []query.ResolvedCondition) bson.M {
	filter := bson.M{}
	for k, v := range base {
		if ops, ok := v.(bson.M); ok {
			cp := make(bson.M, len(ops))
			for op, arg := range ops {
				cp[op] = arg
			}
			v = cp
		}
		filter[k] = v
	}

	for _, c := range conds {
		ops, ok := filter[c.Field.Column].(bson.M)
		if !ok {
			ops = bson.M{}
			if existing, taken := filter[c.Field.Column]; taken {
				ops["$eq"] = existing
			}
			filter[c.Field.Column] = ops
		}

		if c.Op == query.OpIn {
			ops["$in"] = bson.A(c.Values)
			continue
		}
		ops[mongoOps[c.Op]] = c.Value
	}
	return filter
}

// buildSort always ends on _id so pages are stable.
func buildSort(keys []query.ResolvedSort) bson.D {
	sort := make(bson.D, 0, len(keys)+1)
	for _, k := range keys {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: k.Field.Column, Value: dir})
	}
	return append(sort, bson.E{Key: "_id", Value: 1})
}

func findOptions(r query.Resolved) *options.FindOptionsBuilder {
	opts := options.Find().SetSort(buildSort(r.Sort))
	if r.Skip > 0 {
		opts.SetSkip(int64(r.Skip))
	}
	if r.Limit > 0 {
		opts.SetLimit(int64(r.Limit))
	}
	return opts
}
