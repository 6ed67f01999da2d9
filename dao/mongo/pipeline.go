package mongo

import (
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"venues-server/models/venue"
	"venues-server/query"
)

// DistanceField receives the $geoNear distance in meters.
const DistanceField = "distance"

// FindPipeline builds the page read for plan:
//
//	$geoNear (category and search pushed into its query) | $match
//	$match (open-now)
//	$sort
//	$skip, $limit
func FindPipeline(plan query.Plan) mongo.Pipeline {
	pipeline := filterStages(plan)

	if plan.Near != nil {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{
			{Key: DistanceField, Value: 1},
			{Key: "_id", Value: 1},
		}}})
	} else {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}})
	}

	if plan.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(plan.Skip)}})
	}
	if plan.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(plan.Limit)}})
	}
	return pipeline
}

// CountPipeline counts the full match set of plan into a "total" field.
func CountPipeline(plan query.Plan) mongo.Pipeline {
	return append(filterStages(plan), bson.D{{Key: "$count", Value: "total"}})
}

func filterStages(plan query.Plan) mongo.Pipeline {
	var pipeline mongo.Pipeline
	pushdown := pushdownQuery(plan.Filter)

	if plan.Near != nil {
		geoNear := bson.D{
			{Key: "near", Value: bson.D{
				{Key: "type", Value: venue.PointType},
				{Key: "coordinates", Value: bson.A{plan.Near.Center.Lon(), plan.Near.Center.Lat()}},
			}},
			{Key: "distanceField", Value: DistanceField},
			{Key: "maxDistance", Value: plan.Near.MaxDistanceMeters},
			{Key: "spherical", Value: true},
		}
		if len(pushdown) > 0 {
			geoNear = append(geoNear, bson.E{Key: "query", Value: pushdown})
		}
		pipeline = append(pipeline, bson.D{{Key: "$geoNear", Value: geoNear}})
	} else if len(pushdown) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: pushdown}})
	}

	if plan.Filter.OpenNow != nil {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: OpenNowMatch(*plan.Filter.OpenNow)}})
	}
	return pipeline
}

// pushdownQuery holds the predicates an index can serve: category
// membership and the name/address search.
func pushdownQuery(f query.Filter) bson.D {
	var q bson.D
	if f.Category != "" {
		q = append(q, bson.E{Key: "category", Value: string(f.Category)})
	}
	if f.Search != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "name", Value: re}},
			bson.D{{Key: "address", Value: re}},
		}})
	}
	return q
}

// OpenNowMatch matches 24/7 venues and venues whose window contains at.
// Times are "HH:MM" strings, which order lexically. A window with close
// before open covers [open, 24:00) on its own day and [00:00, close] on the
// next, so the previous day's window is checked too.
func OpenNowMatch(at query.OpenAt) bson.D {
	t := at.Clock.String()
	today := hoursPath(venue.WeekdayName(at.Day))
	yesterday := hoursPath(venue.WeekdayName(venue.PreviousDay(at.Day)))

	sameDay := bson.D{{Key: "$and", Value: bson.A{
		hasWindow(today),
		bson.D{{Key: "$cond", Value: bson.D{
			{Key: "if", Value: overnight(today)},
			{Key: "then", Value: bson.D{{Key: "$gte", Value: bson.A{t, today.open}}}},
			{Key: "else", Value: bson.D{{Key: "$and", Value: bson.A{
				bson.D{{Key: "$lte", Value: bson.A{today.open, t}}},
				bson.D{{Key: "$lte", Value: bson.A{t, today.close}}},
			}}}},
		}}},
	}}}

	spill := bson.D{{Key: "$and", Value: bson.A{
		hasWindow(yesterday),
		overnight(yesterday),
		bson.D{{Key: "$lte", Value: bson.A{t, yesterday.close}}},
	}}}

	return bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "is24_7", Value: true}},
		bson.D{{Key: "$expr", Value: bson.D{{Key: "$or", Value: bson.A{sameDay, spill}}}}},
	}}}
}

type dayPaths struct {
	open, close string
}

func hoursPath(day string) dayPaths {
	return dayPaths{
		open:  fmt.Sprintf("$openingHours.%s.open", day),
		close: fmt.Sprintf("$openingHours.%s.close", day),
	}
}

// hasWindow requires both ends to be strings; a missing field would
// otherwise compare lower than any time.
func hasWindow(d dayPaths) bson.D {
	return bson.D{{Key: "$and", Value: bson.A{
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: d.open}}, "string"}}},
		bson.D{{Key: "$eq", Value: bson.A{bson.D{{Key: "$type", Value: d.close}}, "string"}}},
	}}}
}

func overnight(d dayPaths) bson.D {
	return bson.D{{Key: "$lt", Value: bson.A{d.close, d.open}}}
}

// StatsPipeline groups venues by category with count and average rating.
func StatsPipeline() mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$unwind", Value: "$category"}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$category"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "avgRating", Value: bson.D{{Key: "$avg", Value: "$rating"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "count", Value: -1}, {Key: "_id", Value: 1}}}},
	}
}
