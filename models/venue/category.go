package venue

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
)

// Category is one of the fixed venue tags.
type Category string

const (
	CategoryBars        Category = "bars"
	CategoryClubs       Category = "clubs"
	CategoryRestaurants Category = "restaurants"
	CategoryHotels      Category = "hotels"
	CategoryShops       Category = "shops"
	CategorySkiResorts  Category = "skiresorts"
)

// CategoryAll is the query sentinel meaning "no category restriction".
const CategoryAll = "all"

// AllCategories lists the enumeration in display order.
var AllCategories = []Category{
	CategoryBars,
	CategoryClubs,
	CategoryRestaurants,
	CategoryHotels,
	CategoryShops,
	CategorySkiResorts,
}

// IsKnown reports whether c belongs to the fixed enumeration.
func (c Category) IsKnown() bool {
	for _, known := range AllCategories {
		if c == known {
			return true
		}
	}
	return false
}

// CategorySet holds the categories of a venue. Older records store a single
// string (sometimes comma separated); both JSON and BSON decoding accept that
// shape and turn it into a set so nothing downstream has to care.
type CategorySet []Category

// Contains is a membership test.
func (s CategorySet) Contains(c Category) bool {
	for _, have := range s {
		if have == c {
			return true
		}
	}
	return false
}

// Strings returns the categories as plain strings.
func (s CategorySet) Strings() []string {
	out := make([]string, len(s))
	for i, c := range s {
		out[i] = string(c)
	}
	return out
}

// ParseCategoryList splits a comma separated list into a set, trimming
// blanks and dropping duplicates.
func ParseCategoryList(raw string) CategorySet {
	return NewCategorySet(strings.Split(raw, ",")...)
}

// NewCategorySet builds a set from raw strings, normalising case and
// whitespace and dropping empties and duplicates.
func NewCategorySet(values ...string) CategorySet {
	set := make(CategorySet, 0, len(values))
	for _, v := range values {
		c := Category(strings.ToLower(strings.TrimSpace(v)))
		if c == "" || set.Contains(c) {
			continue
		}
		set = append(set, c)
	}
	return set
}

// UnmarshalJSON accepts either a string or an array of strings.
func (s *CategorySet) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case nil:
		*s = nil
	case string:
		*s = ParseCategoryList(val)
	case []interface{}:
		values := make([]string, 0, len(val))
		for _, item := range val {
			str, ok := item.(string)
			if !ok {
				return fmt.Errorf("category entries must be strings, got %T", item)
			}
			values = append(values, str)
		}
		*s = NewCategorySet(values...)
	default:
		return fmt.Errorf("category must be a string or an array, got %T", raw)
	}
	return nil
}

// UnmarshalBSONValue is the BSON counterpart of UnmarshalJSON.
func (s *CategorySet) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}

	switch t {
	case bsontype.Null, bsontype.Undefined:
		*s = nil
	case bsontype.String:
		*s = ParseCategoryList(raw.StringValue())
	case bsontype.Array:
		values, err := raw.Array().Values()
		if err != nil {
			return fmt.Errorf("failed to read category array: %w", err)
		}
		strs := make([]string, 0, len(values))
		for _, v := range values {
			str, ok := v.StringValueOK()
			if !ok {
				return fmt.Errorf("category entries must be strings, got %s", v.Type)
			}
			strs = append(strs, str)
		}
		*s = NewCategorySet(strs...)
	default:
		return fmt.Errorf("category must be a string or an array, got %s", t)
	}
	return nil
}
