package media

// StatsQuery selects the grouping field and the stat to sort on, descending.
type StatsQuery struct {
	GroupBy string
	SortBy  string
}

const (
	DefaultStatsGroup = "mediaType"
	DefaultStatsSort  = "avgRating"
	// StatsMinRating is the rating floor for items counted in stats.
	StatsMinRating = 3.3
)

var statsGroups = map[string]bool{
	"mediaType": true,
	"category":  true,
	"creator":   true,
}

var statsSorts = map[string]bool{
	"numMedia":     true,
	"avgRating":    true,
	"numOfRatings": true,
	"avgPrice":     true,
	"minPrice":     true,
	"maxPrice":     true,
}

// Normalize fills defaults and reports unknown group or sort fields.
func (q StatsQuery) Normalize() (StatsQuery, error) {
	if q.GroupBy == "" {
		q.GroupBy = DefaultStatsGroup
	}
	if q.SortBy == "" {
		q.SortBy = DefaultStatsSort
	}

	var problems []string
	if !statsGroups[q.GroupBy] {
		problems = append(problems, "groupBy must be one of mediaType, category or creator")
	}
	if !statsSorts[q.SortBy] {
		problems = append(problems, "sort must be one of numMedia, avgRating, numOfRatings, avgPrice, minPrice or maxPrice")
	}
	if len(problems) > 0 {
		return StatsQuery{}, &ValidationError{Problems: problems}
	}
	return q, nil
}

type Stat struct {
	Group        string  `json:"_id" bson:"_id"`
	NumMedia     int     `json:"numMedia" bson:"numMedia"`
	AvgRating    float64 `json:"avgRating" bson:"avgRating"`
	NumOfRatings float64 `json:"numOfRatings" bson:"numOfRatings"`
	AvgPrice     float64 `json:"avgPrice" bson:"avgPrice"`
	MinPrice     float64 `json:"minPrice" bson:"minPrice"`
	MaxPrice     float64 `json:"maxPrice" bson:"maxPrice"`
}

// SortValue returns the stat named by field, as accepted by Normalize.
func (s Stat) SortValue(field string) float64 {
	switch field {
	case "numMedia":
		return float64(s.NumMedia)
	case "numOfRatings":
		return s.NumOfRatings
	case "avgPrice":
		return s.AvgPrice
	case "minPrice":
		return s.MinPrice
	case "maxPrice":
		return s.MaxPrice
	default:
		return s.AvgRating
	}
}
