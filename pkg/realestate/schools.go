package realestate

import (
	"context"
	"net/url"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// SchoolRating is one nearby school, rated 0-10.
type SchoolRating struct {
	Name          string  `json:"name" yaml:"name"`
	Type          string  `json:"type" yaml:"type"`
	Rating        float64 `json:"rating" yaml:"rating"`
	DistanceMiles float64 `json:"distance_miles" yaml:"distance_miles"`
	Address       string  `json:"address,omitempty" yaml:"address,omitempty"`
	Grades        string  `json:"grades,omitempty" yaml:"grades,omitempty"`
}

const (
	defaultSchoolRadius = 5.0
	maxSchools          = 20
)

var (
	schoolListPaths = []string{
		"schools", "nearbySchools",
		"data.schools", "data.nearbySchools",
		"property.schools", "property.nearbySchools",
	}
	schoolNamePaths     = []string{"name", "schoolName"}
	schoolTypePaths     = []string{"type", "schoolType", "level"}
	schoolRatingPaths   = []string{"rating", "score", "greatSchoolsRating"}
	schoolDistancePaths = []string{"distance", "distanceMiles"}
	schoolAddressPaths  = []string{"address", "link"}
	schoolGradesPaths   = []string{"grades", "gradeRange"}
)

// schoolLikeKeys identify an unlabeled list whose items look like schools.
var schoolLikeKeys = []string{"name", "schoolName", "rating", "score", "type", "schoolType"}

func (c *client) SchoolRatings(ctx context.Context, location string, radiusMiles float64) ([]SchoolRating, error) {
	loc, err := validateLocation(location)
	if err != nil {
		return nil, err
	}
	if radiusMiles == 0 {
		radiusMiles = defaultSchoolRadius
	}
	if err := validateRange("radius_miles", radiusMiles, 1, 25); err != nil {
		return nil, err
	}

	params := map[string]string{"location": loc, "radius_miles": floatParam(radiusMiles)}
	return cached(c, "schools", params, c.ttls.Long, func() ([]SchoolRating, bool, error) {
		doc, err := c.get(ctx, "schools", addressEndpoint, url.Values{"address": {loc}})
		if isNarrowInput(err) {
			zap.L().Warn("realestate: schools need a specific address, returning none",
				zap.String("location", loc))
			return []SchoolRating{}, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		return parseSchools(doc), false, nil
	})
}

func parseSchools(doc gjson.Result) []SchoolRating {
	items := firstList(doc, schoolListPaths)
	if len(items) == 0 {
		items = discoverSchoolList(doc)
	}

	out := make([]SchoolRating, 0, len(items))
	for _, item := range items {
		if len(out) == maxSchools {
			break
		}
		out = append(out, SchoolRating{
			Name:          firstString(item, "Unknown", schoolNamePaths),
			Type:          strings.ToLower(firstString(item, "elementary", schoolTypePaths)),
			Rating:        clamp(firstFloat(item, 0, schoolRatingPaths), 0, 10),
			DistanceMiles: max(firstFloat(item, 0, schoolDistancePaths), 0),
			Address:       firstString(item, "", schoolAddressPaths),
			Grades:        firstString(item, "", schoolGradesPaths),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Rating > out[j].Rating })
	return out
}

// discoverSchoolList scans top-level lists for school-shaped items. Keys are
// visited in sorted order so the choice is deterministic.
func discoverSchoolList(doc gjson.Result) []gjson.Result {
	fields := doc.Map()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		items := objects(fields[k])
		if len(items) == 0 {
			continue
		}
		for _, sk := range schoolLikeKeys {
			if items[0].Get(sk).Exists() {
				return items
			}
		}
	}
	return nil
}
