package realestate

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// ComparableSale is a recent nearby sale.
type ComparableSale struct {
	Address       string  `json:"address" yaml:"address"`
	SalePrice     int     `json:"sale_price" yaml:"sale_price"`
	SaleDate      string  `json:"sale_date" yaml:"sale_date"`
	SquareFeet    int     `json:"square_feet" yaml:"square_feet"`
	Bedrooms      int     `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms     float64 `json:"bathrooms" yaml:"bathrooms"`
	PropertyType  string  `json:"property_type" yaml:"property_type"`
	DistanceMiles float64 `json:"distance_miles" yaml:"distance_miles"`
}

const (
	comparablesEndpoint = "comparable_homes"
	maxComparables      = 20
)

var (
	compListPaths = []string{
		"comps", "comparableSales", "recentSales",
		"data.comps", "data.comparableSales", "data.recentSales",
		"property.comps", "property.comparableSales", "property.recentSales",
	}
	compAddressPaths  = []string{"address", "streetAddress", "address.streetAddress"}
	compPricePaths    = []string{"price", "salePrice", "lastSoldPrice"}
	compDatePaths     = []string{"saleDate", "date", "dateSold"}
	compSqftPaths     = []string{"squareFeet", "sqft", "livingArea"}
	compTypePaths     = []string{"propertyType", "type", "homeType"}
	compDistancePaths = []string{"distance", "distanceMiles"}
)

var saleDateLayouts = []string{time.RFC3339, "2006-01-02", "01/02/2006", "2006/01/02"}

func (c *client) ComparableSales(ctx context.Context, location, propertyType string) ([]ComparableSale, error) {
	loc, err := validateLocation(location)
	if err != nil {
		return nil, err
	}
	propertyType = strings.ToLower(strings.TrimSpace(propertyType))

	params := map[string]string{"location": loc, "property_type": propertyType}
	return cached(c, "comparables", params, c.ttls.Medium, func() ([]ComparableSale, bool, error) {
		doc, err := c.get(ctx, "comparables", comparablesEndpoint, url.Values{"address": {loc}})
		if isNarrowInput(err) {
			zap.L().Warn("realestate: comparables need a specific address, returning none",
				zap.String("location", loc))
			return []ComparableSale{}, true, nil
		}
		if err != nil {
			return nil, false, err
		}
		return parseComparables(doc, propertyType), false, nil
	})
}

func parseComparables(doc gjson.Result, propertyType string) []ComparableSale {
	type dated struct {
		sale   ComparableSale
		soldAt time.Time
	}

	items := firstList(doc, compListPaths)
	found := make([]dated, 0, len(items))
	for _, item := range items {
		if len(found) == maxComparables {
			break
		}
		kind := propertyTypeOf(firstString(item, "", compTypePaths))
		if propertyType != "" && kind != propertyType {
			continue
		}
		sale := ComparableSale{
			Address:       firstString(item, "Address not available", compAddressPaths),
			SalePrice:     firstInt(item, 0, compPricePaths),
			SquareFeet:    firstInt(item, 0, compSqftPaths),
			Bedrooms:      firstInt(item, 0, listingBedPaths),
			Bathrooms:     firstFloat(item, 0, listingBathPaths),
			PropertyType:  kind,
			DistanceMiles: max(firstFloat(item, 0, compDistancePaths), 0),
		}
		var soldAt time.Time
		sale.SaleDate, soldAt = parseSaleDate(item)
		found = append(found, dated{sale: sale, soldAt: soldAt})
	}

	sort.SliceStable(found, func(i, j int) bool {
		a, b := found[i], found[j]
		if !a.soldAt.IsZero() || !b.soldAt.IsZero() {
			return a.soldAt.After(b.soldAt)
		}
		return a.sale.SaleDate > b.sale.SaleDate
	})

	out := make([]ComparableSale, len(found))
	for i, d := range found {
		out[i] = d.sale
	}
	return out
}

// parseSaleDate accepts common date strings and epoch milliseconds. Unknown
// formats are kept verbatim with a zero time.
func parseSaleDate(item gjson.Result) (string, time.Time) {
	for _, p := range compDatePaths {
		r := item.Get(p)
		switch r.Type {
		case gjson.Number:
			if r.Num > 0 {
				t := time.UnixMilli(int64(r.Num)).UTC()
				return t.Format("2006-01-02"), t
			}
		case gjson.String:
			d := strings.TrimSpace(r.Str)
			if d == "" {
				continue
			}
			for _, layout := range saleDateLayouts {
				if t, err := time.Parse(layout, d); err == nil {
					return t.Format("2006-01-02"), t
				}
			}
			return d, time.Time{}
		}
	}
	return "", time.Time{}
}
