package realestate

import (
	"context"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// MarketTrends describes recent market movement for an area.
type MarketTrends struct {
	Location           string  `json:"location" yaml:"location"`
	Timeframe          string  `json:"timeframe" yaml:"timeframe"`
	MedianPrice        float64 `json:"median_price" yaml:"median_price"`
	PriceChangePercent float64 `json:"price_change_percent" yaml:"price_change_percent"`
	DaysOnMarketAvg    float64 `json:"days_on_market_avg" yaml:"days_on_market_avg"`
	InventoryCount     int     `json:"inventory_count" yaml:"inventory_count"`
	SalesVelocity      float64 `json:"sales_velocity" yaml:"sales_velocity"`
	PricePerSqft       float64 `json:"price_per_sqft" yaml:"price_per_sqft"`
	TrendDirection     string  `json:"trend_direction" yaml:"trend_direction"`
	// Degraded is set when every value is a neutral default.
	Degraded           bool    `json:"degraded,omitempty" yaml:"degraded,omitempty"`
}

// Trend directions.
const (
	TrendUp     = "up"
	TrendDown   = "down"
	TrendStable = "stable"
)

const (
	defaultTimeframe       = "1y"
	defaultDaysOnMarket    = 30.0
	marketEndpoint         = "housing_market"
	trendDirectionBoundary = 2.0
)

var validTimeframes = map[string]bool{"1m": true, "3m": true, "6m": true, "1y": true}

var (
	trendZipPaths       = []string{"zipcode", "zipCode", "address.zipcode", "address.zipCode"}
	medianPricePaths    = []string{"price", "medianPrice", "zestimate", "data.price", "property.price"}
	pricePerSqftPaths   = []string{"pricePerSqft", "pricePerSquareFoot", "price_per_sqft", "data.pricePerSqft"}
	priceChangePaths    = []string{"priceChangePercent", "price_change_percent", "data.priceChangePercent"}
	daysOnMarketPaths   = []string{"daysOnMarket", "daysOnZillow", "days_on_market", "data.daysOnMarket"}
	inventoryCountPaths = []string{"inventoryCount", "inventory_count", "data.inventoryCount"}
	salesVelocityPaths  = []string{"salesVelocity", "sales_velocity", "data.salesVelocity"}
)

func neutralTrends(location, timeframe string) MarketTrends {
	return MarketTrends{
		Location:        location,
		Timeframe:       timeframe,
		DaysOnMarketAvg: defaultDaysOnMarket,
		TrendDirection:  TrendStable,
		Degraded:        true,
	}
}

func (c *client) MarketTrends(ctx context.Context, location, timeframe string) (*MarketTrends, error) {
	loc, err := validateLocation(location)
	if err != nil {
		return nil, err
	}
	timeframe = strings.ToLower(strings.TrimSpace(timeframe))
	if timeframe == "" {
		timeframe = defaultTimeframe
	}
	if !validTimeframes[timeframe] {
		return nil, &ValidationError{Field: "timeframe", Reason: "must be one of 1m, 3m, 6m, 1y"}
	}

	params := map[string]string{"location": loc, "timeframe": timeframe}
	trends, err := cached(c, "trends", params, c.ttls.Medium, func() (MarketTrends, bool, error) {
		// The market endpoint is keyed by zip code, so resolve it first.
		prop, err := c.get(ctx, "trends", addressEndpoint, url.Values{"address": {loc}})
		if isNarrowInput(err) {
			zap.L().Warn("realestate: trends need a specific address, using neutral trends",
				zap.String("location", loc))
			return neutralTrends(loc, timeframe), true, nil
		}
		if err != nil {
			return MarketTrends{}, false, err
		}

		query := url.Values{"address": {loc}}
		if zip := resolveZip(prop, loc); zip != "" {
			query = url.Values{"zip": {zip}}
		}
		doc, err := c.get(ctx, "trends", marketEndpoint, query)
		if isNarrowInput(err) {
			return neutralTrends(loc, timeframe), true, nil
		}
		if err != nil {
			return MarketTrends{}, false, err
		}
		trends := parseTrends(loc, timeframe, doc)
		if trends.Degraded {
			zap.L().Warn("realestate: market response had no trend fields, using neutral trends",
				zap.String("location", loc))
		}
		return trends, trends.Degraded, nil
	})
	if err != nil {
		return nil, err
	}
	return &trends, nil
}

// resolveZip finds a zip code in the property response, falling back to a
// five digit token at the end of the location.
func resolveZip(doc gjson.Result, location string) string {
	if zip := firstString(doc, "", trendZipPaths); zip != "" {
		return zip
	}
	fields := strings.Fields(strings.ReplaceAll(location, ",", " "))
	if len(fields) == 0 {
		return ""
	}
	last := fields[len(fields)-1]
	if len(last) != 5 {
		return ""
	}
	for _, r := range last {
		if r < '0' || r > '9' {
			return ""
		}
	}
	return last
}

func parseTrends(location, timeframe string, doc gjson.Result) MarketTrends {
	if !anyPresent(doc, medianPricePaths, pricePerSqftPaths, priceChangePaths, daysOnMarketPaths,
		inventoryCountPaths, salesVelocityPaths) {
		return neutralTrends(location, timeframe)
	}

	change := firstFloat(doc, 0, priceChangePaths)
	days := firstFloat(doc, defaultDaysOnMarket, daysOnMarketPaths)
	inventory := firstInt(doc, 0, inventoryCountPaths)

	velocity := firstFloat(doc, 0, salesVelocityPaths)
	if velocity == 0 {
		velocity = float64(inventory) / max(days/30, 1)
	}

	return MarketTrends{
		Location:           location,
		Timeframe:          timeframe,
		MedianPrice:        firstFloat(doc, 0, medianPricePaths),
		PriceChangePercent: change,
		DaysOnMarketAvg:    days,
		InventoryCount:     inventory,
		SalesVelocity:      velocity,
		PricePerSqft:       firstFloat(doc, 0, pricePerSqftPaths),
		TrendDirection:     trendDirection(change),
	}
}

func trendDirection(changePercent float64) string {
	switch {
	case changePercent > trendDirectionBoundary:
		return TrendUp
	case changePercent < -trendDirectionBoundary:
		return TrendDown
	default:
		return TrendStable
	}
}
