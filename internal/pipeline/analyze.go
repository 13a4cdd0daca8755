package pipeline

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/property-advisor/internal/model"
	"github.com/sells-group/property-advisor/pkg/realestate"
)

const (
	schoolRadiusMiles = 5.0
	trendTimeframe    = "1y"
)

// analyze builds an AnalysisRecord for each of the first K listings. Each
// listing, and each lookup within it, fails independently.
func (p *Pipeline) analyze(ctx context.Context, gen *generator, listings []realestate.Listing, criteria model.SearchCriteria) []model.AnalysisRecord {
	if len(listings) > p.analyzeLimit {
		listings = listings[:p.analyzeLimit]
	}

	records := make([]*model.AnalysisRecord, len(listings))
	var g errgroup.Group
	g.SetLimit(p.analyzeConcurrency)
	for i, l := range listings {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					zap.L().Error("pipeline: listing analysis panicked",
						zap.String("listing_id", l.ID),
						zap.Any("panic", r),
					)
				}
			}()
			rec := p.analyzeListing(ctx, gen, l, criteria)
			records[i] = &rec
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.AnalysisRecord, 0, len(records))
	for _, rec := range records {
		if rec != nil {
			out = append(out, *rec)
		}
	}
	return out
}

func (p *Pipeline) analyzeListing(ctx context.Context, gen *generator, l realestate.Listing, criteria model.SearchCriteria) model.AnalysisRecord {
	log := zap.L().With(zap.String("listing_id", l.ID))
	location := analysisLocation(l)

	rec := model.AnalysisRecord{
		ListingID:       l.ID,
		Address:         l.Address,
		Schools:         []realestate.SchoolRating{},
		ComparableSales: []realestate.ComparableSale{},
	}

	lookup := func(field string, fn func() error) {
		if err := fn(); err != nil {
			log.Warn("pipeline: analysis lookup failed",
				zap.String("field", field),
				zap.String("location", location),
				zap.Error(err),
			)
		}
	}

	lookup("neighborhood", func() error {
		stats, err := p.data.NeighborhoodStats(ctx, location)
		rec.Neighborhood = stats
		return err
	})
	lookup("schools", func() error {
		schools, err := p.data.SchoolRatings(ctx, location, schoolRadiusMiles)
		if err == nil {
			rec.Schools = schools
		}
		return err
	})
	lookup("market_trends", func() error {
		trends, err := p.data.MarketTrends(ctx, location, trendTimeframe)
		if err != nil {
			return err
		}
		t := *trends
		if l.Price > 0 && l.SquareFeet > 0 {
			t.PricePerSqft = math.Round(float64(l.Price)/float64(l.SquareFeet)*100) / 100
		}
		rec.MarketTrends = &t
		return nil
	})
	lookup("comparable_sales", func() error {
		comps, err := p.data.ComparableSales(ctx, location, l.PropertyType)
		if err == nil {
			rec.ComparableSales = comps
		}
		return err
	})
	if criteria.AnnualIncome > 0 {
		lookup("affordability", func() error {
			a, err := p.data.Affordability(ctx, realestate.AffordabilityInput{
				Price:        float64(l.Price),
				AnnualIncome: criteria.AnnualIncome,
			})
			rec.Affordability = a
			return err
		})
	}

	summary, outcome := p.summarize(ctx, gen, l, rec)
	rec.Summary = summary
	rec.SummarySource = string(outcome)
	return rec
}

// analysisLocation prefers the full street address, which the provider
// needs for property-level data, and falls back to city and state.
func analysisLocation(l realestate.Listing) string {
	if l.Address != "" && l.Address != "Address not available" {
		return l.Address
	}
	parts := make([]string, 0, 2)
	for _, s := range []string{l.City, l.State} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, ", ")
}
