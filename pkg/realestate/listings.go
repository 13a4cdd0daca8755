package realestate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// SearchParams filters a listing search. Zero values mean "no constraint".
type SearchParams struct {
	Location     string  `json:"location" yaml:"location"`
	MinPrice     int     `json:"min_price,omitempty" yaml:"min_price,omitempty"`
	MaxPrice     int     `json:"max_price,omitempty" yaml:"max_price,omitempty"`
	Bedrooms     int     `json:"bedrooms,omitempty" yaml:"bedrooms,omitempty"`
	Bathrooms    float64 `json:"bathrooms,omitempty" yaml:"bathrooms,omitempty"`
	PropertyType string  `json:"property_type,omitempty" yaml:"property_type,omitempty"`
}

func (p SearchParams) cacheParams() map[string]string {
	return map[string]string{
		"location":      p.Location,
		"min_price":     intParam(p.MinPrice),
		"max_price":     intParam(p.MaxPrice),
		"bedrooms":      intParam(p.Bedrooms),
		"bathrooms":     floatParam(p.Bathrooms),
		"property_type": p.PropertyType,
	}
}

func (p SearchParams) validate() (SearchParams, error) {
	loc, err := validateLocation(p.Location)
	if err != nil {
		return p, err
	}
	p.Location = loc
	p.PropertyType = strings.TrimSpace(p.PropertyType)
	if p.MinPrice < 0 || p.MaxPrice < 0 {
		return p, &ValidationError{Field: "price", Reason: "must not be negative"}
	}
	if p.MinPrice > 0 && p.MaxPrice > 0 && p.MinPrice > p.MaxPrice {
		return p, &ValidationError{Field: "price", Reason: "min_price exceeds max_price"}
	}
	if err := validateRange("bedrooms", float64(p.Bedrooms), 0, 20); err != nil {
		return p, err
	}
	if err := validateRange("bathrooms", p.Bathrooms, 0, 20); err != nil {
		return p, err
	}
	return p, nil
}

// Listing is a candidate property.
type Listing struct {
	ID           string   `json:"id" yaml:"id"`
	Address      string   `json:"address" yaml:"address"`
	City         string   `json:"city" yaml:"city"`
	State        string   `json:"state" yaml:"state"`
	ZipCode      string   `json:"zip_code" yaml:"zip_code"`
	Price        int      `json:"price" yaml:"price"`
	Bedrooms     int      `json:"bedrooms" yaml:"bedrooms"`
	Bathrooms    float64  `json:"bathrooms" yaml:"bathrooms"`
	SquareFeet   int      `json:"square_feet" yaml:"square_feet"`
	PropertyType string   `json:"property_type" yaml:"property_type"`
	ListingURL   string   `json:"listing_url,omitempty" yaml:"listing_url,omitempty"`
	Description  string   `json:"description,omitempty" yaml:"description,omitempty"`
	ImageURL     string   `json:"image_url,omitempty" yaml:"image_url,omitempty"`
	Photos       []string `json:"photos,omitempty" yaml:"photos,omitempty"`
	YearBuilt    int      `json:"year_built,omitempty" yaml:"year_built,omitempty"`
	LotSize      float64  `json:"lot_size,omitempty" yaml:"lot_size,omitempty"`
}

// Provider field paths for listings, most specific first.
var (
	listingListPaths = []string{"data", "props", "results", "searchResults.listResults", "data.results"}
	listingIDPaths   = []string{"zpid", "id", "property.zpid"}
	listingPricePath = []string{"price", "unformattedPrice", "listPrice", "hdpData.homeInfo.price"}
	listingSqftPaths = []string{"livingArea", "sqft", "squareFeet", "area"}
	listingBedPaths  = []string{"bedrooms", "beds"}
	listingBathPaths = []string{"bathrooms", "baths"}
	listingTypePaths = []string{"homeType", "propertyType", "hdpData.homeInfo.homeType"}
	listingImgPaths  = []string{"imgSrc", "imageUrl", "image"}
	listingURLPaths  = []string{"detailUrl", "hdpUrl", "url"}
	listingDescPaths = []string{"description", "statusText"}
	listingYearPaths = []string{"yearBuilt", "year_built"}
	listingLotPaths  = []string{"lotSize", "lotSizeValue", "lotAreaValue"}
	streetPaths      = []string{"streetAddress", "address.streetAddress", "address.street"}
	cityPaths        = []string{"city", "address.city"}
	statePaths       = []string{"state", "address.state"}
	zipPaths         = []string{"zipcode", "zipCode", "address.zipcode", "address.zipCode"}
	photoURLPaths    = []string{"url", "href", "src"}
)

// homeTypes maps a requested property type onto provider home types.
var homeTypes = map[string][]string{
	"HOUSE":     {"SINGLE_FAMILY", "MULTI_FAMILY"},
	"CONDO":     {"CONDO", "CONDOMINIUM"},
	"TOWNHOUSE": {"TOWNHOUSE", "TOWN_HOUSE"},
}

func propertyTypeOf(homeType string) string {
	switch strings.ToUpper(homeType) {
	case "", "SINGLE_FAMILY", "MULTI_FAMILY":
		return "house"
	case "CONDO", "CONDOMINIUM":
		return "condo"
	case "TOWNHOUSE", "TOWN_HOUSE":
		return "townhouse"
	default:
		return strings.ToLower(homeType)
	}
}

// candidate pairs a parsed listing with the raw provider home type used for
// filtering.
type candidate struct {
	listing  Listing
	homeType string
}

func (c *client) SearchListings(ctx context.Context, p SearchParams) ([]Listing, error) {
	p, err := p.validate()
	if err != nil {
		return nil, err
	}

	return cached(c, "search", p.cacheParams(), c.ttls.Search, func() ([]Listing, bool, error) {
		params := url.Values{
			"location":     {p.Location},
			"home_status":  {"FOR_SALE"},
			"sort":         {"DEFAULT"},
			"listing_type": {"BY_AGENT"},
			"page":         {"1"},
		}
		doc, err := c.get(ctx, "search", "search/byaddress", params)
		if statusOf(err) == http.StatusNotFound {
			zap.L().Warn("realestate: search/byaddress not found, falling back to search")
			doc, err = c.get(ctx, "search", "search", params)
		}
		if isNarrowInput(err) {
			zap.L().Warn("realestate: search rejected location, returning no listings",
				zap.String("location", p.Location))
			return []Listing{}, true, nil
		}
		if err != nil {
			return nil, false, err
		}

		found := parseCandidates(doc)
		listings := filterCandidates(found, p)
		zap.L().Info("realestate: search complete",
			zap.String("location", p.Location),
			zap.Int("found", len(found)),
			zap.Int("returned", len(listings)),
		)
		return listings, false, nil
	})
}

func parseCandidates(doc gjson.Result) []candidate {
	items := firstList(doc, listingListPaths)
	out := make([]candidate, 0, len(items))
	for i, item := range items {
		l := parseListing(item)
		if l.ID == "" {
			l.ID = synthesizeID(l.Address, i)
		}
		out = append(out, candidate{listing: l, homeType: strings.ToUpper(firstString(item, "", listingTypePaths))})
	}
	return out
}

// filterCandidates applies the search filters: bedrooms within one, bathrooms
// within a half, strict price bounds and home type. When nothing survives,
// the first ten results are returned under the price bounds alone.
func filterCandidates(found []candidate, p SearchParams) []Listing {
	const maxResults = 20

	var out []Listing
	seen := make(map[string]bool)
	add := func(l Listing) {
		if seen[l.ID] || len(out) >= maxResults {
			return
		}
		seen[l.ID] = true
		out = append(out, l)
	}

	for _, cand := range found {
		l := cand.listing
		if p.Bedrooms > 0 && l.Bedrooms > 0 && abs(float64(l.Bedrooms-p.Bedrooms)) > 1 {
			continue
		}
		if p.Bathrooms > 0 && l.Bathrooms > 0 && abs(l.Bathrooms-p.Bathrooms) > 0.5 {
			continue
		}
		if !withinPrice(l.Price, p) {
			continue
		}
		if p.PropertyType != "" && !matchesHomeType(cand.homeType, p.PropertyType) {
			continue
		}
		add(l)
	}

	if len(out) == 0 && len(found) > 0 {
		zap.L().Warn("realestate: no listings matched filters, relaxing to price only")
		for i, cand := range found {
			if i >= 10 {
				break
			}
			if withinPrice(cand.listing.Price, p) {
				add(cand.listing)
			}
		}
	}
	if out == nil {
		out = []Listing{}
	}
	return out
}

func withinPrice(price int, p SearchParams) bool {
	if p.MinPrice > 0 && price < p.MinPrice {
		return false
	}
	if p.MaxPrice > 0 && price > p.MaxPrice {
		return false
	}
	return true
}

func matchesHomeType(homeType, wanted string) bool {
	wanted = strings.ToUpper(wanted)
	allowed, ok := homeTypes[wanted]
	if !ok {
		allowed = []string{wanted}
	}
	for _, a := range allowed {
		if homeType == a {
			return true
		}
	}
	return false
}

// parseListing maps a search result or details document onto a Listing.
func parseListing(doc gjson.Result) Listing {
	street := firstString(doc, "", streetPaths)
	city := firstString(doc, "", cityPaths)
	state := firstString(doc, "", statePaths)
	zip := firstString(doc, "", zipPaths)

	var full string
	if a := doc.Get("address"); a.Type == gjson.String {
		full = strings.TrimSpace(a.Str)
	}
	if full != "" && street == "" {
		street, city, state, zip = splitAddress(full, city, state, zip)
	}

	var parts []string
	for _, s := range []string{street, city, strings.TrimSpace(state + " " + zip)} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	address := strings.Join(parts, ", ")
	if address == "" {
		address = full
	}

	l := Listing{
		ID:           firstString(doc, "", listingIDPaths),
		Address:      address,
		City:         city,
		State:        state,
		ZipCode:      zip,
		Price:        firstInt(doc, 0, listingPricePath),
		Bedrooms:     firstInt(doc, 0, listingBedPaths),
		Bathrooms:    firstFloat(doc, 0, listingBathPaths),
		SquareFeet:   firstInt(doc, 0, listingSqftPaths),
		PropertyType: propertyTypeOf(firstString(doc, "", listingTypePaths)),
		ListingURL:   absoluteURL(firstString(doc, "", listingURLPaths)),
		Description:  firstString(doc, "", listingDescPaths),
		ImageURL:     firstString(doc, "", listingImgPaths),
		YearBuilt:    firstInt(doc, 0, listingYearPaths),
		LotSize:      firstFloat(doc, 0, listingLotPaths),
	}
	if l.Address == "" {
		l.Address = "Address not available"
	}
	return l
}

// splitAddress breaks "street, city, ST 12345" into parts, keeping any
// values already known.
func splitAddress(full, city, state, zip string) (string, string, string, string) {
	parts := strings.Split(full, ",")
	street := strings.TrimSpace(parts[0])
	if len(parts) > 1 && city == "" {
		city = strings.TrimSpace(parts[1])
	}
	if len(parts) > 2 {
		fields := strings.Fields(parts[2])
		if len(fields) > 0 && state == "" {
			state = fields[0]
		}
		if len(fields) > 1 && zip == "" {
			zip = fields[1]
		}
	}
	return street, city, state, zip
}

// synthesizeID derives a stable id from the address when the provider
// issued none.
func synthesizeID(address string, index int) string {
	addr := strings.ToLower(strings.Join(strings.Fields(address), " "))
	if addr == "" || addr == "address not available" {
		return fmt.Sprintf("prop_%d", index)
	}
	return "addr-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte("listing:"+addr)).String()
}

func absoluteURL(u string) string {
	if u == "" || strings.HasPrefix(u, "http") {
		return u
	}
	if !strings.HasPrefix(u, "/") {
		u = "/" + u
	}
	return listingOrigin + u
}

func (c *client) ListingDetails(ctx context.Context, id string) (*Listing, error) {
	id, err := validateID(id)
	if err != nil {
		return nil, err
	}

	l, err := cached(c, "details", map[string]string{"property_id": id}, c.ttls.Medium, func() (Listing, bool, error) {
		params := url.Values{"zpid": {id}}
		doc, err := c.get(ctx, "details", "property-details-zpid", params)
		if statusOf(err) == http.StatusNotFound {
			zap.L().Info("realestate: zpid details endpoint not found, trying property")
			doc, err = c.get(ctx, "details", "property", params)
		}
		if statusOf(err) == http.StatusNotFound {
			return Listing{}, false, eris.Wrapf(ErrNotFound, "listing %s", id)
		}
		if err != nil {
			return Listing{}, false, err
		}

		l := parseListing(doc)
		if l.ID == "" {
			l.ID = id
		}
		if l.ImageURL == "" {
			if photos := photoURLs(doc); len(photos) > 0 {
				l.ImageURL = photos[0]
			}
		}
		l.Photos = photoURLs(doc)
		return l, false, nil
	})
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// photoURLs collects photos[] and imageGallery[] entries, which are either
// bare URL strings or objects with url, href or src.
func photoURLs(doc gjson.Result) []string {
	var out []string
	seen := make(map[string]bool)
	for _, key := range []string{"photos", "imageGallery"} {
		for _, item := range doc.Get(key).Array() {
			var u string
			switch {
			case item.Type == gjson.String:
				u = strings.TrimSpace(item.Str)
			case item.IsObject():
				u = firstString(item, "", photoURLPaths)
			}
			if u != "" && !seen[u] {
				seen[u] = true
				out = append(out, u)
			}
		}
	}
	return out
}

func (c *client) ListingPhotos(ctx context.Context, id string) ([]string, error) {
	l, err := c.ListingDetails(ctx, id)
	if err != nil {
		return nil, err
	}
	photos := make([]string, 0, len(l.Photos)+1)
	if l.ImageURL != "" {
		photos = append(photos, l.ImageURL)
	}
	for _, p := range l.Photos {
		if p != l.ImageURL {
			photos = append(photos, p)
		}
	}
	return photos, nil
}

func (c *client) SimilarListings(ctx context.Context, id string, limit int) ([]Listing, error) {
	id, err := validateID(id)
	if err != nil {
		return nil, err
	}
	if err := validateRange("limit", float64(limit), 1, 50); err != nil {
		return nil, err
	}

	ref, err := c.ListingDetails(ctx, id)
	if err != nil {
		return nil, err
	}

	found, err := c.SearchListings(ctx, SearchParams{
		Location:     ref.City + ", " + ref.State,
		MinPrice:     int(float64(ref.Price) * 0.8),
		MaxPrice:     int(float64(ref.Price) * 1.2),
		Bedrooms:     ref.Bedrooms,
		PropertyType: ref.PropertyType,
	})
	if err != nil {
		return nil, err
	}

	out := make([]Listing, 0, limit)
	for _, l := range found {
		if l.ID == ref.ID || l.ID == id {
			continue
		}
		out = append(out, l)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func intParam(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}

func floatParam(v float64) string {
	if v == 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
