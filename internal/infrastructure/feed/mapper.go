package feed

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/mo"

	"github.com/pricelens/backend/internal/domain"
)

var (
	// Everything but digits and the two separators
	priceNoisePattern = regexp.MustCompile(`[^\d.,]`)
	spacesPattern     = regexp.MustCompile(`\s+`)
)

// maxFractionDigits is the longest run after a dot still read as a decimal part
const maxFractionDigits = 2

// Item is one raw entry of a feed response. Feeds disagree on field names,
// so both common spellings are accepted.
type Item struct {
	Title    string          `json:"title"`
	Name     string          `json:"name"`
	Price    json.RawMessage `json:"price"`
	Currency string          `json:"currency"`
	URL      string          `json:"url"`
	Link     string          `json:"link"`
}

// Response is the body of a feed search call
type Response struct {
	ItemList    []Item `json:"items"`
	ProductList []Item `json:"products"`
}

// Items returns the entries under whichever key the feed used
func (r Response) Items() []Item {
	if len(r.ItemList) > 0 {
		return r.ItemList
	}
	return r.ProductList
}

// Mapper converts raw feed items into listings of one source
type Mapper struct {
	Source   string
	Currency string
	BaseURL  string
}

// ToListing maps item and validates the result. Items that fail validation
// are returned with a domain.ErrInvalidListing error and must be skipped.
func (m Mapper) ToListing(item Item) (domain.Listing, error) {
	listing := domain.Listing{
		ProductName: productName(item).OrEmpty(),
		Price:       itemPrice(item.Price).OrEmpty(),
		Currency:    strings.ToUpper(firstNonEmpty(item.Currency, m.Currency).OrEmpty()),
		Link:        absoluteURL(m.BaseURL, firstNonEmpty(item.URL, item.Link).OrEmpty()).OrEmpty(),
		Source:      m.Source,
	}

	if err := listing.Validate(); err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

func productName(item Item) mo.Option[string] {
	return firstNonEmpty(item.Title, item.Name).Map(func(name string) (string, bool) {
		return spacesPattern.ReplaceAllString(name, " "), true
	})
}

func firstNonEmpty(values ...string) mo.Option[string] {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return mo.Some(v)
		}
	}
	return mo.None[string]()
}

// itemPrice accepts either a JSON number or a display string
func itemPrice(raw json.RawMessage) mo.Option[float64] {
	if len(raw) == 0 {
		return mo.None[float64]()
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return mo.Some(number)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return ParsePrice(text)
	}

	return mo.None[float64]()
}

// ParsePrice extracts a number from display text such as "₹1,34,900.00",
// "Rs. 999" or "$1,299". Commas are grouping separators. A dot followed by
// at most two digits is a decimal point; otherwise only the part before the
// first dot is kept.
func ParsePrice(text string) mo.Option[float64] {
	clean := priceNoisePattern.ReplaceAllString(text, "")
	clean = strings.Trim(clean, ".")
	clean = strings.ReplaceAll(clean, ",", "")
	if clean == "" {
		return mo.None[float64]()
	}

	if parts := strings.Split(clean, "."); len(parts) > 1 {
		if len(parts) != 2 || len(parts[1]) > maxFractionDigits {
			clean = parts[0]
		}
	}

	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return mo.None[float64]()
	}
	return mo.Some(value)
}

// absoluteURL resolves href against base. Protocol-relative links get https.
func absoluteURL(base, href string) mo.Option[string] {
	if href == "" {
		return mo.None[string]()
	}
	if strings.HasPrefix(href, "//") {
		return mo.Some("https:" + href)
	}

	ref, err := url.Parse(href)
	if err != nil {
		return mo.None[string]()
	}
	if ref.IsAbs() {
		return mo.Some(ref.String())
	}

	baseURL, err := url.Parse(base)
	if err != nil || !baseURL.IsAbs() {
		return mo.None[string]()
	}
	return mo.Some(baseURL.ResolveReference(ref).String())
}
