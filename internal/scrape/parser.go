package scrape

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rehabdir/rehabdir/internal/model"
)

// Selectors for the SIRA rehab-provider search results page.
const (
	cardSelector    = ".search-result-card"
	nameSelector    = ".provider-name-heading"
	addressSelector = ".address-block"
	phoneSelector   = ".phone-number-value"
	linkSelector    = "a.provider-link"
	companySelector = ".provider-company"
	numberSelector  = ".provider-number-value"
)

// ParseProviders extracts provider records from the listing page HTML. A card
// missing its name or address is logged and skipped; a page with zero cards
// is an empty (not failed) result, since the caller decides whether that is
// worth a warning.
func ParseProviders(html string) ([]model.Provider, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}

	var providers []model.Provider
	skipped := 0

	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		name := strings.TrimSpace(card.Find(nameSelector).First().Text())
		address := model.CollapseSpace(card.Find(addressSelector).First().Text())
		if name == "" || address == "" {
			skipped++
			return
		}

		phone := strings.TrimSpace(card.Find(phoneSelector).First().Text())
		if phone == "" {
			phone = "N/A"
		}

		link, _ := card.Find(linkSelector).First().Attr("href")

		providers = append(providers, model.Provider{
			Name:            name,
			Company:         strings.TrimSpace(card.Find(companySelector).First().Text()),
			BusinessAddress: address,
			Suburb:          model.ExtractSuburb(address),
			State:           model.DefaultState,
			Postcode:        model.ExtractPostcode(address),
			Phone:           phone,
			Link:            strings.TrimSpace(link),
			ProviderNumber:  strings.TrimSpace(card.Find(numberSelector).First().Text()),
		})
	})

	if skipped > 0 {
		zap.L().Warn("skipped malformed provider cards", zap.Int("count", skipped))
	}
	return providers, nil
}
