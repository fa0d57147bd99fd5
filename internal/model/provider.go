// Package model defines the provider record flowing through the scrape,
// geocode, and export stages.
package model

import (
	"regexp"
	"strings"
)

// Country is appended to every geocode query; the SIRA directory only lists
// NSW providers.
const Country = "Australia"

// DefaultState is assumed when the address block carries no state token.
const DefaultState = "NSW"

// Provider is one row of the rehab-provider directory. Fields are immutable
// once parsed; only Latitude/Longitude are attached later by the pipeline.
type Provider struct {
	Name            string
	Company         string
	BusinessAddress string
	Suburb          string
	State           string
	Postcode        string
	Region          string
	Phone           string
	Link            string
	ProviderNumber  string

	// Latitude/Longitude are zero-valued with Geocoded=false until the
	// pipeline resolves the address. Geocoded distinguishes "absent" from a
	// genuine (0,0).
	Latitude  float64
	Longitude float64
	Geocoded  bool
}

var (
	postcodeRe = regexp.MustCompile(`\b(\d{4})\b`)
	suburbRe   = regexp.MustCompile(`,\s*([A-Z\s]+)\s+NSW\s+\d{4}`)
	spaceRe    = regexp.MustCompile(`\s+`)
)

// FullAddress derives the free-text address used as the most specific geocode
// candidate: "BusinessAddress, Suburb, State Postcode, Country". Blank
// components are collapsed so a sparse record never produces dangling commas.
func (p Provider) FullAddress() string {
	parts := make([]string, 0, 4)
	if s := CollapseSpace(p.BusinessAddress); s != "" {
		parts = append(parts, s)
	}
	if s := CollapseSpace(p.Suburb); s != "" {
		parts = append(parts, s)
	}
	if s := CollapseSpace(strings.TrimSpace(p.State + " " + p.Postcode)); s != "" {
		parts = append(parts, s)
	}
	parts = append(parts, Country)
	return strings.Join(parts, ", ")
}

// SetCoordinate attaches a resolved coordinate to the record.
func (p *Provider) SetCoordinate(lat, lon float64) {
	p.Latitude = lat
	p.Longitude = lon
	p.Geocoded = true
}

// ExtractPostcode pulls the first four-digit postcode out of a free-text
// address block, or "" when none is present.
func ExtractPostcode(address string) string {
	m := postcodeRe.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return m[1]
}

// ExtractSuburb pulls the suburb preceding "NSW <postcode>" out of an
// upper-cased address block and title-cases it, e.g.
// "12 Main St, SAMPLETOWN NSW 2000" -> "Sampletown".
func ExtractSuburb(address string) string {
	m := suburbRe.FindStringSubmatch(address)
	if m == nil {
		return ""
	}
	return titleCase(strings.TrimSpace(m[1]))
}

// CollapseSpace trims the string and collapses internal whitespace runs to a
// single space. Geocode cache keys are exact-string matches, so every query
// component passes through here first.
func CollapseSpace(s string) string {
	return spaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
