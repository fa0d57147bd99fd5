package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rehabdir/rehabdir/internal/model"
)

func TestFullAddress(t *testing.T) {
	tests := []struct {
		name string
		p    model.Provider
		want string
	}{
		{
			name: "complete record",
			p: model.Provider{
				BusinessAddress: "1 Main St",
				Suburb:          "Sampletown",
				State:           "NSW",
				Postcode:        "2000",
			},
			want: "1 Main St, Sampletown, NSW 2000, Australia",
		},
		{
			name: "missing suburb",
			p: model.Provider{
				BusinessAddress: "1 Main St",
				State:           "NSW",
				Postcode:        "2000",
			},
			want: "1 Main St, NSW 2000, Australia",
		},
		{
			name: "missing state and postcode",
			p: model.Provider{
				BusinessAddress: "1 Main St",
				Suburb:          "Sampletown",
			},
			want: "1 Main St, Sampletown, Australia",
		},
		{
			name: "empty record still ends with country",
			p:    model.Provider{},
			want: "Australia",
		},
		{
			name: "internal whitespace collapsed",
			p: model.Provider{
				BusinessAddress: "  1   Main   St ",
				Suburb:          "Sampletown",
				State:           "NSW",
				Postcode:        "2000",
			},
			want: "1 Main St, Sampletown, NSW 2000, Australia",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.FullAddress())
		})
	}
}

func TestExtractPostcode(t *testing.T) {
	assert.Equal(t, "2000", model.ExtractPostcode("1 Main St, SAMPLETOWN NSW 2000"))
	assert.Equal(t, "2761", model.ExtractPostcode("Suite 4, 125 Glendenning Rd, GLENDENNING NSW 2761"))
	assert.Equal(t, "", model.ExtractPostcode("1 Main St, Sampletown"))
	// First four-digit run wins, matching the source extraction.
	assert.Equal(t, "1234", model.ExtractPostcode("Unit 1234, SAMPLETOWN NSW 2000"))
}

func TestExtractSuburb(t *testing.T) {
	assert.Equal(t, "Sampletown", model.ExtractSuburb("1 Main St, SAMPLETOWN NSW 2000"))
	assert.Equal(t, "Wagga Wagga", model.ExtractSuburb("2 High St, WAGGA WAGGA NSW 2650"))
	assert.Equal(t, "", model.ExtractSuburb("1 Main St, Sampletown NSW 2000"), "lowercase suburb does not match")
	assert.Equal(t, "", model.ExtractSuburb("1 Main St"))
}

func TestSetCoordinate(t *testing.T) {
	var p model.Provider
	assert.False(t, p.Geocoded)

	p.SetCoordinate(-33.8, 151.2)
	assert.True(t, p.Geocoded)
	assert.InDelta(t, -33.8, p.Latitude, 1e-9)
	assert.InDelta(t, 151.2, p.Longitude, 1e-9)
}

func TestCollapseSpace(t *testing.T) {
	assert.Equal(t, "1 Main St", model.CollapseSpace("  1  Main \t St  "))
	assert.Equal(t, "", model.CollapseSpace("   "))
}
