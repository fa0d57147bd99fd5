// Package export writes enriched provider records as a flat CSV file.
package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/rehabdir/rehabdir/internal/model"
)

// Header is the output column order: every Provider field except the derived
// full address, plus the coordinate pair.
var Header = []string{
	"name",
	"company",
	"business_address",
	"suburb",
	"state",
	"postcode",
	"region",
	"phone",
	"link",
	"provider_number",
	"latitude",
	"longitude",
}

// WriteCSV writes one header row plus one row per record, in input order.
// Unresolved coordinates are empty cells, never a zero sentinel.
func WriteCSV(w io.Writer, providers []model.Provider) error {
	writer := csv.NewWriter(w)

	if err := writer.Write(Header); err != nil {
		return eris.Wrap(err, "export: write header")
	}

	for _, p := range providers {
		lat, lon := "", ""
		if p.Geocoded {
			lat = strconv.FormatFloat(p.Latitude, 'f', -1, 64)
			lon = strconv.FormatFloat(p.Longitude, 'f', -1, 64)
		}
		row := []string{
			p.Name,
			p.Company,
			p.BusinessAddress,
			p.Suburb,
			p.State,
			p.Postcode,
			p.Region,
			p.Phone,
			p.Link,
			p.ProviderNumber,
			lat,
			lon,
		}
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "export: write row")
		}
	}

	writer.Flush()
	return eris.Wrap(writer.Error(), "export: flush")
}

// WriteCSVFile writes the records to the given path, replacing any existing
// file.
func WriteCSVFile(path string, providers []model.Provider) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	if err := WriteCSV(f, providers); err != nil {
		f.Close() //nolint:errcheck
		return err
	}
	return eris.Wrapf(f.Close(), "export: close %s", path)
}
