package export

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/rehabdir/rehabdir/internal/model"
)

// ReadCSV reads records previously written by WriteCSV so a run can be
// re-geocoded from the flat file. Coordinate cells that are present and parse
// as numbers come back attached; anything else leaves the record unresolved.
func ReadCSV(r io.Reader) ([]model.Provider, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(Header)

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "export: read header")
	}
	if len(header) != len(Header) {
		return nil, eris.Errorf("export: unexpected header width %d", len(header))
	}

	var providers []model.Provider
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "export: read row")
		}

		p := model.Provider{
			Name:            row[0],
			Company:         row[1],
			BusinessAddress: row[2],
			Suburb:          row[3],
			State:           row[4],
			Postcode:        row[5],
			Region:          row[6],
			Phone:           row[7],
			Link:            row[8],
			ProviderNumber:  row[9],
		}
		if row[10] != "" && row[11] != "" {
			lat, latErr := strconv.ParseFloat(row[10], 64)
			lon, lonErr := strconv.ParseFloat(row[11], 64)
			if latErr == nil && lonErr == nil {
				p.SetCoordinate(lat, lon)
			}
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// ReadCSVFile reads records from the given path.
func ReadCSVFile(path string) ([]model.Provider, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "export: open %s", path)
	}
	defer f.Close() //nolint:errcheck
	return ReadCSV(f)
}
