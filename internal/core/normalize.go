package core

import (
	"strings"
)

// DefaultCodeColumns are the code column names used by the known providers.
var DefaultCodeColumns = []string{"Code", "Country Code"}

// DefaultCountryColumns are the country column names used by the known providers.
var DefaultCountryColumns = []string{"Country", "Entity", "Country Name"}

// Normalize renames and drops columns of raw according to schema and removes
// rows without a country code. The result always has Country and Code
// columns; every other surviving column keeps its (renamed) position order.
//
// raw is not modified. A missing code, country, drop or measure column yields
// an error wrapping ErrSchemaMismatch.
func Normalize(raw RawTable, schema SchemaSpec) (RawTable, error) {
	header := make([]string, len(raw.Header))
	for i, h := range raw.Header {
		header[i] = renameColumn(CleanCell(strings.TrimPrefix(h, "\ufeff")), schema.Renames)
	}

	codeCandidates := schema.CodeColumns
	if len(codeCandidates) == 0 {
		codeCandidates = DefaultCodeColumns
	}
	codePos, ok := resolveColumn(header, append([]string{ColCode}, codeCandidates...))
	if !ok {
		return RawTable{}, &SchemaMismatchError{
			Table:  raw.Name,
			Column: strings.Join(codeCandidates, "|"),
			Reason: "no country code column",
		}
	}
	header[codePos] = ColCode

	countryCandidates := schema.CountryColumns
	if len(countryCandidates) == 0 {
		countryCandidates = DefaultCountryColumns
	}
	countryPos, ok := resolveColumn(header, append([]string{ColCountry}, countryCandidates...))
	if !ok || countryPos == codePos {
		return RawTable{}, &SchemaMismatchError{
			Table:  raw.Name,
			Column: strings.Join(countryCandidates, "|"),
			Reason: "no country column",
		}
	}
	header[countryPos] = ColCountry

	if err := ValidateColumns(raw.Name, header, schema.Drop...); err != nil {
		return RawTable{}, err
	}
	if err := ValidateColumns(raw.Name, header, schema.Measures...); err != nil {
		return RawTable{}, err
	}

	drop := make(map[string]bool, len(schema.Drop))
	for _, d := range schema.Drop {
		drop[d] = true
	}

	keep := make([]int, 0, len(header))
	out := RawTable{Name: raw.Name}
	for i, h := range header {
		if drop[h] {
			continue
		}
		keep = append(keep, i)
		out.Header = append(out.Header, h)
	}
	if err := validateUnique(raw.Name, out.Header); err != nil {
		return RawTable{}, err
	}

	out.Rows = make([][]string, 0, len(raw.Rows))
	for _, row := range raw.Rows {
		if codePos >= len(row) || IsMissing(row[codePos]) {
			continue
		}
		cells := make([]string, len(keep))
		for j, pos := range keep {
			if pos < len(row) {
				cells[j] = CleanCell(row[pos])
			}
		}
		out.Rows = append(out.Rows, cells)
	}

	return out, nil
}

// renameColumn applies exact renames first, then prefix renames (keys ending
// in '*'). When several prefixes match, the longest wins.
func renameColumn(name string, renames map[string]string) string {
	if to, ok := renames[name]; ok {
		return to
	}
	var (
		best, bestTo string
		found        bool
	)
	for from, to := range renames {
		prefix, ok := strings.CutSuffix(from, "*")
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		if !found || len(prefix) > len(best) {
			best, bestTo, found = prefix, to, true
		}
	}
	if found {
		return bestTo
	}
	return name
}
