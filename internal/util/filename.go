package util

/*
freqscan — batch frequency scoring for domain names with the freq tool
Copyright (C) 2026  Pepijn van der Stap <freqscan@vanderstap.info>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU Affero General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU Affero General Public License for more details.

You should have received a copy of the GNU Affero General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

import (
	"strings"
	"time"
)

// tableDateLayout stamps one frequency table per calendar day.
const tableDateLayout = "060102"

// SanitizeFilename creates a filesystem-safe filename from an arbitrary string.
// Replaces common problematic characters with underscores and limits length.
// Performance is not critical for this setup utility.
func SanitizeFilename(input string) string {
	// Replace problematic characters with underscore.
	replaced := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, input)
	// Limit filename length to avoid OS issues.
	maxLength := 100 // Arbitrary limit
	if len(replaced) > maxLength {
		return replaced[:maxLength]
	}
	return replaced
}

// TableFileName returns the frequency table filename for the given day,
// e.g. 260821.freq. The name is date-keyed on purpose: the first run of a
// day builds the table, every later run that day reuses it as-is.
func TableFileName(t time.Time) string {
	return t.Format(tableDateLayout) + ".freq"
}

// OutputFileName maps an input filename to its scoring output filename.
// The input's own extension is kept, so domains.csv becomes
// domains.csv_Output.csv. Rows for the same input name accumulate there
// across runs.
func OutputFileName(inputName string) string {
	return SanitizeFilename(inputName) + "_Output.csv"
}

// WhoisOutputFileName is the WhoIs-enriched counterpart of OutputFileName.
func WhoisOutputFileName(inputName string) string {
	return SanitizeFilename(inputName) + "_WhoIs_Output.csv"
}
