package history

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
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

const (
	runsSheet  = "Runs"
	filesSheet = "Files"
)

// WriteReport renders the whole recorded history into an xlsx workbook
// at path: one Runs sheet, one Files sheet.
func (s *Store) WriteReport(path string) error {
	runs, err := s.ListRuns()
	if err != nil {
		return err
	}
	files, err := s.ListFiles()
	if err != nil {
		return err
	}

	wb := excelize.NewFile()
	defer wb.Close()

	if err := wb.SetSheetName("Sheet1", runsSheet); err != nil {
		return fmt.Errorf("error naming runs sheet: %w", err)
	}
	if err := writeRunsSheet(wb, runs); err != nil {
		return err
	}
	if _, err := wb.NewSheet(filesSheet); err != nil {
		return fmt.Errorf("error creating files sheet: %w", err)
	}
	if err := writeFilesSheet(wb, files); err != nil {
		return err
	}

	if err := wb.SaveAs(path); err != nil {
		return fmt.Errorf("error saving report %s: %w", path, err)
	}
	return nil
}

func writeRunsSheet(wb *excelize.File, runs []RunRecord) error {
	header := []interface{}{
		"Run ID", "Started", "Finished", "Duration", "Mode", "WhoIs",
		"Table", "Table Created", "Corpus Fingerprint", "Files",
		"Candidates", "Scored", "Skipped", "Filtered", "Status", "Error",
	}
	if err := wb.SetSheetRow(runsSheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing runs header: %w", err)
	}

	for i, r := range runs {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			r.ID,
			r.StartedAt.Format(time.RFC3339),
			r.FinishedAt.Format(time.RFC3339),
			r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String(),
			r.Mode,
			r.Whois,
			r.TablePath,
			r.TableCreated,
			r.CorpusFingerprint,
			r.FilesProcessed,
			r.Candidates,
			r.Scored,
			r.Skipped,
			r.Filtered,
			r.Status,
			r.Error,
		}
		if err := wb.SetSheetRow(runsSheet, cell, &row); err != nil {
			return fmt.Errorf("error writing run row %d: %w", i+2, err)
		}
	}
	return nil
}

func writeFilesSheet(wb *excelize.File, files []FileRecord) error {
	header := []interface{}{"Run ID", "Input File", "Output File", "Rows", "Skipped", "Filtered"}
	if err := wb.SetSheetRow(filesSheet, "A1", &header); err != nil {
		return fmt.Errorf("error writing files header: %w", err)
	}

	for i, f := range files {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{f.RunID, f.InputFile, f.OutputFile, f.Rows, f.Skipped, f.Filtered}
		if err := wb.SetSheetRow(filesSheet, cell, &row); err != nil {
			return fmt.Errorf("error writing file row %d: %w", i+2, err)
		}
	}
	return nil
}
