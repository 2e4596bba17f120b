package history

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/x-stp/freqscan/internal/core"
)

func testSummary(id string, start time.Time) *core.RunSummary {
	return &core.RunSummary{
		RunID:             id,
		StartTime:         start,
		EndTime:           start.Add(90 * time.Second),
		Mode:              "exe",
		Whois:             true,
		TablePath:         "/base/260821.freq",
		TableCreated:      true,
		CorpusFingerprint: "deadbeefdeadbeef",
		FilesProcessed:    1,
		Candidates:        10,
		Scored:            7,
		Skipped:           2,
		Filtered:          1,
		SkippedBy:         map[core.SkipReason]int64{core.SkipWhoisError: 2},
		Files: []core.FileStats{
			{InputFile: "domains.csv", OutputFile: "domains.csv_WhoIs_Output.csv", Rows: 7, Skipped: 2, Filtered: 1},
		},
	}
}

func TestSaveRunRoundTrip(t *testing.T) {
	t.Parallel()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	early := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	late := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)

	if err := store.SaveRun(testSummary("run-early", early), nil); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}
	if err := store.SaveRun(testSummary("run-late", late), errors.New("table bootstrap failed: exit status 2")); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	runs, err := store.ListRuns()
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("ListRuns() = %d runs, want 2", len(runs))
	}

	// Newest first.
	if runs[0].ID != "run-late" || runs[1].ID != "run-early" {
		t.Errorf("order = %s, %s", runs[0].ID, runs[1].ID)
	}

	got := runs[1]
	if !got.StartedAt.Equal(early) || !got.FinishedAt.Equal(early.Add(90*time.Second)) {
		t.Errorf("times = %v / %v", got.StartedAt, got.FinishedAt)
	}
	if got.Mode != "exe" || !got.Whois || !got.TableCreated {
		t.Errorf("flags = %+v", got)
	}
	if got.CorpusFingerprint != "deadbeefdeadbeef" || got.TablePath != "/base/260821.freq" {
		t.Errorf("table fields = %+v", got)
	}
	if got.Candidates != 10 || got.Scored != 7 || got.Skipped != 2 || got.Filtered != 1 {
		t.Errorf("counts = %+v", got)
	}
	if got.Status != "ok" || got.Error != "" {
		t.Errorf("clean run status = %s error = %q", got.Status, got.Error)
	}
	if runs[0].Status != "error" || runs[0].Error == "" {
		t.Errorf("failed run status = %s error = %q", runs[0].Status, runs[0].Error)
	}
}

func TestListFiles(t *testing.T) {
	t.Parallel()
	store, err := Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	start := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	sum := testSummary("run-1", start)
	sum.Files = append(sum.Files, core.FileStats{
		InputFile: "extra.csv", OutputFile: "extra.csv_WhoIs_Output.csv", Rows: 3,
	})
	if err := store.SaveRun(sum, nil); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	files, err := store.ListFiles()
	if err != nil {
		t.Fatalf("ListFiles() error = %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("ListFiles() = %d records, want 2", len(files))
	}
	if files[0].InputFile != "domains.csv" || files[1].InputFile != "extra.csv" {
		t.Errorf("file order = %s, %s", files[0].InputFile, files[1].InputFile)
	}
	if files[0].RunID != "run-1" || files[0].Rows != 7 || files[0].Skipped != 2 || files[0].Filtered != 1 {
		t.Errorf("record = %+v", files[0])
	}
}

func TestWriteReport(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	store, err := Open(filepath.Join(dir, "history.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer store.Close()

	start := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	if err := store.SaveRun(testSummary("run-1", start), nil); err != nil {
		t.Fatalf("SaveRun() error = %v", err)
	}

	reportPath := filepath.Join(dir, "report.xlsx")
	if err := store.WriteReport(reportPath); err != nil {
		t.Fatalf("WriteReport() error = %v", err)
	}

	wb, err := excelize.OpenFile(reportPath)
	if err != nil {
		t.Fatalf("report does not open as xlsx: %v", err)
	}
	defer wb.Close()

	sheets := wb.GetSheetList()
	if len(sheets) != 2 || sheets[0] != "Runs" || sheets[1] != "Files" {
		t.Fatalf("sheets = %v, want [Runs Files]", sheets)
	}

	for cell, want := range map[string]string{
		"A1": "Run ID",
		"A2": "run-1",
		"E2": "exe",
		"O2": "ok",
	} {
		got, err := wb.GetCellValue("Runs", cell)
		if err != nil {
			t.Fatalf("GetCellValue(Runs, %s) error = %v", cell, err)
		}
		if got != want {
			t.Errorf("Runs!%s = %q, want %q", cell, got, want)
		}
	}

	gotFile, err := wb.GetCellValue("Files", "B2")
	if err != nil {
		t.Fatal(err)
	}
	if gotFile != "domains.csv" {
		t.Errorf("Files!B2 = %q, want domains.csv", gotFile)
	}
}
