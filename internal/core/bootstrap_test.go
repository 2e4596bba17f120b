package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestEnsureTableTrainsFromEveryCorpusFile(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	normal := filepath.Join(base, "Normal")
	if err := os.Mkdir(normal, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(normal, "b-corpus.txt"), "example.org\n")
	writeFile(t, filepath.Join(normal, "a-corpus.txt"), "example.com\n")

	sc := &fakeScorer{}
	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	info, err := EnsureTable(context.Background(), sc, base, normal, now)
	if err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}

	if !info.Created {
		t.Error("Created = false, want true on first run of the day")
	}
	if filepath.Base(info.Path) != "260821.freq" {
		t.Errorf("table path = %s, want .../260821.freq", info.Path)
	}
	if info.CorpusFiles != 2 {
		t.Errorf("CorpusFiles = %d, want 2", info.CorpusFiles)
	}
	if len(info.CorpusFingerprint) != 16 {
		t.Errorf("CorpusFingerprint = %q, want 16 hex chars", info.CorpusFingerprint)
	}

	want := []string{"create 260821.freq", "train a-corpus.txt", "train b-corpus.txt"}
	if len(sc.ops) != len(want) {
		t.Fatalf("scorer ops = %q, want %q", sc.ops, want)
	}
	for i := range want {
		if sc.ops[i] != want[i] {
			t.Errorf("op[%d] = %q, want %q", i, sc.ops[i], want[i])
		}
	}
	if _, err := os.Stat(info.Path); err != nil {
		t.Errorf("table file missing after bootstrap: %v", err)
	}
}

func TestEnsureTableReusesSameDayTable(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	normal := filepath.Join(base, "Normal")
	if err := os.Mkdir(normal, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(normal, "corpus.txt"), "example.com\n")

	now := time.Date(2026, 8, 21, 9, 0, 0, 0, time.UTC)
	if _, err := EnsureTable(context.Background(), &fakeScorer{}, base, normal, now); err != nil {
		t.Fatalf("first EnsureTable() error = %v", err)
	}

	// Later the same day: table untouched, fingerprint still reported.
	sc := &fakeScorer{}
	info, err := EnsureTable(context.Background(), sc, base, normal, now.Add(6*time.Hour))
	if err != nil {
		t.Fatalf("second EnsureTable() error = %v", err)
	}
	if info.Created {
		t.Error("Created = true on reuse, want false")
	}
	if len(sc.ops) != 0 {
		t.Errorf("scorer ran %q on reuse, want nothing", sc.ops)
	}
	if info.CorpusFingerprint == "" {
		t.Error("CorpusFingerprint empty on reuse")
	}

	// A new day keys a new table; both files end up side by side.
	sc = &fakeScorer{}
	next, err := EnsureTable(context.Background(), sc, base, normal, now.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("next-day EnsureTable() error = %v", err)
	}
	if !next.Created {
		t.Error("Created = false on a new day, want true")
	}
	if filepath.Base(next.Path) != "260822.freq" {
		t.Errorf("next-day table = %s, want .../260822.freq", next.Path)
	}
	for _, p := range []string{info.Path, next.Path} {
		if _, err := os.Stat(p); err != nil {
			t.Errorf("table %s missing: %v", p, err)
		}
	}
}

func TestEnsureTableFailsWhenTrainingFails(t *testing.T) {
	t.Parallel()
	base := t.TempDir()
	normal := filepath.Join(base, "Normal")
	if err := os.Mkdir(normal, 0755); err != nil {
		t.Fatal(err)
	}
	writeFile(t, filepath.Join(normal, "corpus.txt"), "example.com\n")

	sc := &fakeScorer{trainErr: errors.New("freq normalfile failed")}
	_, err := EnsureTable(context.Background(), sc, base, normal, time.Now())
	if err == nil || !strings.Contains(err.Error(), "error training table") {
		t.Fatalf("EnsureTable() = %v, want a training error", err)
	}
}

func TestFingerprintFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	writeFile(t, a, "example.com\n")

	fp1, err := fingerprintFiles([]string{a})
	if err != nil {
		t.Fatalf("fingerprintFiles() error = %v", err)
	}
	if len(fp1) != 16 {
		t.Errorf("fingerprint = %q, want 16 hex chars", fp1)
	}

	// Deterministic for identical input.
	fp2, err := fingerprintFiles([]string{a})
	if err != nil {
		t.Fatal(err)
	}
	if fp2 != fp1 {
		t.Errorf("fingerprint not stable: %q vs %q", fp1, fp2)
	}

	// Content changes move the fingerprint.
	writeFile(t, a, "example.com\nexample.org\n")
	fp3, err := fingerprintFiles([]string{a})
	if err != nil {
		t.Fatal(err)
	}
	if fp3 == fp1 {
		t.Error("fingerprint unchanged after content change")
	}

	// So does a rename, even with identical content.
	b := filepath.Join(dir, "b.txt")
	writeFile(t, b, "example.com\nexample.org\n")
	fp4, err := fingerprintFiles([]string{b})
	if err != nil {
		t.Fatal(err)
	}
	if fp4 == fp3 {
		t.Error("fingerprint ignores the file name")
	}
}
