package shapefile

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func TestLoadDatasetsParallel(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i, name := range []string{"a", "b", "c", "d", "e"} {
		paths = append(paths, writeRecords(t, dir, name, gridRecords(i+1, 0)))
	}

	for _, parallel := range []bool{true, false} {
		name := "serial"
		if parallel {
			name = "parallel"
		}
		t.Run(name, func(t *testing.T) {
			var mu sync.Mutex
			calls := 0
			set, err := LoadDatasetsParallel(paths, LoadOptions{
				Parallel: parallel,
				Workers:  3,
				Progress: func(loaded, total int) {
					mu.Lock()
					defer mu.Unlock()
					calls++
					if total != len(paths) {
						t.Errorf("Progress total = %d, want %d", total, len(paths))
					}
				},
				Read: DefaultReadOptions(),
			})
			if err != nil {
				t.Fatalf("LoadDatasetsParallel() error = %v", err)
			}
			if calls != len(paths) {
				t.Errorf("Progress called %d times, want %d", calls, len(paths))
			}
			if len(set.Datasets) != len(paths) {
				t.Fatalf("Expected %d datasets, got %d", len(paths), len(set.Datasets))
			}
			// Results keep input order regardless of completion order.
			for i, ds := range set.Datasets {
				if ds.Path != paths[i] || ds.RecordCount() != i+1 {
					t.Errorf("Datasets[%d] = %s with %d records, want %s with %d", i, ds.Path, ds.RecordCount(), paths[i], i+1)
				}
			}
			if set.RecordCount() != 15 {
				t.Errorf("RecordCount() = %d, want 15", set.RecordCount())
			}
		})
	}
}

func TestLoadDatasetsParallelErrors(t *testing.T) {
	dir := t.TempDir()
	good := writeRecords(t, dir, "good", gridRecords(2, 0))
	missing1 := filepath.Join(dir, "missing1")
	missing2 := filepath.Join(dir, "missing2")
	paths := []string{missing1, good, missing2}

	t.Run("skip errors", func(t *testing.T) {
		for _, parallel := range []bool{true, false} {
			set, err := LoadDatasetsParallel(paths, LoadOptions{Parallel: parallel, SkipErrors: true, Read: DefaultReadOptions()})
			if err == nil {
				t.Fatal("Expected aggregated error")
			}
			for _, want := range []string{"missing1", "missing2"} {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %s", err, want)
				}
			}
			if set == nil || len(set.Datasets) != 1 || set.Datasets[0].Path != good {
				t.Errorf("Expected only the good dataset, got %+v", set)
			}
		}
	})

	t.Run("fail fast", func(t *testing.T) {
		for _, parallel := range []bool{true, false} {
			set, err := LoadDatasetsParallel(paths, LoadOptions{Parallel: parallel, Read: DefaultReadOptions()})
			if err == nil {
				t.Fatal("Expected error")
			}
			if set != nil {
				t.Errorf("Expected nil set on failure, got %+v", set)
			}
		}
	})
}

func TestLoadDatasetsParallelEmpty(t *testing.T) {
	set, err := LoadDatasetsParallel(nil, DefaultLoadOptions())
	if err != nil {
		t.Fatalf("LoadDatasetsParallel(nil) error = %v", err)
	}
	if len(set.Datasets) != 0 {
		t.Errorf("Expected no datasets, got %d", len(set.Datasets))
	}
}
