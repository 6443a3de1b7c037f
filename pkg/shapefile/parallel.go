package shapefile

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"cloudeng.io/errors"
)

// LoadOptions controls parallel loading behavior and error handling.
type LoadOptions struct {
	// Parallel enables concurrent loading with a pool of worker goroutines.
	Parallel bool

	// Workers is the pool size. 0 means runtime.NumCPU().
	// Only used when Parallel is true.
	Workers int

	// SkipErrors keeps loading when individual files fail. Failures are
	// collected and returned together; the successfully loaded files are
	// still returned. When false the first failure aborts the load.
	SkipErrors bool

	// Progress is called after each file is processed (successfully or
	// not) with the number processed so far and the total.
	Progress func(loaded, total int)

	// ErrorLog receives one line per failed file.
	ErrorLog io.Writer

	// Read configures how each shapefile is opened.
	Read ReadOptions
}

// DefaultLoadOptions returns load options with sensible defaults.
func DefaultLoadOptions() LoadOptions {
	return LoadOptions{
		Parallel:   true,
		Workers:    runtime.NumCPU(),
		SkipErrors: true,
		Read:       DefaultReadOptions(),
	}
}

// DatasetSet is the result of loading several shapefiles.
type DatasetSet struct {
	Datasets []*Dataset
}

// RecordCount returns the total number of records across all datasets.
func (s *DatasetSet) RecordCount() int {
	n := 0
	for _, d := range s.Datasets {
		n += len(d.Records)
	}
	return n
}

// Records returns every record of every dataset, in dataset order.
func (s *DatasetSet) Records() []*ShapeRecord {
	out := make([]*ShapeRecord, 0, s.RecordCount())
	for _, d := range s.Datasets {
		out = append(out, d.Records...)
	}
	return out
}

// LoadDatasetsParallel loads several shapefiles, optionally in parallel.
//
// Datasets are returned in the order of paths, with failed paths left out.
// With SkipErrors the returned error aggregates every failure (it is nil
// when all files loaded); without it the first failure is returned alone
// and the set is nil.
//
// Example:
//
//	set, err := shapefile.LoadDatasetsParallel(paths, shapefile.LoadOptions{
//	    Parallel:   true,
//	    SkipErrors: true,
//	    Progress: func(loaded, total int) {
//	        fmt.Printf("\rLoading: %d/%d", loaded, total)
//	    },
//	})
//	if err != nil {
//	    log.Printf("some datasets failed: %v", err)
//	}
func LoadDatasetsParallel(paths []string, opts LoadOptions) (*DatasetSet, error) {
	datasets, err := loadParallel(paths, opts, func(path string) (*Dataset, error) {
		return LoadDataset(path, opts.Read)
	})
	if datasets == nil {
		return nil, err
	}
	return &DatasetSet{Datasets: datasets}, err
}

// loadParallel runs load over paths with a worker pool and gathers results
// in path order. It is shared by dataset loading and catalog scanning.
func loadParallel[T any](paths []string, opts LoadOptions, load func(string) (T, error)) ([]T, error) {
	if len(paths) == 0 {
		return []T{}, nil
	}
	if !opts.Parallel {
		return loadSerial(paths, opts, load)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	type loadResult struct {
		index int
		value T
		err   error
	}

	jobs := make(chan int, len(paths))
	results := make(chan loadResult, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for index := range jobs {
				v, err := load(paths[index])
				results <- loadResult{index: index, value: v, err: err}
			}
		}()
	}

	for i := range paths {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	loaded := make(map[int]T, len(paths))
	var errs errors.M
	var firstErr error
	done := 0
	for result := range results {
		done++
		if opts.Progress != nil {
			opts.Progress(done, len(paths))
		}
		if result.err != nil {
			err := fmt.Errorf("%s: %w", paths[result.index], result.err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error loading shapefile: %v\n", err)
			}
			errs.Append(err)
			if !opts.SkipErrors && firstErr == nil {
				firstErr = err
			}
			continue
		}
		loaded[result.index] = result.value
	}

	// Workers drain the whole queue before results close, so even on the
	// first error every goroutine has exited by now.
	if firstErr != nil {
		return nil, firstErr
	}

	out := make([]T, 0, len(loaded))
	for i := range paths {
		if v, ok := loaded[i]; ok {
			out = append(out, v)
		}
	}
	return out, errs.Err()
}

// loadSerial loads one path at a time (fallback when Parallel is false).
func loadSerial[T any](paths []string, opts LoadOptions, load func(string) (T, error)) ([]T, error) {
	out := make([]T, 0, len(paths))
	var errs errors.M

	for i, path := range paths {
		v, err := load(path)
		if opts.Progress != nil {
			opts.Progress(i+1, len(paths))
		}
		if err != nil {
			err = fmt.Errorf("%s: %w", path, err)
			if opts.ErrorLog != nil {
				fmt.Fprintf(opts.ErrorLog, "Error loading shapefile: %v\n", err)
			}
			if !opts.SkipErrors {
				return nil, err
			}
			errs.Append(err)
			continue
		}
		out = append(out, v)
	}
	return out, errs.Err()
}
