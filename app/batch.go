package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/bookscan/core/model"
	"github.com/kilianp07/bookscan/core/tuning"
	"github.com/kilianp07/bookscan/pkg/export"
	"github.com/kilianp07/bookscan/pkg/instance"
)

// Job is one instance of a batch.
type Job struct {
	Path string
	Name string
	Seed uint64
}

// JobResult is the outcome of one job. Err is set when the job failed; the
// other jobs of the batch are unaffected.
type JobResult struct {
	Job
	Result *Result
	Output string
	Err    error
}

// BatchOptions configures Batch.
type BatchOptions struct {
	// OutputDir receives one submission per instance; empty skips writing.
	OutputDir string
	// Parallel bounds the number of concurrent jobs; 0 uses GOMAXPROCS.
	Parallel int
	Seed     uint64
	Params   *tuning.Params
}

// JobSeed derives the seed of job i from the batch seed so that every job
// owns an independent random stream.
func JobSeed(base uint64, i int) uint64 {
	z := base + uint64(i+1)*0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Jobs builds the job list for paths.
func Jobs(paths []string, seed uint64) []Job {
	jobs := make([]Job, len(paths))
	for i, p := range paths {
		jobs[i] = Job{Path: p, Name: instance.Name(p), Seed: JobSeed(seed, i)}
	}
	return jobs
}

// Batch solves every instance in paths with bounded parallelism. Results
// come back in input order. The returned error joins the failed jobs' errors.
func (r *Runner) Batch(ctx context.Context, paths []string, opts BatchOptions) ([]JobResult, error) {
	if opts.OutputDir != "" {
		if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
			return nil, err
		}
	}
	limit := opts.Parallel
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}
	jobs := Jobs(paths, opts.Seed)
	results := make([]JobResult, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, job := range jobs {
		g.Go(func() error {
			results[i] = r.runJob(gctx, job, opts)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", res.Name, res.Err))
		}
	}
	r.log.Infof("batch: %d instances, %d failed", len(jobs), len(errs))
	return results, errors.Join(errs...)
}

func (r *Runner) runJob(ctx context.Context, job Job, opts BatchOptions) JobResult {
	out := JobResult{Job: job}
	p, err := instance.ParseFile(job.Path)
	if err != nil {
		out.Err = err
		return out
	}
	res, err := r.Solve(ctx, job.Name, p, job.Seed, opts.Params)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res
	if opts.OutputDir == "" {
		return out
	}
	out.Output = filepath.Join(opts.OutputDir, job.Name+".txt")
	out.Err = WriteOutput(out.Output, res.Schedule)
	return out
}

// WriteOutput writes s to path, as JSON when path ends in .json and in the
// submission format otherwise.
func WriteOutput(path string, s *model.Schedule) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return export.WriteJSON(f, s)
	}
	return export.WriteSubmission(f, s)
}
