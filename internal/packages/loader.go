package packages

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/alsym/alsym/internal/errors"
	"github.com/alsym/alsym/internal/model"
	"github.com/alsym/alsym/internal/normalize"
	"github.com/alsym/alsym/internal/store"
)

// maxReportedWarnings caps the warnings carried in a report; the count is
// always exact
const maxReportedWarnings = 100

// LoadRequest selects the packages to load
type LoadRequest struct {
	Path         string
	AutoDiscover bool
	ForceReload  bool
}

// PackageReport describes one package file of a load run
type PackageReport struct {
	File      string        `json:"file"`
	Package   model.Package `json:"package"`
	Objects   int           `json:"objects"`
	Warnings  int           `json:"warnings,omitempty"`
	Skipped   bool          `json:"skipped,omitempty"`
	Replaced  bool          `json:"replaced,omitempty"`
	Active    bool          `json:"active"`
	Extracted bool          `json:"extracted,omitempty"`
}

// Report summarizes a load run. Failures never abort sibling packages.
type Report struct {
	RunID        string             `json:"runId"`
	Path         string             `json:"path"`
	Discovered   int                `json:"discovered"`
	Packages     []PackageReport    `json:"packages"`
	Failures     []*apperrors.Error `json:"failures,omitempty"`
	Warnings     []*apperrors.Error `json:"warnings,omitempty"`
	WarningCount int                `json:"warningCount"`
	Objects      int                `json:"objects"`
	StartedAt    time.Time          `json:"startedAt"`
	Duration     time.Duration      `json:"duration"`
}

// Loaded counts the packages that were ingested
func (r *Report) Loaded() int {
	n := 0
	for _, p := range r.Packages {
		if !p.Skipped {
			n++
		}
	}
	return n
}

// Options configures a Loader
type Options struct {
	// Workers bounds parallel decoding
	Workers int

	// DefaultPath is used when a request names no path
	DefaultPath string

	// Extractor is the optional fallback for packages the built-in decoder
	// cannot read
	Extractor *Extractor
}

// Loader discovers, decodes, normalizes and ingests packages
type Loader struct {
	store      *store.Store
	normalizer *normalize.Normalizer
	extractor  *Extractor
	workers    int
	logger     *zap.Logger

	mu          sync.RWMutex
	defaultPath string
}

// NewLoader creates a loader feeding st
func NewLoader(st *store.Store, norm *normalize.Normalizer, opts Options, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if norm == nil {
		norm = normalize.New(logger)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	return &Loader{
		store:       st,
		normalizer:  norm,
		extractor:   opts.Extractor,
		workers:     workers,
		defaultPath: opts.DefaultPath,
		logger:      logger.Named("packages"),
	}
}

// DefaultPath returns the path used when a request names none
func (l *Loader) DefaultPath() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.defaultPath
}

// SetDefaultPath replaces the default path
func (l *Loader) SetDefaultPath(path string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defaultPath = path
}

// decoded is the per-file outcome of the parallel phase
type decoded struct {
	file      string
	result    *normalize.Result
	extracted bool
	err       *apperrors.Error
}

// Load discovers the packages under the request path, decodes them in
// parallel and ingests them in discovery order. A missing or unreadable path
// is an InvalidRequest; per-package failures are collected in the report.
func (l *Loader) Load(ctx context.Context, req LoadRequest) (*Report, error) {
	path := req.Path
	if path == "" {
		path = l.DefaultPath()
	}
	if path == "" {
		return nil, apperrors.InvalidRequest("no package path given and none configured")
	}

	report := &Report{
		RunID:     uuid.New().String(),
		Path:      path,
		StartedAt: time.Now(),
		Packages:  []PackageReport{},
	}
	logger := l.logger.With(zap.String("run", report.RunID))

	files, err := Discover(path, req.AutoDiscover)
	if err != nil {
		return nil, &apperrors.Error{
			Kind:    apperrors.KindInvalidRequest,
			Code:    apperrors.CodeInvalidRequest,
			Message: "cannot discover packages",
			Err:     err,
		}
	}
	report.Discovered = len(files)
	logger.Info("loading packages", zap.String("path", path), zap.Int("discovered", len(files)))

	results := make([]decoded, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.workers)
	for i, file := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = l.decode(gctx, file)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load packages: %w", err)
	}

	for _, d := range results {
		if d.err != nil {
			report.Failures = append(report.Failures, d.err)
			logger.Warn("package skipped", zap.String("file", d.file), zap.Error(d.err))
			continue
		}

		pkg := identity(d.file, d.result.Header)
		res := l.store.Ingest(pkg, d.result.Objects, req.ForceReload)

		report.Packages = append(report.Packages, PackageReport{
			File:      d.file,
			Package:   pkg,
			Objects:   res.Objects,
			Warnings:  len(d.result.Warnings),
			Skipped:   res.Skipped,
			Replaced:  res.Replaced,
			Active:    res.Active,
			Extracted: d.extracted,
		})
		if !res.Skipped {
			report.Objects += res.Objects
		}
		report.WarningCount += len(d.result.Warnings)
		for _, w := range d.result.Warnings {
			if len(report.Warnings) >= maxReportedWarnings {
				break
			}
			report.Warnings = append(report.Warnings, w)
		}
	}

	report.Duration = time.Since(report.StartedAt)
	logger.Info("packages loaded",
		zap.Int("loaded", report.Loaded()),
		zap.Int("failed", len(report.Failures)),
		zap.Int("objects", report.Objects),
		zap.Int("warnings", report.WarningCount),
		zap.Duration("duration", report.Duration),
	)
	return report, nil
}

func (l *Loader) decode(ctx context.Context, file string) decoded {
	name := IdentityFromFileName(file).Name
	out := decoded{file: file}

	data, err := ReadArchive(file)
	if err != nil {
		if !l.extractor.Enabled() {
			out.err = apperrors.DecodeArchive(name, err)
			return out
		}
		l.logger.Debug("built-in decoder failed, trying extractor", zap.String("file", file), zap.Error(err))
		data, err = l.extractor.Extract(ctx, file)
		if err != nil {
			out.err = apperrors.DecodeArchive(name, err)
			return out
		}
		out.extracted = true
	}

	result, err := l.normalizer.Normalize(data, name)
	if err != nil {
		var appErr *apperrors.Error
		if !stderrors.As(err, &appErr) {
			appErr = apperrors.DecodeDocument(name, err)
		}
		out.err = appErr
		return out
	}
	out.result = result
	return out
}
