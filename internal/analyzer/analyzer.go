// Package analyzer orchestrates static analysis of route, controller and
// form-request sources into documented operations. Analysis is a bounded
// batch: files are parsed and routes analyzed in parallel, diagnostics are
// collected per worker and merged, and results are ordered deterministically
// regardless of scheduling.
package analyzer

import (
	"regexp"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/laragen/laragen/internal/diag"
	"github.com/laragen/laragen/internal/params"
	"github.com/laragen/laragen/internal/phpsrc"
	"github.com/laragen/laragen/internal/rules"
)

// SourceFile is one enumerated source; discovery is the caller's concern.
type SourceFile struct {
	Path    string
	Content string
}

// Config tunes the analysis batch.
type Config struct {
	// Workers bounds parallelism; 0 means NumCPU.
	Workers int
}

// AnalyzedRoute is one route with its recovered validation model.
type AnalyzedRoute struct {
	Route
	Strategy   string
	RuleSets   []rules.RuleSet
	Parameters []params.Definition
	RateLimit  *RateLimit
}

// Result is the outcome of one analysis run. Diagnostics never abort the
// batch; callers decide what to do with them.
type Result struct {
	Routes      []AnalyzedRoute
	Diagnostics *diag.Collector
}

// Service holds the parsed source index for one run.
type Service struct {
	index map[string]*sourceUnit
}

var classDeclPattern = regexp.MustCompile(`class\s+([A-Za-z_][A-Za-z0-9_]*)`)

// Analyze parses every file, scans route declarations and analyzes each
// route's controller action. It always returns a result; per-file failures
// become diagnostics.
func Analyze(files []SourceFile, cfg Config) *Result {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	// Parse all files in parallel. Units land in a pre-sized slice so no
	// locking is needed; parse errors are recorded afterwards.
	units := make([]*sourceUnit, len(files))
	var pg errgroup.Group
	pg.SetLimit(workers)
	for i, f := range files {
		i, f := i, f
		pg.Go(func() error {
			ast, err := phpsrc.Parse(f.Path, f.Content)
			if err != nil {
				ast = nil
			}
			units[i] = &sourceUnit{file: f, ast: ast}
			return nil
		})
	}
	_ = pg.Wait()

	diags := diag.NewCollector()
	svc := &Service{index: make(map[string]*sourceUnit)}
	var routes []Route
	for _, u := range units {
		if u.ast == nil {
			diags.Warn(diag.CategoryParseFailure, u.file.Path, 0, "source could not be parsed; falling back to reflective extraction")
			// Index classes by declaration text so routes can still reach
			// the file through the reflective strategy.
			for _, m := range classDeclPattern.FindAllStringSubmatch(u.file.Content, -1) {
				if _, taken := svc.index[m[1]]; !taken {
					svc.index[m[1]] = u
				}
			}
			continue
		}
		for i := range u.ast.Classes {
			name := u.ast.Classes[i].Name
			if name == "" {
				continue
			}
			if _, taken := svc.index[name]; !taken {
				svc.index[name] = u
			}
		}
		routes = append(routes, scanRoutes(u.ast)...)
	}

	// Analyze routes in parallel, one task per route, each with an isolated
	// diagnostics collector merged after the join.
	type routeResult struct {
		route AnalyzedRoute
		diags *diag.Collector
	}
	results := make([]routeResult, len(routes))
	var g errgroup.Group
	g.SetLimit(workers)
	for i, r := range routes {
		i, r := i, r
		g.Go(func() error {
			d := diag.NewCollector()
			results[i] = routeResult{route: svc.analyzeRoute(r, d), diags: d}
			return nil
		})
	}
	_ = g.Wait()

	// Deterministic assembly: order by path then method, then merge the
	// per-worker diagnostics in the same order.
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i].route, results[j].route
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Method < b.Method
	})
	out := &Result{Diagnostics: diags}
	for _, rr := range results {
		out.Routes = append(out.Routes, rr.route)
		diags.Merge(rr.diags)
	}
	return out
}

func (s *Service) analyzeRoute(r Route, d *diag.Collector) AnalyzedRoute {
	ar := AnalyzedRoute{Route: r}

	for _, mw := range r.Middleware {
		if rl, ok := parseThrottle(mw); ok {
			ar.RateLimit = &rl
			break
		}
	}

	unit, ok := s.index[r.Controller]
	if !ok {
		d.Warn(diag.CategoryStructuralMismatch, "", 0, "controller %s for %s %s not found in sources", r.Controller, r.Method, r.Path)
		return ar
	}

	strategy := s.strategyFor(unit)
	ar.Strategy = strategy.Name()
	ex, aliases := strategy.Extract(r.Controller, r.Action, d)
	ar.RuleSets = ex.RuleSets
	ar.Parameters = params.NewBuilder(aliases).Build(ex)
	return ar
}
