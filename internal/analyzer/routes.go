package analyzer

import (
	"strconv"
	"strings"

	"github.com/laragen/laragen/internal/phpsrc"
)

// Route is one declaration recovered from a route file.
type Route struct {
	Method     string
	Path       string
	Controller string // short class name
	Action     string
	Middleware []string
}

// RateLimit mirrors the x-rate-limit document extension: requests per
// period, period in seconds.
type RateLimit struct {
	Limit  int `json:"limit"`
	Period int `json:"period"`
}

var routeMethods = map[string]string{
	"get":    "GET",
	"post":   "POST",
	"put":    "PUT",
	"patch":  "PATCH",
	"delete": "DELETE",
}

// scanRoutes collects Route::<method>(...) declarations from a parsed route
// file, including middleware attached through fluent chains and enclosing
// groups.
func scanRoutes(f *phpsrc.File) []Route {
	var out []Route
	for _, s := range f.Stmts {
		if s.Kind != phpsrc.StmtExpr || s.Expr == nil {
			continue
		}
		out = append(out, routesFromExpr(s.Expr, nil)...)
	}
	return out
}

// routesFromExpr unwinds a fluent chain down to the Route:: static call,
// accumulating middleware seen along the way. Group closures are opaque to
// the parser, so only directly declared routes are recovered.
func routesFromExpr(e *phpsrc.Expr, middleware []string) []Route {
	switch e.Kind {
	case phpsrc.KindMethodCall:
		switch e.Name {
		case "middleware":
			middleware = append(middlewareArgs(e.Args), middleware...)
		case "name", "where", "whereNumber", "whereUuid":
			// Chain calls that do not affect documentation shape.
		}
		if e.Target != nil {
			return routesFromExpr(e.Target, middleware)
		}
	case phpsrc.KindStaticCall:
		if e.Class != "Route" {
			return nil
		}
		if httpMethod, ok := routeMethods[e.Name]; ok {
			r, ok := routeFromCall(e, httpMethod, middleware)
			if !ok {
				return nil
			}
			return []Route{r}
		}
		if e.Name == "middleware" {
			// Route::middleware('auth')->group(...): middleware was already
			// collected on the way down; nothing more to extract here.
			return nil
		}
	}
	return nil
}

func routeFromCall(call *phpsrc.Expr, httpMethod string, middleware []string) (Route, bool) {
	if len(call.Args) < 2 {
		return Route{}, false
	}
	pathArg := call.Args[0]
	if pathArg == nil || pathArg.Kind != phpsrc.KindString {
		return Route{}, false
	}
	r := Route{
		Method:     httpMethod,
		Path:       normalizePath(pathArg.Value),
		Middleware: middleware,
	}

	handler := call.Args[1]
	switch handler.Kind {
	case phpsrc.KindArray:
		// [UserController::class, 'index']
		if len(handler.Entries) == 2 {
			if cc := handler.Entries[0].Value; cc != nil && cc.Kind == phpsrc.KindClassConst && cc.Name == "class" {
				r.Controller = cc.Class
			}
			if act := handler.Entries[1].Value; act != nil && act.Kind == phpsrc.KindString {
				r.Action = act.Value
			}
		}
	case phpsrc.KindString:
		// 'UserController@index'
		if ctrl, action, ok := strings.Cut(handler.Value, "@"); ok {
			r.Controller = ctrl
			r.Action = action
		}
	}
	if r.Controller == "" || r.Action == "" {
		return Route{}, false
	}
	return r, true
}

func middlewareArgs(args []*phpsrc.Expr) []string {
	var out []string
	for _, a := range args {
		if a == nil {
			continue
		}
		switch a.Kind {
		case phpsrc.KindString:
			out = append(out, a.Value)
		case phpsrc.KindArray:
			for _, entry := range a.Entries {
				if entry.Value != nil && entry.Value.Kind == phpsrc.KindString {
					out = append(out, entry.Value.Value)
				}
			}
		}
	}
	return out
}

func normalizePath(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 {
		p = strings.TrimSuffix(p, "/")
	}
	return p
}

// parseThrottle reads a throttle:limit,period-minutes middleware entry into
// a RateLimit (period converted to seconds). Named limiters (throttle:api)
// yield a default 60/60.
func parseThrottle(mw string) (RateLimit, bool) {
	spec, ok := strings.CutPrefix(mw, "throttle:")
	if !ok {
		return RateLimit{}, false
	}
	parts := strings.Split(spec, ",")
	limit, err := strconv.Atoi(parts[0])
	if err != nil {
		return RateLimit{Limit: 60, Period: 60}, true
	}
	period := 60
	if len(parts) > 1 {
		if mins, err := strconv.Atoi(parts[1]); err == nil {
			period = mins * 60
		}
	}
	return RateLimit{Limit: limit, Period: period}, true
}
