package mock

import (
	"io"
	"log"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/gin-gonic/gin"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/laragen/laragen/internal/stats"
)

// Config holds the serving options for a mock server.
type Config struct {
	Auth  AuthConfig
	Seed  int64
	Log   bool
	Stats *stats.Collector
}

// Server serves mock responses for a compiled document. The registry is
// swapped atomically on reload, so serving continues uninterrupted while
// sources are re-analyzed.
type Server struct {
	registry atomic.Pointer[Registry]
	auth     *Authenticator
	gen      *Generator
	logging  bool
	stats    *stats.Collector

	mu       sync.Mutex
	limiters map[string]*opLimiter
}

type opLimiter struct {
	limiter *rate.Limiter
	limit   int
	period  time.Duration
}

// NewServer compiles the document and prepares the serving stack.
func NewServer(doc *openapi3.T, cfg Config) *Server {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	s := &Server{
		auth:     NewAuthenticator(cfg.Auth),
		gen:      NewGenerator(seed),
		logging:  cfg.Log,
		stats:    cfg.Stats,
		limiters: make(map[string]*opLimiter),
	}
	s.registry.Store(LoadDocument(doc))
	return s
}

// Reload replaces the served operation set with one compiled from doc.
// In-flight requests finish against the old set.
func (s *Server) Reload(doc *openapi3.T) {
	s.registry.Store(LoadDocument(doc))
	s.mu.Lock()
	s.limiters = make(map[string]*opLimiter)
	s.mu.Unlock()
}

// Registry returns the currently served operation set.
func (s *Server) Registry() *Registry {
	return s.registry.Load()
}

// Handler builds the gin engine serving the mock API.
func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.NoRoute(s.handle)
	return r
}

func (s *Server) handle(c *gin.Context) {
	start := time.Now()
	path := s.dispatch(c)
	if s.stats != nil {
		s.stats.Record(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}

// dispatch serves the request and returns the matched template path for
// metrics, or the raw path when nothing matched.
func (s *Server) dispatch(c *gin.Context) string {
	reg := s.registry.Load()
	match := reg.Match(c.Request.Method, c.Request.URL.EscapedPath())
	if match == nil {
		if reg.MatchesOtherMethod(c.Request.Method, c.Request.URL.EscapedPath()) {
			c.JSON(http.StatusMethodNotAllowed, gin.H{"message": "Method Not Allowed"})
		} else {
			c.JSON(http.StatusNotFound, gin.H{"message": "Not Found"})
		}
		return c.Request.URL.Path
	}
	op := match.Operation

	if s.logging {
		log.Printf("%s %s -> %s", c.Request.Method, c.Request.URL.Path, op.Path)
	}

	authResult := s.auth.Authenticate(c.Request, op.Security)
	if !authResult.Authenticated {
		c.JSON(http.StatusUnauthorized, gin.H{"message": authResult.Message})
		return op.Path
	}

	if op.RateLimit != nil {
		remaining, ok := s.takeToken(op)
		if !ok {
			s.writeRateHeaders(c, op, 0)
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Too Many Requests"})
			return op.Path
		}
		s.writeRateHeaders(c, op, remaining)
	}

	body, bodyPresent := decodeBody(c.Request)
	query := c.Request.URL.Query()

	result := Validate(op, body, bodyPresent, query, match.PathParams)
	if !result.Valid() {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"message": "The given data was invalid.",
			"errors":  result.Errors,
		})
		return op.Path
	}

	status := DefaultStatus(op)
	if forced := query.Get("_status"); forced != "" {
		if code, err := strconv.Atoi(forced); err == nil && code >= 100 && code < 600 {
			status = code
		}
	}
	scenario := query.Get("_scenario")

	resp := s.gen.Generate(op, status, scenario, match.PathParams)
	for name, value := range resp.Headers {
		c.Header(name, value)
	}
	if resp.Body == nil {
		c.Status(resp.Status)
		return op.Path
	}
	c.JSON(resp.Status, resp.Body)
	return op.Path
}

// decodeBody reads the JSON body. bodyPresent is false when the body is
// empty or not valid JSON; a non-object JSON document decodes to an empty
// field map.
func decodeBody(r *http.Request) (map[string]any, bool) {
	if r.Body == nil {
		return nil, false
	}
	raw, err := io.ReadAll(r.Body)
	if err != nil || len(raw) == 0 {
		return nil, false
	}
	if !gjson.ValidBytes(raw) {
		return nil, false
	}
	parsed := gjson.ParseBytes(raw).Value()
	if fields, ok := parsed.(map[string]any); ok {
		return fields, true
	}
	return map[string]any{}, true
}

func (s *Server) takeToken(op *Operation) (int, bool) {
	key := op.Method + " " + op.Path
	s.mu.Lock()
	lim, ok := s.limiters[key]
	if !ok {
		period := time.Duration(op.RateLimit.Period) * time.Second
		lim = &opLimiter{
			limiter: rate.NewLimiter(rate.Every(period/time.Duration(op.RateLimit.Limit)), op.RateLimit.Limit),
			limit:   op.RateLimit.Limit,
			period:  period,
		}
		s.limiters[key] = lim
	}
	s.mu.Unlock()

	if !lim.limiter.Allow() {
		return 0, false
	}
	remaining := int(lim.limiter.Tokens())
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

func (s *Server) writeRateHeaders(c *gin.Context, op *Operation, remaining int) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(op.RateLimit.Limit))
	c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
	c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Duration(op.RateLimit.Period)*time.Second).Unix(), 10))
}
