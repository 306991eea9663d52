// Package fakeapi is an in-process stand-in for the inventory API. It issues
// real HS256 access tokens, opaque refresh tokens and serves the CRUD
// resources, with hooks to expire tokens and inject refresh failures.
package fakeapi

import (
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/mux"
	"github.com/inventory-mgmt/invctl/jwtmodel"
)

// PathPrefix is where the fake mounts every route.
const PathPrefix = "/api"

// RecordedRequest is one request seen by the fake.
type RecordedRequest struct {
	Method        string
	Path          string
	Authorization string
	RequestID     string
}

type collection struct {
	nextID int
	items  []map[string]any
}

type Server struct {
	*httptest.Server

	users  *userStore
	secret []byte

	mu            sync.Mutex
	generation    int
	accessTTL     time.Duration
	refreshTokens map[string]string
	rotateRefresh bool
	refreshStatus int
	refreshDelay  time.Duration
	resources     map[string]*collection
	requests      []RecordedRequest

	createCalls  atomic.Int64
	refreshCalls atomic.Int64
}

type Option func(*Server)

// WithAccessTTL sets the exp of issued access tokens.
func WithAccessTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = ttl
	}
}

// WithRefreshRotation makes the refresh endpoint return a new refresh token.
func WithRefreshRotation() Option {
	return func(s *Server) {
		s.rotateRefresh = true
	}
}

// New starts the fake. Callers must Close it.
func New(options ...Option) *Server {
	secret := make([]byte, 32)
	_, _ = rand.Read(secret)

	s := &Server{
		users:         newUserStore(),
		secret:        secret,
		accessTTL:     5 * time.Minute,
		refreshTokens: make(map[string]string),
		resources:     make(map[string]*collection),
	}
	for _, opt := range options {
		opt(s)
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

// BaseURL is the API root clients should be configured with.
func (s *Server) BaseURL() string {
	return s.URL + PathPrefix
}

func (s *Server) router() http.Handler {
	r := mux.NewRouter()
	r.Use(s.recordMiddleware)

	api := r.PathPrefix(PathPrefix).Subrouter()
	api.HandleFunc(jwtmodel.CreatePath, s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc(jwtmodel.CreatePath+"/", s.handleCreate).Methods(http.MethodPost)
	api.HandleFunc(jwtmodel.RefreshPath, s.handleRefresh).Methods(http.MethodPost)
	api.HandleFunc(jwtmodel.RefreshPath+"/", s.handleRefresh).Methods(http.MethodPost)

	res := api.NewRoute().Subrouter()
	res.Use(s.requireAccess)
	res.HandleFunc("/{resource}/", s.handleList).Methods(http.MethodGet)
	res.HandleFunc("/{resource}/", s.handleCreateResource).Methods(http.MethodPost)
	res.HandleFunc("/{resource}/{id:[0-9]+}", s.handleGet).Methods(http.MethodGet)
	res.HandleFunc("/{resource}/{id:[0-9]+}/", s.handleGet).Methods(http.MethodGet)
	return r
}

// AddUser registers an account.
func (s *Server) AddUser(username, password string) {
	if err := s.users.upsert(username, password); err != nil {
		panic(err)
	}
}

// Seed adds items to a resource collection, creating it if needed, and
// returns them with ids assigned.
func (s *Server) Seed(resource string, items ...map[string]any) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.resources[resource]
	if !ok {
		c = &collection{nextID: 1}
		s.resources[resource] = c
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		stored := copyItem(item)
		stored["id"] = c.nextID
		c.nextID++
		c.items = append(c.items, stored)
		out = append(out, stored)
	}
	return out
}

// ExpireAccessTokens invalidates every access token issued so far.
func (s *Server) ExpireAccessTokens() {
	s.mu.Lock()
	s.generation++
	s.mu.Unlock()
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (s *Server) RevokeRefreshTokens() {
	s.mu.Lock()
	s.refreshTokens = make(map[string]string)
	s.mu.Unlock()
}

// FailRefresh makes the refresh endpoint answer with status. Zero restores normal behaviour.
func (s *Server) FailRefresh(status int) {
	s.mu.Lock()
	s.refreshStatus = status
	s.mu.Unlock()
}

// DelayRefresh holds every refresh response for d.
func (s *Server) DelayRefresh(d time.Duration) {
	s.mu.Lock()
	s.refreshDelay = d
	s.mu.Unlock()
}

func (s *Server) CreateCalls() int {
	return int(s.createCalls.Load())
}

func (s *Server) RefreshCalls() int {
	return int(s.refreshCalls.Load())
}

// Requests returns the requests seen so far, optionally filtered by path suffix.
func (s *Server) Requests(pathSuffix string) []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []RecordedRequest
	for _, r := range s.requests {
		if pathSuffix == "" || strings.HasSuffix(r.Path, pathSuffix) {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) recordMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, RecordedRequest{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAccess(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || scheme != "JWT" || token == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Authentication credentials were not provided."})
			return
		}
		if _, err := s.verifyAccess(token); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Given token not valid for any token type", "code": "token_not_valid"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	s.createCalls.Add(1)

	var req jwtmodel.TokenCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"username": []string{"This field is required."}})
		return
	}
	if !s.users.check(req.Username, req.Password) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "No active account found with the given credentials"})
		return
	}

	access, err := s.issueAccess(req.Username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, jwtmodel.TokenPair{Access: access, Refresh: s.issueRefresh(req.Username)})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	s.refreshCalls.Add(1)

	s.mu.Lock()
	status, delay := s.refreshStatus, s.refreshDelay
	s.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		writeJSON(w, status, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	var req jwtmodel.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Refresh == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"refresh": []string{"This field is required."}})
		return
	}

	s.mu.Lock()
	username, ok := s.refreshTokens[req.Refresh]
	rotate := s.rotateRefresh
	if ok && rotate {
		delete(s.refreshTokens, req.Refresh)
	}
	s.mu.Unlock()
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "Token is invalid or expired", "code": "token_not_valid"})
		return
	}

	access, err := s.issueAccess(username)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"detail": err.Error()})
		return
	}
	resp := jwtmodel.AccessResponse{Access: access}
	if rotate {
		resp.Refresh = s.issueRefresh(username)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	c, ok := s.collection(mux.Vars(r)["resource"])
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}
	search := strings.ToLower(r.URL.Query().Get("search"))

	s.mu.Lock()
	out := make([]map[string]any, 0, len(c.items))
	for _, item := range c.items {
		if search == "" || matches(item, search) {
			out = append(out, copyItem(item))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return itemID(out[i]) < itemID(out[j])
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	c, ok := s.collection(vars["resource"])
	id, _ := strconv.Atoi(vars["id"])
	if ok {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, item := range c.items {
			if itemID(item) == id {
				writeJSON(w, http.StatusOK, copyItem(item))
				return
			}
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
}

func (s *Server) handleCreateResource(w http.ResponseWriter, r *http.Request) {
	resource := mux.Vars(r)["resource"]
	if _, ok := s.collection(resource); !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Not found."})
		return
	}

	item := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil || len(item) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]any{"non_field_errors": []string{"Invalid data. Expected a dictionary."}})
		return
	}
	delete(item, "id")
	created := s.Seed(resource, item)
	writeJSON(w, http.StatusCreated, created[0])
}

func (s *Server) collection(resource string) (*collection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.resources[resource]
	return c, ok
}

func matches(item map[string]any, search string) bool {
	for _, v := range item {
		if str, ok := v.(string); ok && strings.Contains(strings.ToLower(str), search) {
			return true
		}
	}
	return false
}

func itemID(item map[string]any) int {
	switch id := item["id"].(type) {
	case int:
		return id
	case float64:
		return int(id)
	}
	return 0
}

func copyItem(item map[string]any) map[string]any {
	out := make(map[string]any, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
