package testutil

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"

	"booking-calendar/internal/model"
)

// FakeServer is an in-memory booking API. Base() is the URL to hand to
// api.New. Route keys used by Calls and Fail look like "GET /calendar/entries".
type FakeServer struct {
	srv *httptest.Server

	Username string
	Password string
	TokenTTL time.Duration

	mu         sync.Mutex
	entries    map[int]model.CalendarEntry
	nextID     int
	nextSeries int
	calls      map[string]int
	fail       map[string]int
	gate       chan struct{}
	authSeen   []string
}

func NewFakeServer(t testing.TB) *FakeServer {
	t.Helper()
	f := &FakeServer{
		Username:   "admin",
		Password:   "admin",
		TokenTTL:   15 * time.Minute,
		entries:    make(map[int]model.CalendarEntry),
		nextID:     1,
		nextSeries: 1,
		calls:      make(map[string]int),
		fail:       make(map[string]int),
	}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/login", f.handle("POST /admin/login", f.login))
		r.Get("/admin/token", f.handle("GET /admin/token", f.refresh))
		r.Delete("/admin/user", f.handle("DELETE /admin/user", f.deleteUser))
		r.Get("/calendar/entries", f.handle("GET /calendar/entries", f.listEntries))
		r.Post("/calendar/entries", f.handle("POST /calendar/entries", f.createEntry))
		r.Delete("/calendar/entries/{id}", f.handle("DELETE /calendar/entries/{id}", f.deleteEntry))
		r.Post("/calendar/series", f.handle("POST /calendar/series", f.createSeries))
		r.Delete("/calendar/series/{id}", f.handle("DELETE /calendar/series/{id}", f.deleteSeries))
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *FakeServer) Base() string { return f.srv.URL + "/api" }

// Calls returns how many requests reached route.
func (f *FakeServer) Calls(route string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[route]
}

// Fail makes route answer with status until cleared with status 0.
func (f *FakeServer) Fail(route string, status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if status == 0 {
		delete(f.fail, route)
		return
	}
	f.fail[route] = status
}

// Gate holds GET /calendar/entries until the returned channel is closed.
func (f *FakeServer) Gate() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
	return f.gate
}

// AuthHeaders returns every Authorization header received, in order.
func (f *FakeServer) AuthHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.authSeen...)
}

// Seed stores e as-is and returns it with its assigned id.
func (f *FakeServer) Seed(e model.CalendarEntry) model.CalendarEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	e.ID = f.nextID
	f.nextID++
	f.entries[e.ID] = e
	return e
}

// Entries returns the stored entries ordered by id.
func (f *FakeServer) Entries() []model.CalendarEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.CalendarEntry, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (f *FakeServer) handle(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls[route]++
		f.authSeen = append(f.authSeen, r.Header.Get("Authorization"))
		status := f.fail[route]
		gate := f.gate
		f.mu.Unlock()

		if route == "GET /calendar/entries" && gate != nil {
			<-gate
		}
		if status != 0 {
			http.Error(w, http.StatusText(status), status)
			return
		}
		h(w, r)
	}
}

func (f *FakeServer) login(w http.ResponseWriter, r *http.Request) {
	var req struct{ Username, Password string }
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Username != f.Username || req.Password != f.Password {
		http.Error(w, "Invalid login", http.StatusUnauthorized)
		return
	}
	f.writeToken(w)
}

func (f *FakeServer) refresh(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	// expired bearers are accepted here; only the signature matters
	_, err := jwt.Parse(raw, keyFunc, jwt.WithoutClaimsValidation())
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}
	f.writeToken(w)
}

func (f *FakeServer) writeToken(w http.ResponseWriter) {
	c := jwt.MapClaims{"exp": time.Now().Add(f.TokenTTL).Unix(), "iat": time.Now().Unix()}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(Secret))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (f *FakeServer) deleteUser(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	q := r.URL.Query()
	f.mu.Lock()
	for id, e := range f.entries {
		if e.FirstName == q.Get("firstname") && e.LastName == q.Get("lastname") && e.Email == q.Get("email") {
			delete(f.entries, id)
		}
	}
	f.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeServer) listEntries(w http.ResponseWriter, r *http.Request) {
	start, err := time.Parse("2006-01-02", r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	end := start.AddDate(0, 0, 7)
	admin := isAdmin(r)

	out := make([]model.CalendarEntry, 0)
	for _, e := range f.Entries() {
		if e.Start.After(end) || e.End.Before(start) {
			continue
		}
		if !admin {
			e.LastName, e.Email = "", ""
		}
		out = append(out, e)
	}
	writeJSON(w, http.StatusOK, out)
}

func (f *FakeServer) createEntry(w http.ResponseWriter, r *http.Request) {
	var e model.CalendarEntry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e.SeriesID = nil

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.overlapsLocked(e) {
		http.Error(w, "no entry inserted", http.StatusConflict)
		return
	}
	e.ID = f.nextID
	f.nextID++
	f.entries[e.ID] = e
	writeJSON(w, http.StatusCreated, e)
}

func (f *FakeServer) createSeries(w http.ResponseWriter, r *http.Request) {
	var req model.SeriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	planned, err := expand(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range planned {
		if f.overlapsLocked(e) {
			http.Error(w, "timeslot overlap", http.StatusConflict)
			return
		}
	}
	sid := f.nextSeries
	f.nextSeries++
	out := make([]model.CalendarEntry, 0, len(planned))
	for _, e := range planned {
		e.ID = f.nextID
		f.nextID++
		e.SeriesID = &sid
		f.entries[e.ID] = e
		out = append(out, e)
	}
	writeJSON(w, http.StatusCreated, out)
}

func (f *FakeServer) deleteEntry(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := r.URL.Query().Get("email")
	admin := isAdmin(r)

	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[id]
	if !ok || (!admin && e.Email != email) {
		http.Error(w, "no entry deleted", http.StatusNotFound)
		return
	}
	delete(f.entries, id)
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeServer) deleteSeries(w http.ResponseWriter, r *http.Request) {
	sid, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	email := r.URL.Query().Get("email")
	admin := isAdmin(r)

	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, e := range f.entries {
		if e.InSeries(sid) && (admin || e.Email == email) {
			delete(f.entries, id)
			n++
		}
	}
	if n == 0 {
		http.Error(w, "no entry deleted", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (f *FakeServer) overlapsLocked(e model.CalendarEntry) bool {
	for _, o := range f.entries {
		if o.Start.Before(e.End) && o.End.After(e.Start) {
			return true
		}
	}
	return false
}

func expand(req model.SeriesRequest) ([]model.CalendarEntry, error) {
	if err := req.Series.Validate(); err != nil {
		return nil, err
	}
	out := []model.CalendarEntry{req.Entry}
	for i := 1; i < req.Series.Repetitions; i++ {
		next := out[len(out)-1]
		switch req.Series.Interval {
		case model.Daily:
			next.Start, next.End = next.Start.AddDate(0, 0, 1), next.End.AddDate(0, 0, 1)
		case model.Weekly:
			next.Start, next.End = next.Start.AddDate(0, 0, 7), next.End.AddDate(0, 0, 7)
		case model.Monthly:
			next.Start, next.End = next.Start.AddDate(0, 1, 0), next.End.AddDate(0, 1, 0)
		default:
			return nil, errors.New("invalid interval")
		}
		out = append(out, next)
	}
	return out, nil
}

func isAdmin(r *http.Request) bool {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	_, err := jwt.Parse(raw, keyFunc)
	return err == nil
}

func keyFunc(t *jwt.Token) (any, error) {
	// block alg confusion
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return []byte(Secret), nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
