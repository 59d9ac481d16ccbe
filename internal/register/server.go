package register

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
)

// Store is the register's authoritative pointer table: one revision
// string per DID, updated only by compare-and-swap. The register is
// ignorant of the archive; it never interprets the
// revision string beyond comparing it.
type Store interface {
	Get(did string) (revision string, ok bool)
	CompareAndSwap(did, expected, next string) (actual string, ok bool)
}

// MemoryStore is an in-process Store, the reference implementation used
// by tests and by a single-node deployment.
type MemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) Get(did string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rev, ok := s.data[did]
	return rev, ok
}

// CompareAndSwap sets data[did] = next if the current value equals
// expected (or if did has never been set and expected is empty, modeling
// a fresh register entry). It always returns the value actually stored
// after the call, so a failed caller can read the real current state off
// the return without a second round trip.
func (s *MemoryStore) CompareAndSwap(did, expected, next string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	current := s.data[did]
	if current != expected {
		return current, false
	}
	s.data[did] = next
	return next, true
}

// Authorizer is the pluggable signature/identity check
// defers to an "out-of-scope... pluggable authorizer". ReadAllowed gates
// HEAD; WriteAllowed gates PUT and receives the parsed envelope plus its
// raw signature bytes.
type Authorizer interface {
	ReadAllowed(did, bearerToken string) bool
	WriteAllowed(did string, env Envelope, sig []byte) bool
}

// OpenAuthorizer allows every request; useful for local development and
// for tests that only exercise the CAS mechanics.
type OpenAuthorizer struct{}

func (OpenAuthorizer) ReadAllowed(string, string) bool            { return true }
func (OpenAuthorizer) WriteAllowed(string, Envelope, []byte) bool { return true }

// Server implements the register HTTP surface of
type Server struct {
	store Store
	authz Authorizer
}

func NewServer(store Store, authz Authorizer) *Server {
	return &Server{store: store, authz: authz}
}

func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/{did}", s.handleHead).Methods(http.MethodHead)
	r.HandleFunc("/{did}", s.handlePut).Methods(http.MethodPut)
	return r
}

func (s *Server) handleHead(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]
	token := bearerToken(r)
	if !s.authz.ReadAllowed(did, token) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}
	rev, ok := s.store.Get(did)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.Header().Set("ETag", rev)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handlePut(w http.ResponseWriter, r *http.Request) {
	did := mux.Vars(r)["did"]

	var env Envelope
	if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	if env.Iss != did || env.Sub != did {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	sig, _ := decodeSignatureHeader(r.Header.Get("X-Wyrd-Signature"))
	if !s.authz.WriteAllowed(did, env, sig) {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	revision, _ := env.Args["revision"].(string)
	expected := r.Header.Get("If-Match")

	actual, ok := s.store.CompareAndSwap(did, expected, revision)
	if !ok {
		w.Header().Set("ETag", actual)
		w.WriteHeader(http.StatusPreconditionFailed)
		return
	}
	w.Header().Set("ETag", actual)
	w.WriteHeader(http.StatusOK)
}

func decodeSignatureHeader(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	h := r.Header.Get("Authorization")
	if len(h) > len(prefix) && h[:len(prefix)] == prefix {
		return h[len(prefix):]
	}
	return ""
}
