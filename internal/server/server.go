package server

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zombor/pantry-manager/internal/address"
	"github.com/zombor/pantry-manager/internal/fiscal"
	"github.com/zombor/pantry-manager/internal/pantry"
	"github.com/zombor/pantry-manager/internal/remote"
)

// ProfileStore keeps the user documents served under /api/profile
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*remote.Profile, error)
	SaveProfile(ctx context.Context, p *remote.Profile) error
	GetAddress(ctx context.Context, userID string) (*remote.Address, error)
	SaveAddress(ctx context.Context, a *remote.Address) error
	GetPermissions(ctx context.Context, userID string) (*remote.Permissions, error)
	SavePermissions(ctx context.Context, p *remote.Permissions) error
}

// AddressLookup resolves postal codes
type AddressLookup interface {
	Lookup(ctx context.Context, cep string) (*address.Address, error)
}

// Deps are the services behind the API. Profiles and Addresses may be nil,
// in which case their routes answer 503.
type Deps struct {
	Pantry    *pantry.Service
	Fiscal    *fiscal.Service
	Profiles  ProfileStore
	Addresses AddressLookup
}

// BasicAuth holds basic authentication credentials
type BasicAuth struct {
	Username string
	Password string
}

// Server handles HTTP requests for the pantry API
type Server struct {
	deps       Deps
	basicAuth  BasicAuth
	autoImport bool
	mux        *http.ServeMux
	http       *http.Server
}

// NewServer creates a new Server with default mux
func NewServer(deps Deps, basicAuth BasicAuth) *Server {
	return NewServerWithMux(deps, basicAuth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(deps Deps, basicAuth BasicAuth, mux *http.ServeMux) *Server {
	s := &Server{
		deps:      deps,
		basicAuth: basicAuth,
		mux:       mux,
	}
	s.registerRoutes()
	return s
}

// SetAutoImport sets whether scans import their items when the request does
// not say
func (s *Server) SetAutoImport(v bool) {
	s.autoImport = v
}

// authenticate checks basic auth credentials
func (s *Server) authenticate(r *http.Request) bool {
	if s.basicAuth.Username == "" && s.basicAuth.Password == "" {
		return true // No auth required if not configured
	}

	auth := r.Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Basic ") {
		return false
	}

	decoded, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(auth, "Basic "))
	if err != nil {
		return false
	}

	credentials := strings.SplitN(string(decoded), ":", 2)
	if len(credentials) != 2 {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(credentials[0]), []byte(s.basicAuth.Username)) == 1
	passOK := subtle.ConstantTimeCompare([]byte(credentials[1]), []byte(s.basicAuth.Password)) == 1
	return userOK && passOK
}

// corsMiddleware adds CORS headers to responses and answers preflight
// requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireAuth middleware
func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticate(r) {
			setCORSHeaders(w)
			w.Header().Set("WWW-Authenticate", `Basic realm="Pantry Manager"`)
			writeJSONError(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// registerRoutes registers all API routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /healthz", s.handleHealth)

	// QR pipeline
	s.mux.HandleFunc("POST /api/qr/classify", s.requireAuth(s.handleClassify))
	s.mux.HandleFunc("POST /api/qr/scan", s.requireAuth(s.handleScanText))
	s.mux.HandleFunc("POST /api/qr/image", s.requireAuth(s.handleScanImage))

	// Fiscal receipts
	s.mux.HandleFunc("GET /api/receipts/{id}/image", s.requireAuth(s.handleGetReceiptImage))
	s.mux.HandleFunc("POST /api/receipts/{id}/import", s.requireAuth(s.handleImportReceipt))
	s.mux.HandleFunc("GET /api/receipts/{id}", s.requireAuth(s.handleGetReceipt))
	s.mux.HandleFunc("DELETE /api/receipts/{id}", s.requireAuth(s.handleDeleteReceipt))
	s.mux.HandleFunc("GET /api/receipts", s.requireAuth(s.handleListReceipts))

	// Products
	s.mux.HandleFunc("GET /api/products/{id}", s.requireAuth(s.handleGetProduct))
	s.mux.HandleFunc("PUT /api/products/{id}", s.requireAuth(s.handleUpdateProduct))
	s.mux.HandleFunc("DELETE /api/products/{id}", s.requireAuth(s.handleDeleteProduct))
	s.mux.HandleFunc("GET /api/products", s.requireAuth(s.handleListProducts))
	s.mux.HandleFunc("POST /api/products", s.requireAuth(s.handleCreateProduct))

	// Pantry stock
	s.mux.HandleFunc("PATCH /api/pantry/{id}", s.requireAuth(s.handleAdjustPantryItem))
	s.mux.HandleFunc("DELETE /api/pantry/{id}", s.requireAuth(s.handleDeletePantryItem))
	s.mux.HandleFunc("GET /api/pantry", s.requireAuth(s.handleListPantry))
	s.mux.HandleFunc("POST /api/pantry", s.requireAuth(s.handleAddPantryItem))

	// User documents
	s.mux.HandleFunc("GET /api/profile/address", s.requireAuth(s.handleGetAddress))
	s.mux.HandleFunc("PUT /api/profile/address", s.requireAuth(s.handleSaveAddress))
	s.mux.HandleFunc("GET /api/profile/permissions", s.requireAuth(s.handleGetPermissions))
	s.mux.HandleFunc("PUT /api/profile/permissions", s.requireAuth(s.handleSavePermissions))
	s.mux.HandleFunc("GET /api/profile", s.requireAuth(s.handleGetProfile))
	s.mux.HandleFunc("PUT /api/profile", s.requireAuth(s.handleSaveProfile))
	s.mux.HandleFunc("GET /api/address/{cep}", s.requireAuth(s.handleLookupAddress))

	// Lookup tables: categories, brands, units
	s.mux.HandleFunc("POST /api/{kind}/dedup", s.requireAuth(s.handleDedup))
	s.mux.HandleFunc("POST /api/{kind}/populate", s.requireAuth(s.handlePopulate))
	s.mux.HandleFunc("DELETE /api/{kind}/{id}", s.requireAuth(s.handleDeleteLookup))
	s.mux.HandleFunc("GET /api/{kind}", s.requireAuth(s.handleListLookup))
	s.mux.HandleFunc("POST /api/{kind}", s.requireAuth(s.handleCreateLookup))
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           corsMiddleware(s.mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops a server started with Start
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ServeHTTP implements http.Handler for testing
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corsMiddleware(s.mux).ServeHTTP(w, r)
}
