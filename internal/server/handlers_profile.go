package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/zombor/pantry-manager/internal/address"
	"github.com/zombor/pantry-manager/internal/remote"
)

// profiles returns the profile store or answers 503 when none is configured
func (s *Server) profiles(w http.ResponseWriter, r *http.Request) (ProfileStore, bool) {
	if s.deps.Profiles == nil {
		writeError(w, r, "using profile store", fmt.Errorf("profile store: %w", errNotConfigured))
		return nil, false
	}
	return s.deps.Profiles, true
}

// handleGetProfile returns the user's profile
func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	p, err := store.GetProfile(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "getting profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSaveProfile replaces the user's profile
func (s *Server) handleSaveProfile(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	var p remote.Profile
	if !decodeBody(w, r, &p) {
		return
	}
	p.UserID = userID(r)
	p.Name = strings.TrimSpace(p.Name)
	if p.HouseholdSize < 0 {
		corsError(w, "household_size must not be negative", http.StatusBadRequest)
		return
	}

	if err := store.SaveProfile(r.Context(), &p); err != nil {
		writeError(w, r, "saving profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetAddress returns the user's address
func (s *Server) handleGetAddress(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	a, err := store.GetAddress(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "getting address", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleSaveAddress replaces the user's address. Street fields left empty
// are filled from the postal code when a lookup service is configured.
func (s *Server) handleSaveAddress(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	var a remote.Address
	if !decodeBody(w, r, &a) {
		return
	}
	if _, valid := address.NormalizeCEP(a.CEP); !valid {
		writeError(w, r, "saving address", fmt.Errorf("%q: %w", a.CEP, address.ErrInvalidCEP))
		return
	}
	a.UserID = userID(r)
	a.CEP = address.FormatCEP(a.CEP)

	if a.Street == "" && s.deps.Addresses != nil {
		found, err := s.deps.Addresses.Lookup(r.Context(), a.CEP)
		if err != nil {
			writeError(w, r, "looking up CEP", err)
			return
		}
		fillAddress(&a, found)
	}

	if err := store.SaveAddress(r.Context(), &a); err != nil {
		writeError(w, r, "saving address", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// fillAddress copies looked-up fields the user left empty
func fillAddress(dst *remote.Address, src *address.Address) {
	fill := func(field *string, value string) {
		if *field == "" {
			*field = value
		}
	}
	fill(&dst.Street, src.Street)
	fill(&dst.Complement, src.Complement)
	fill(&dst.Neighborhood, src.Neighborhood)
	fill(&dst.City, src.City)
	fill(&dst.State, src.State)
}

// handleGetPermissions returns what the user allowed the app to use
func (s *Server) handleGetPermissions(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	p, err := store.GetPermissions(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "getting permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleSavePermissions replaces the user's permissions
func (s *Server) handleSavePermissions(w http.ResponseWriter, r *http.Request) {
	store, ok := s.profiles(w, r)
	if !ok {
		return
	}
	var p remote.Permissions
	if !decodeBody(w, r, &p) {
		return
	}
	p.UserID = userID(r)
	if err := store.SavePermissions(r.Context(), &p); err != nil {
		writeError(w, r, "saving permissions", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleLookupAddress resolves a postal code
func (s *Server) handleLookupAddress(w http.ResponseWriter, r *http.Request) {
	if s.deps.Addresses == nil {
		writeError(w, r, "looking up CEP", fmt.Errorf("CEP lookup: %w", errNotConfigured))
		return
	}
	a, err := s.deps.Addresses.Lookup(r.Context(), r.PathValue("cep"))
	if err != nil {
		writeError(w, r, "looking up CEP", err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}
