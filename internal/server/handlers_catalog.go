package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/zombor/pantry-manager/internal/pantry"
)

type lookupRequest struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
}

// kindFromPath resolves the {kind} segment, answering 404 for anything that
// is not a lookup table
func kindFromPath(w http.ResponseWriter, r *http.Request) (pantry.Kind, bool) {
	kind, ok := pantry.ParseKind(r.PathValue("kind"))
	if !ok {
		corsError(w, "Not found", http.StatusNotFound)
		return "", false
	}
	return kind, true
}

// handleListLookup lists categories, brands or units
func (s *Server) handleListLookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	var (
		rows any
		err  error
	)
	switch kind {
	case pantry.KindCategories:
		rows, err = s.deps.Pantry.ListCategories(r.Context())
	case pantry.KindBrands:
		rows, err = s.deps.Pantry.ListBrands(r.Context())
	case pantry.KindUnits:
		rows, err = s.deps.Pantry.ListUnits(r.Context())
	}
	if err != nil {
		writeError(w, r, "listing "+string(kind), err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// handleCreateLookup creates a category, brand or unit
func (s *Server) handleCreateLookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}
	var req lookupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var (
		row any
		err error
	)
	switch kind {
	case pantry.KindCategories:
		row, err = s.deps.Pantry.CreateCategory(r.Context(), req.Name)
	case pantry.KindBrands:
		row, err = s.deps.Pantry.CreateBrand(r.Context(), req.Name)
	case pantry.KindUnits:
		row, err = s.deps.Pantry.CreateUnit(r.Context(), req.Name, req.Abbreviation)
	}
	if err != nil {
		writeError(w, r, "creating "+string(kind), err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

// handleDeleteLookup deletes a category, brand or unit
func (s *Server) handleDeleteLookup(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}

	id := r.PathValue("id")
	var err error
	switch kind {
	case pantry.KindCategories:
		err = s.deps.Pantry.DeleteCategory(r.Context(), id)
	case pantry.KindBrands:
		err = s.deps.Pantry.DeleteBrand(r.Context(), id)
	case pantry.KindUnits:
		err = s.deps.Pantry.DeleteUnit(r.Context(), id)
	}
	if err != nil {
		writeError(w, r, "deleting "+string(kind), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDedup merges rows whose names differ only by case and spacing
func (s *Server) handleDedup(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}
	removed, err := s.deps.Pantry.Dedup(r.Context(), kind)
	if err != nil {
		writeError(w, r, "deduplicating "+string(kind), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

// handlePopulate asks the language model for common entries and inserts the
// ones not yet present
func (s *Server) handlePopulate(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(w, r)
	if !ok {
		return
	}
	inserted, err := s.deps.Pantry.Populate(r.Context(), kind)
	if err != nil {
		writeError(w, r, "populating "+string(kind), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"inserted": inserted})
}

// handleListProducts lists the user's products. ?barcode= narrows the list
// to the product with that code.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	if code := strings.TrimSpace(r.URL.Query().Get("barcode")); code != "" {
		product, err := s.deps.Pantry.FindProductByBarcode(r.Context(), userID(r), code)
		switch {
		case errors.Is(err, pantry.ErrNotFound):
			writeJSON(w, http.StatusOK, []*pantry.Product{})
		case err != nil:
			writeError(w, r, "finding product", err)
		default:
			writeJSON(w, http.StatusOK, []*pantry.Product{product})
		}
		return
	}

	products, err := s.deps.Pantry.ListProducts(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "listing products", err)
		return
	}
	writeJSON(w, http.StatusOK, products)
}

// handleCreateProduct creates a product for the user
func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var in pantry.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	product, err := s.deps.Pantry.CreateProduct(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, "creating product", err)
		return
	}
	writeJSON(w, http.StatusCreated, product)
}

// handleGetProduct returns one of the user's products
func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := s.deps.Pantry.GetProduct(r.Context(), userID(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, "getting product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleUpdateProduct replaces the editable fields of a product
func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var in pantry.ProductInput
	if !decodeBody(w, r, &in) {
		return
	}
	product, err := s.deps.Pantry.UpdateProduct(r.Context(), userID(r), r.PathValue("id"), in)
	if err != nil {
		writeError(w, r, "updating product", err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// handleDeleteProduct deletes a product and its pantry stock
func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Pantry.DeleteProduct(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, "deleting product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
