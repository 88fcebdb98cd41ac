package server

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/zombor/pantry-manager/internal/pantry"
)

type adjustRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

// handleListPantry returns the user's stock
func (s *Server) handleListPantry(w http.ResponseWriter, r *http.Request) {
	items, err := s.deps.Pantry.ListPantryItems(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, "listing pantry", err)
		return
	}
	writeJSON(w, http.StatusOK, items)
}

// handleAddPantryItem stocks a product
func (s *Server) handleAddPantryItem(w http.ResponseWriter, r *http.Request) {
	var in pantry.PantryItemInput
	if !decodeBody(w, r, &in) {
		return
	}
	item, err := s.deps.Pantry.AddPantryItem(r.Context(), userID(r), in)
	if err != nil {
		writeError(w, r, "adding pantry item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// handleAdjustPantryItem changes a stock quantity. An entry used up answers
// 204.
func (s *Server) handleAdjustPantryItem(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Delta.IsZero() {
		corsError(w, "delta must not be zero", http.StatusBadRequest)
		return
	}

	item, err := s.deps.Pantry.AdjustPantryQuantity(r.Context(), userID(r), r.PathValue("id"), req.Delta)
	if err != nil {
		writeError(w, r, "adjusting pantry item", err)
		return
	}
	if item == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// handleDeletePantryItem removes a stock entry
func (s *Server) handleDeletePantryItem(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Pantry.DeletePantryItem(r.Context(), userID(r), r.PathValue("id")); err != nil {
		writeError(w, r, "deleting pantry item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
