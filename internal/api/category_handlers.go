package api

import (
	"net/http"

	"task-manager/internal/service"
)

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categories.List(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "categories": categories, "message": "Categories retrieved successfully"})
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}
	category, err := h.categories.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "category": category, "message": "Category created successfully"})
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Category")
		return
	}
	category, err := h.categories.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "category": category, "message": "Category retrieved successfully"})
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Category")
		return
	}
	in, ok := decodeCategoryInput(w, r)
	if !ok {
		return
	}
	category, err := h.categories.Update(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "category": category, "message": "Category updated successfully"})
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Category")
		return
	}
	if err := h.categories.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, err, "Category")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Category deleted successfully"})
}
