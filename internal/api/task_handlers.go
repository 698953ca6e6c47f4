package api

import (
	"net/http"

	"task-manager/internal/service"
)

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tasks, err := h.tasks.List(r.Context(), currentUser(r), service.ListParams{
		Status:     q.Get("status"),
		Priority:   q.Get("priority"),
		CategoryID: q.Get("category_id"),
		SortBy:     q.Get("sort_by"),
		SortOrder:  q.Get("sort_order"),
	})
	if err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "tasks": tasks, "count": len(tasks), "message": "Tasks retrieved successfully"})
}

func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Create(r.Context(), currentUser(r), in)
	if err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusCreated, envelope{"success": true, "task": task, "message": "Task created successfully"})
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Task")
		return
	}
	task, err := h.tasks.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": task, "message": "Task retrieved successfully"})
}

func (h *Handler) updateTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Task")
		return
	}
	in, ok := decodeTaskInput(w, r)
	if !ok {
		return
	}
	task, err := h.tasks.Update(r.Context(), currentUser(r), id, in)
	if err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": task, "message": "Task updated successfully"})
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Task")
		return
	}
	if err := h.tasks.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "message": "Task deleted successfully"})
}

func (h *Handler) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, service.ErrNotFound, "Task")
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	task, err := h.tasks.UpdateStatus(r.Context(), currentUser(r), id, body.Status)
	if err != nil {
		writeError(w, err, "Task")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "task": task, "message": "Task status updated successfully"})
}

func (h *Handler) taskStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.tasks.Statistics(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, err, "")
		return
	}
	writeJSON(w, http.StatusOK, envelope{"success": true, "statistics": stats, "message": "Statistics retrieved successfully"})
}
