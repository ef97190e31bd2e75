package profile

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"chatroom/internal/middleware"
	"chatroom/internal/relation"
)

type Handler struct {
	Service *Service
}

func NewHandler(s *Service) *Handler {
	return &Handler{Service: s}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrProfileNotFound), errors.Is(err, ErrRequestNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrSelfRequest), errors.Is(err, ErrAlreadyFriends),
		errors.Is(err, ErrRelationExists), errors.Is(err, ErrNotFriend),
		errors.Is(err, ErrBadStatus):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.List(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}

	p, err := h.Service.Get(r.Context(), userID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	if caller != userID {
		http.Error(w, "you may only edit your own profile", http.StatusForbidden)
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.Service.Update(r.Context(), userID, &req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) AddFriend(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	req, err := h.Service.AddFriend(r.Context(), caller, targetID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) DeleteFriend(w http.ResponseWriter, r *http.Request) {
	targetID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	if err := h.Service.DeleteFriend(r.Context(), caller, targetID); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RequestsFrom(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	reqs, err := h.Service.RequestsFrom(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) RequestsTo(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	reqs, err := h.Service.RequestsTo(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) Retract(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	if err := h.Service.Retract(r.Context(), id, caller); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid request id", http.StatusBadRequest)
		return
	}
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	status, err := relation.Parse(body.Status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if err := h.Service.Resolve(r.Context(), id, caller, status); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
