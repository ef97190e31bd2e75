package room

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
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrInviteNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNotOwner), errors.Is(err, ErrNotMember):
		return http.StatusForbidden
	case errors.Is(err, ErrReservedSlug), errors.Is(err, ErrSlugTaken),
		errors.Is(err, ErrAlreadyMember), errors.Is(err, ErrInviteToOwner),
		errors.Is(err, ErrInviteExists), errors.Is(err, ErrMembersGrow),
		errors.Is(err, ErrBadStatus), errors.Is(err, ErrBadPagination):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	rooms, err := h.Service.List(r.Context(), caller, r.URL.Query().Get("search"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rooms)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rm, err := h.Service.Create(r.Context(), caller, &req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, rm)
}

func (h *Handler) Retrieve(w http.ResponseWriter, r *http.Request) {
	rm, err := h.Service.Get(r.Context(), chi.URLParam(r, "roomSlug"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	var req UpdateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rm, err := h.Service.Update(r.Context(), caller, chi.URLParam(r, "roomSlug"), &req)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, rm)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	if err := h.Service.Delete(r.Context(), caller, chi.URLParam(r, "roomSlug")); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Invite(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)

	var req InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	invites, err := h.Service.Invite(r.Context(), caller, chi.URLParam(r, "roomSlug"), req.InviteObjects)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusCreated, invites)
}

func (h *Handler) InvitesFrom(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	invites, err := h.Service.InvitesFrom(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *Handler) InvitesTo(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	invites, err := h.Service.InvitesTo(r.Context(), caller)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	writeJSON(w, http.StatusOK, invites)
}

func (h *Handler) Retract(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid invite id", http.StatusBadRequest)
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
		http.Error(w, "invalid invite id", http.StatusBadRequest)
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

func (h *Handler) LazyLoadMessages(w http.ResponseWriter, r *http.Request) {
	caller, _ := r.Context().Value(middleware.UserKey).(int)
	q := r.URL.Query()

	messages, noMoreData, err := h.Service.LazyLoadMessages(
		r.Context(), caller, chi.URLParam(r, "roomSlug"), q.Get("limit"), q.Get("offset"))
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"messages":     messages,
		"no_more_data": noMoreData,
	})
}
