package httpapi

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/passvault/internal/common"
	"github.com/dmitrijs2005/passvault/internal/server/models"
	"github.com/dmitrijs2005/passvault/internal/server/services"
	"github.com/go-chi/chi/v5"
)

// EntriesAPI is the subset of services.EntryService served over HTTP.
type EntriesAPI interface {
	Create(ctx context.Context, userID string, e models.Entry) (*models.Entry, error)
	Update(ctx context.Context, userID, id string, e models.Entry) (*models.Entry, error)
	Get(ctx context.Context, userID, id string) (*models.Entry, error)
	List(ctx context.Context, userID string) ([]*models.Entry, error)
	Delete(ctx context.Context, userID, id string) error
}

type EntryRequest struct {
	Title    string `json:"title" validate:"required,max=255"`
	URL      string `json:"url" validate:"omitempty,url,max=2048"`
	Username string `json:"username" validate:"max=255"`
	Password string `json:"password" validate:"max=1024"`
	Notes    string `json:"notes" validate:"max=10000"`
}

func (r EntryRequest) entry() models.Entry {
	return models.Entry{Title: r.Title, URL: r.URL, Username: r.Username, Password: r.Password, Notes: r.Notes}
}

// owner resolves the caller from the bearer token. On failure it has
// already written a 401.
func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (string, bool) {
	p, err := h.svc.Principal(r.Header.Get(common.AuthorizationHeaderName))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized", services.MessageTokenInvalid)
		return "", false
	}
	return p.ID, true
}

func (h *Handler) ListEntries(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	list, err := h.entries.List(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if list == nil {
		list = []*models.Entry{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.entries.Create(r.Context(), userID, req.entry())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) GetEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	e, err := h.entries.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	var req EntryRequest
	if !h.decode(w, r, &req) {
		return
	}
	e, err := h.entries.Update(r.Context(), userID, chi.URLParam(r, "id"), req.entry())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.owner(w, r)
	if !ok {
		return
	}
	if err := h.entries.Delete(r.Context(), userID, chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
