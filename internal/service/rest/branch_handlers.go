package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/branch"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/menu"
)

type createBranchRequest struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

type branchStatusRequest struct {
	Active bool `json:"active"`
}

type branchResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Active   bool   `json:"active"`
}

func toBranchResponse(b domain.Branch) branchResponse {
	return branchResponse{ID: b.ID, Name: b.Name, Location: b.Location, Active: b.Active}
}

// BranchHandlers обслуживает справочник филиалов и меню филиала.
type BranchHandlers struct {
	branches *branch.Service
	catalog  *menu.Service
	logger   *log.Entry
}

func NewBranchHandlers(branches *branch.Service, catalog *menu.Service, logger *log.Entry) *BranchHandlers {
	return &BranchHandlers{branches: branches, catalog: catalog, logger: logger}
}

// Routes регистрирует эндпоинты под /branches.
func (h *BranchHandlers) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)
	r.Get("/{branchID}", h.get)
	r.Patch("/{branchID}/status", h.updateStatus)
	r.Delete("/{branchID}", h.delete)
	r.Get("/{branchID}/menu-items", h.listMenu)
}

func (h *BranchHandlers) create(w http.ResponseWriter, r *http.Request) {
	var req createBranchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	created, err := h.branches.Create(r.Context(), req.Name, req.Location)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBranchResponse(created))
}

func (h *BranchHandlers) list(w http.ResponseWriter, r *http.Request) {
	branches, err := h.branches.GetAll(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	result := make([]branchResponse, 0, len(branches))
	for _, b := range branches {
		result = append(result, toBranchResponse(b))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *BranchHandlers) get(w http.ResponseWriter, r *http.Request) {
	got, err := h.branches.Get(r.Context(), chi.URLParam(r, "branchID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchResponse(got))
}

func (h *BranchHandlers) updateStatus(w http.ResponseWriter, r *http.Request) {
	var req branchStatusRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.branches.UpdateStatus(r.Context(), chi.URLParam(r, "branchID"), req.Active)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBranchResponse(updated))
}

func (h *BranchHandlers) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.branches.Delete(r.Context(), chi.URLParam(r, "branchID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// listMenu возвращает меню филиала. Параметры type, diet и category
// комбинируются: позиция попадает в ответ, только если проходит все
// заданные фильтры; без параметров отдаются все доступные позиции.
func (h *BranchHandlers) listMenu(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	query := r.URL.Query()

	items, err := h.catalog.Filter(r.Context(), branchID, menu.FilterQuery{
		MenuType: query.Get("type"),
		DietType: query.Get("diet"),
		Category: query.Get("category"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	result := make([]menuItemResponse, 0, len(items))
	for _, item := range items {
		result = append(result, toMenuItemResponse(item))
	}
	writeJSON(w, http.StatusOK, result)
}
