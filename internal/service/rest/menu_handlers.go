package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
	"github.com/vladislavdragonenkov/restaurant-oms/internal/service/menu"
)

type menuItemRequest struct {
	BranchID        string `json:"branch_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PriceMinor      int64  `json:"price_minor"`
	PrepTimeMinutes int32  `json:"prep_time_minutes"`
	Category        string `json:"category"`
	DietType        string `json:"diet_type"`
	MenuType        string `json:"menu_type"`
	Available       bool   `json:"available"`
}

type bulkMenuRequest struct {
	BranchID string            `json:"branch_id"`
	Items    []menuItemRequest `json:"items"`
}

type availabilityRequest struct {
	Available bool `json:"available"`
}

type menuItemResponse struct {
	ID              string `json:"id"`
	BranchID        string `json:"branch_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	PriceMinor      int64  `json:"price_minor"`
	PrepTimeMinutes int32  `json:"prep_time_minutes"`
	Category        string `json:"category"`
	DietType        string `json:"diet_type"`
	MenuType        string `json:"menu_type"`
	Available       bool   `json:"available"`
}

func toMenuItemResponse(item domain.MenuItem) menuItemResponse {
	return menuItemResponse{
		ID:              item.ID,
		BranchID:        item.BranchID,
		Name:            item.Name,
		Description:     item.Description,
		PriceMinor:      item.PriceMinor,
		PrepTimeMinutes: item.PrepTimeMinutes,
		Category:        string(item.Category),
		DietType:        string(item.DietType),
		MenuType:        string(item.MenuType),
		Available:       item.Available,
	}
}

// toDomainMenuItem переводит запрос в доменную структуру. Теги перечислений
// проверяются парсерами, чтобы неизвестные значения давали 400, а не
// тихо сохранялись.
func toDomainMenuItem(req menuItemRequest) (domain.MenuItem, error) {
	category, err := domain.ParseCategory(req.Category)
	if err != nil {
		return domain.MenuItem{}, err
	}
	diet, err := domain.ParseDietType(req.DietType)
	if err != nil {
		return domain.MenuItem{}, err
	}
	menuType, err := domain.ParseMenuType(req.MenuType)
	if err != nil {
		return domain.MenuItem{}, err
	}

	return domain.MenuItem{
		BranchID:        req.BranchID,
		Name:            req.Name,
		Description:     req.Description,
		PriceMinor:      req.PriceMinor,
		PrepTimeMinutes: req.PrepTimeMinutes,
		Category:        category,
		DietType:        diet,
		MenuType:        menuType,
		Available:       req.Available,
	}, nil
}

// MenuHandlers обслуживает каталог позиций меню.
type MenuHandlers struct {
	catalog *menu.Service
	logger  *log.Entry
}

func NewMenuHandlers(catalog *menu.Service, logger *log.Entry) *MenuHandlers {
	return &MenuHandlers{catalog: catalog, logger: logger}
}

// Routes регистрирует эндпоинты под /menu-items.
func (h *MenuHandlers) Routes(r chi.Router) {
	r.Post("/", h.add)
	r.Post("/bulk", h.bulkUpdate)
	r.Get("/{itemID}", h.get)
	r.Patch("/{itemID}/availability", h.setAvailability)
}

func (h *MenuHandlers) add(w http.ResponseWriter, r *http.Request) {
	var req menuItemRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	item, err := toDomainMenuItem(req)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := h.catalog.AddItem(r.Context(), item)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMenuItemResponse(created))
}

func (h *MenuHandlers) bulkUpdate(w http.ResponseWriter, r *http.Request) {
	var req bulkMenuRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	items := make([]domain.MenuItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		item, err := toDomainMenuItem(itemReq)
		if err != nil {
			writeError(w, err)
			return
		}
		items = append(items, item)
	}

	if err := h.catalog.BulkUpdate(r.Context(), req.BranchID, items); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

func (h *MenuHandlers) get(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.Get(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(item))
}

func (h *MenuHandlers) setAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := h.catalog.SetAvailability(r.Context(), chi.URLParam(r, "itemID"), req.Available)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toMenuItemResponse(updated))
}
