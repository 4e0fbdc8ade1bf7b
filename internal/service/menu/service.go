// Package menu реализует каталог блюд филиала: добавление с проверкой
// временного окна меню, выборки по типу меню и фильтры по диете и
// категории.
package menu

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/restaurant-oms/internal/domain"
)

// Clock отдаёт текущее время. Подменяется в тестах, чтобы проверка
// окна меню не зависела от часа запуска.
type Clock func() time.Time

// Service управляет каталогом меню.
type Service struct {
	menu     domain.MenuItemRepository
	branches domain.BranchRepository
	clock    Clock
	logger   *log.Entry
}

// Option настраивает сервис меню.
type Option func(*Service)

// WithClock подменяет источник времени.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		s.clock = clock
	}
}

// NewService создаёт сервис каталога меню.
func NewService(
	menu domain.MenuItemRepository,
	branches domain.BranchRepository,
	logger *log.Entry,
	options ...Option,
) *Service {
	if logger == nil {
		logger = log.New().WithField("component", "menu_service")
	}
	s := &Service{
		menu:     menu,
		branches: branches,
		clock:    func() time.Time { return time.Now().UTC() },
		logger:   logger,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// AddItem добавляет блюдо в каталог филиала. Тип меню должен быть
// активен в момент добавления, иначе ErrMenuNotActive.
func (s *Service) AddItem(ctx context.Context, item domain.MenuItem) (domain.MenuItem, error) {
	if errs := item.Validate(); len(errs) != 0 {
		return domain.MenuItem{}, errors.Join(errs...)
	}
	if _, err := s.branches.Get(ctx, item.BranchID); err != nil {
		return domain.MenuItem{}, err
	}
	if !item.MenuType.ActiveAt(s.clock()) {
		return domain.MenuItem{}, fmt.Errorf("menu type %s: %w", item.MenuType, domain.ErrMenuNotActive)
	}

	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	item, err := s.menu.Save(ctx, item)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("persist menu item: %w", err)
	}

	s.logger.WithFields(log.Fields{
		"item_id": item.ID,
		"branch":  item.BranchID,
		"menu":    item.MenuType,
	}).Info("menu item added")

	return item, nil
}

// Get возвращает блюдо по идентификатору.
func (s *Service) Get(ctx context.Context, id string) (domain.MenuItem, error) {
	return s.menu.Get(ctx, id)
}

// GetByBranch возвращает доступные блюда филиала.
func (s *Service) GetByBranch(ctx context.Context, branchID string) ([]domain.MenuItem, error) {
	if _, err := s.branches.Get(ctx, branchID); err != nil {
		return nil, err
	}
	items, err := s.menu.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	available := items[:0:0]
	for _, item := range items {
		if item.Available {
			available = append(available, item)
		}
	}
	return available, nil
}

// FilterQuery — опциональные фильтры каталога по именам enum'ов.
// Пустое поле не ограничивает выборку; заполненные поля комбинируются.
type FilterQuery struct {
	MenuType string
	DietType string
	Category string
}

// Filter возвращает доступные блюда филиала, удовлетворяющие всем
// заданным фильтрам сразу.
func (s *Service) Filter(ctx context.Context, branchID string, query FilterQuery) ([]domain.MenuItem, error) {
	var (
		menuType domain.MenuType
		diet     domain.DietType
		category domain.Category
		err      error
	)
	if query.MenuType != "" {
		if menuType, err = domain.ParseMenuType(query.MenuType); err != nil {
			return nil, err
		}
	}
	if query.DietType != "" {
		if diet, err = domain.ParseDietType(query.DietType); err != nil {
			return nil, err
		}
	}
	if query.Category != "" {
		if category, err = domain.ParseCategory(query.Category); err != nil {
			return nil, err
		}
	}

	items, err := s.GetByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	filtered := items[:0:0]
	for _, item := range items {
		if query.MenuType != "" && item.MenuType != menuType {
			continue
		}
		if query.DietType != "" && item.DietType != diet {
			continue
		}
		if query.Category != "" && item.Category != category {
			continue
		}
		filtered = append(filtered, item)
	}
	return filtered, nil
}

// GetByType возвращает доступные блюда филиала для типа меню.
func (s *Service) GetByType(ctx context.Context, branchID, menuTypeName string) ([]domain.MenuItem, error) {
	return s.Filter(ctx, branchID, FilterQuery{MenuType: menuTypeName})
}

// FilterByDiet возвращает доступные блюда филиала с указанной диетой.
func (s *Service) FilterByDiet(ctx context.Context, branchID, dietName string) ([]domain.MenuItem, error) {
	return s.Filter(ctx, branchID, FilterQuery{DietType: dietName})
}

// FilterByCategory возвращает доступные блюда филиала указанной категории.
func (s *Service) FilterByCategory(ctx context.Context, branchID, categoryName string) ([]domain.MenuItem, error) {
	return s.Filter(ctx, branchID, FilterQuery{Category: categoryName})
}

// SetAvailability переключает доступность блюда.
func (s *Service) SetAvailability(ctx context.Context, id string, available bool) (domain.MenuItem, error) {
	item, err := s.menu.Get(ctx, id)
	if err != nil {
		return domain.MenuItem{}, err
	}
	item.Available = available
	item, err = s.menu.Save(ctx, item)
	if err != nil {
		return domain.MenuItem{}, fmt.Errorf("persist availability: %w", err)
	}
	return item, nil
}

// BulkUpdate сохраняет пачку блюд одного филиала. Валидация выполняется
// до первой записи: либо сохраняются все, либо ни одно.
func (s *Service) BulkUpdate(ctx context.Context, branchID string, items []domain.MenuItem) error {
	if _, err := s.branches.Get(ctx, branchID); err != nil {
		return err
	}
	for i := range items {
		items[i].BranchID = branchID
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		if errs := items[i].Validate(); len(errs) != 0 {
			return fmt.Errorf("item %s: %w", items[i].Name, errors.Join(errs...))
		}
	}
	for _, item := range items {
		if _, err := s.menu.Save(ctx, item); err != nil {
			return fmt.Errorf("persist menu item %s: %w", item.ID, err)
		}
	}
	s.logger.WithFields(log.Fields{
		"branch": branchID,
		"items":  len(items),
	}).Info("menu bulk updated")
	return nil
}
