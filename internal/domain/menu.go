package domain

import (
	"strings"
	"time"
)

// MenuType делит меню по времени суток. Каждый тип активен в своём окне.
type MenuType string

const (
	MenuTypeBreakfast MenuType = "BREAKFAST"
	MenuTypeLunch     MenuType = "LUNCH"
	MenuTypeDinner    MenuType = "DINNER"
)

// menuWindows задаёт часы действия каждого типа меню (включительно).
var menuWindows = map[MenuType][2]int{
	MenuTypeBreakfast: {6, 11},
	MenuTypeLunch:     {11, 16},
	MenuTypeDinner:    {16, 22},
}

// ParseMenuType распознаёт тип меню без учёта регистра.
func ParseMenuType(name string) (MenuType, error) {
	switch MenuType(strings.ToUpper(strings.TrimSpace(name))) {
	case MenuTypeBreakfast:
		return MenuTypeBreakfast, nil
	case MenuTypeLunch:
		return MenuTypeLunch, nil
	case MenuTypeDinner:
		return MenuTypeDinner, nil
	default:
		return "", ErrInvalidMenuType
	}
}

// ActiveAt сообщает, действует ли тип меню в указанный момент времени.
func (t MenuType) ActiveAt(at time.Time) bool {
	window, ok := menuWindows[t]
	if !ok {
		return false
	}
	hour := at.Hour()
	return hour >= window[0] && hour <= window[1]
}

// DietType классифицирует позицию меню по типу питания.
type DietType string

const (
	DietTypeVeg    DietType = "VEG"
	DietTypeNonVeg DietType = "NON_VEG"
	DietTypeVegan  DietType = "VEGAN"
)

// ParseDietType распознаёт тип питания без учёта регистра.
func ParseDietType(name string) (DietType, error) {
	switch DietType(strings.ToUpper(strings.TrimSpace(name))) {
	case DietTypeVeg:
		return DietTypeVeg, nil
	case DietTypeNonVeg:
		return DietTypeNonVeg, nil
	case DietTypeVegan:
		return DietTypeVegan, nil
	default:
		return "", ErrInvalidDietType
	}
}

// Category группирует позиции меню по разделам.
type Category string

const (
	CategoryStarter    Category = "STARTER"
	CategoryMainCourse Category = "MAIN_COURSE"
	CategoryDessert    Category = "DESSERT"
	CategoryBeverage   Category = "BEVERAGE"
)

// ParseCategory распознаёт раздел меню без учёта регистра.
func ParseCategory(name string) (Category, error) {
	switch Category(strings.ToUpper(strings.TrimSpace(name))) {
	case CategoryStarter:
		return CategoryStarter, nil
	case CategoryMainCourse:
		return CategoryMainCourse, nil
	case CategoryDessert:
		return CategoryDessert, nil
	case CategoryBeverage:
		return CategoryBeverage, nil
	default:
		return "", ErrInvalidCategory
	}
}

// MenuItem — позиция каталога меню, привязанная к филиалу.
type MenuItem struct {
	ID          string
	BranchID    string
	Name        string
	Description string
	PriceMinor  int64
	// PrepTimeMinutes — ориентировочное время приготовления.
	PrepTimeMinutes int32
	Category        Category
	DietType        DietType
	MenuType        MenuType
	Available       bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Validate проверяет обязательные поля позиции меню.
func (m *MenuItem) Validate() []error {
	var errs []error

	if m.Name == "" {
		errs = append(errs, ErrMenuItemNameRequired)
	}
	if m.BranchID == "" {
		errs = append(errs, ErrBranchRequired)
	}
	if m.PriceMinor < 0 {
		errs = append(errs, ErrItemPriceInvalid)
	}
	if _, err := ParseMenuType(string(m.MenuType)); err != nil {
		errs = append(errs, ErrInvalidMenuType)
	}
	if _, err := ParseDietType(string(m.DietType)); err != nil {
		errs = append(errs, ErrInvalidDietType)
	}
	if _, err := ParseCategory(string(m.Category)); err != nil {
		errs = append(errs, ErrInvalidCategory)
	}

	return errs
}
