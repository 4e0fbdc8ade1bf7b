package domain

import "time"

// Branch — физическая точка ресторана. Заказы и меню привязаны к филиалу.
type Branch struct {
	ID       string
	Name     string
	Location string
	// Active — закрытый филиал не принимает новые заказы.
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate проверяет обязательные поля филиала.
func (b *Branch) Validate() []error {
	var errs []error

	if b.Name == "" {
		errs = append(errs, ErrBranchNameRequired)
	}
	if b.Location == "" {
		errs = append(errs, ErrBranchLocationRequired)
	}

	return errs
}
