package categories

import "github.com/Veraticus/financas/internal/model"

// Fixture represents a predefined category tree for testing.
type Fixture interface {
	// Name returns the fixture's descriptive name.
	Name() string

	entries() []entry
}

type fixture struct {
	name  string
	items []entry
}

func (f *fixture) Name() string     { return f.name }
func (f *fixture) entries() []entry { return f.items }

// Predefined fixtures for common test scenarios.
var (
	// FixtureBasic has one receipt root and a small expense tree.
	FixtureBasic = &fixture{
		name: "Basic",
		items: []entry{
			{name: CategorySalary, kind: model.KindReceipt},
			{name: CategoryFood, kind: model.KindExpense},
			{name: CategoryGroceries, parent: CategoryFood},
			{name: CategoryTransport, kind: model.KindExpense},
		},
	}

	// FixtureHousehold is a three level expense tree plus bank categories.
	FixtureHousehold = &fixture{
		name: "Household",
		items: []entry{
			{name: CategorySalary, kind: model.KindReceipt},
			{name: CategoryInterest, kind: model.KindReceipt},
			{name: CategoryHousing, kind: model.KindExpense},
			{name: CategoryRent, parent: CategoryHousing},
			{name: CategoryFood, kind: model.KindExpense},
			{name: CategoryGroceries, parent: CategoryFood},
			{name: CategoryRestaurants, parent: CategoryFood},
			{name: CategoryBankFees, kind: model.KindExpense},
			{name: CategoryWithdrawals, kind: model.KindExpense},
			{name: CategoryTransfers, kind: model.KindTransfer},
		},
	}
)
