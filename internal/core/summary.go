package core

import "sort"

// CategoryAmount is an amount aggregated by category name.
type CategoryAmount struct {
	Name   string
	Amount Money
}

// MonthSummary is a compact income/expense summary for a year+month, the
// shape the dashboard layer renders: totals plus an expense breakdown by
// category, largest first.
type MonthSummary struct {
	Year       int
	Month      int // 1-12
	Income     Money
	Expense    Money
	Net        Money
	ByCategory []CategoryAmount
}

// Summarize aggregates the given records into a MonthSummary. Records are
// assumed to be pre-filtered to the requested month; the function only sums.
func Summarize(year, month int, records []Record) MonthSummary {
	s := MonthSummary{Year: year, Month: month}
	byCat := make(map[string]int64)
	for _, r := range records {
		switch r.Type {
		case Income:
			s.Income.Cents += r.Amount.Cents
		case Expense:
			s.Expense.Cents += r.Amount.Cents
			byCat[r.Category] += r.Amount.Cents
		}
	}
	s.Net = Money{Cents: s.Income.Cents - s.Expense.Cents}
	for name, cents := range byCat {
		s.ByCategory = append(s.ByCategory, CategoryAmount{Name: name, Amount: Money{Cents: cents}})
	}
	sort.Slice(s.ByCategory, func(i, j int) bool {
		if s.ByCategory[i].Amount.Cents != s.ByCategory[j].Amount.Cents {
			return s.ByCategory[i].Amount.Cents > s.ByCategory[j].Amount.Cents
		}
		return s.ByCategory[i].Name < s.ByCategory[j].Name
	})
	return s
}
