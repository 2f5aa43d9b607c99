package core

// CategoryTotal is the amount of one type accumulated under one category.
// A category holding both income and expenses yields two totals.
type CategoryTotal struct {
	Category Category
	Type     Type
	Amount   Money
}

// Summary holds the aggregate totals of a set of transactions.
type Summary struct {
	Income     Money
	Expenses   Money
	NetSavings Money
	Count      int
	// ByCategory follows CategoryOptions order, income before expense, and
	// omits empty totals.
	ByCategory []CategoryTotal
}

// Summarize totals income and expenses in integer cents.
func Summarize(txs []Transaction) Summary {
	var s Summary
	type key struct {
		cat Category
		typ Type
	}
	byCat := make(map[key]int64, len(CategoryOptions))
	for _, t := range txs {
		switch t.Type {
		case Income:
			s.Income = s.Income.Add(t.Amount)
		case Expense:
			s.Expenses = s.Expenses.Add(t.Amount)
		default:
			continue
		}
		byCat[key{t.Category, t.Type}] += t.Amount.Cents
		s.Count++
	}
	s.NetSavings = s.Income.Sub(s.Expenses)
	for _, o := range CategoryOptions {
		for _, typ := range []Type{Income, Expense} {
			cat := Category(o.Value)
			if cents := byCat[key{cat, typ}]; cents != 0 {
				s.ByCategory = append(s.ByCategory, CategoryTotal{Category: cat, Type: typ, Amount: Money{Cents: cents}})
			}
		}
	}
	return s
}

// SummarizeMonth totals only the transactions that fall in w.
func SummarizeMonth(txs []Transaction, w MonthWindow) Summary {
	in := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		if w.Contains(t.Date) {
			in = append(in, t)
		}
	}
	return Summarize(in)
}
