package view

import "fintrack/internal/core"

const EmptyPlaceholder = "No transactions found"

// Row is one grid line. Record is the full transaction handed to the edit
// and delete dialogs.
type Row struct {
	ID          int64
	Type        string
	Amount      string
	Date        string
	Category    string
	Description string
	IsIncome    bool
	Record      core.Transaction
}

type Grid struct {
	Rows        []Row
	Empty       bool
	Placeholder string
}

func NewRow(t core.Transaction) Row {
	return Row{
		ID:          t.ID,
		Type:        Capitalize(string(t.Type)),
		Amount:      FormatAmount(t.Amount),
		Date:        FormatDate(t.Date),
		Category:    Capitalize(string(t.Category)),
		Description: DescriptionOrNA(t.Description),
		IsIncome:    t.Type == core.Income,
		Record:      t,
	}
}

func NewGrid(txs []core.Transaction) Grid {
	g := Grid{Rows: make([]Row, 0, len(txs))}
	for _, t := range txs {
		g.Rows = append(g.Rows, NewRow(t))
	}
	if len(g.Rows) == 0 {
		g.Empty = true
		g.Placeholder = EmptyPlaceholder
	}
	return g
}
