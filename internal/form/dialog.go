package form

import "fintrack/internal/core"

// Dialog is the state of a transaction dialog. Exactly one variant is live
// at a time, so an open dialog can never carry stale edit data.
type Dialog interface {
	isDialog()
}

type (
	// Closed means no dialog is shown.
	Closed struct{}
	// OpenAdd is an empty form for a new transaction.
	OpenAdd struct{}
	// OpenEdit is a form pre-populated from an existing record.
	OpenEdit struct{ Record core.Transaction }
	// Confirming shows a record read-only before deleting it.
	Confirming struct{ Record core.Transaction }
)

func (Closed) isDialog()     {}
func (OpenAdd) isDialog()    {}
func (OpenEdit) isDialog()   {}
func (Confirming) isDialog() {}

// IsOpen reports whether d shows anything.
func IsOpen(d Dialog) bool {
	_, closed := d.(Closed)
	return d != nil && !closed
}
