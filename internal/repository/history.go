package repository

// History is the operation log: committed transactions and a cursor separating done from undone ones
type History struct {
	entries   []*Transaction
	cursor    int
	savedMark int
	limit     int
}

// NewHistory creates an empty history. A limit of 0 keeps every transaction.
func NewHistory(limit int) *History {
	return &History{limit: limit}
}

// Add records tx at the cursor, discarding the undone tail
func (h *History) Add(tx *Transaction) {
	if h.savedMark > h.cursor {
		h.savedMark = -1
	}
	h.entries = append(h.entries[:h.cursor:h.cursor], tx)
	h.cursor++
	h.trim()
}

func (h *History) trim() {
	if h.limit <= 0 || len(h.entries) <= h.limit {
		return
	}
	drop := len(h.entries) - h.limit
	h.entries = append([]*Transaction(nil), h.entries[drop:]...)
	h.cursor -= drop
	if h.savedMark >= 0 {
		h.savedMark -= drop
		if h.savedMark < 0 {
			h.savedMark = -1
		}
	}
}

// SetLimit changes the maximum number of kept transactions
func (h *History) SetLimit(limit int) {
	h.limit = limit
	h.trim()
}

// Reset clears the history and marks the empty state as saved
func (h *History) Reset() {
	h.entries = nil
	h.cursor = 0
	h.savedMark = 0
}

// CanUndo reports whether a transaction precedes the cursor
func (h *History) CanUndo() bool { return h.cursor > 0 }

// CanRedo reports whether a transaction follows the cursor
func (h *History) CanRedo() bool { return h.cursor < len(h.entries) }

// Previous returns the transaction undo would revert
func (h *History) Previous() *Transaction {
	if !h.CanUndo() {
		return nil
	}
	return h.entries[h.cursor-1]
}

// Next returns the transaction redo would re-apply
func (h *History) Next() *Transaction {
	if !h.CanRedo() {
		return nil
	}
	return h.entries[h.cursor]
}

// StepBack moves the cursor one transaction back
func (h *History) StepBack() {
	if h.CanUndo() {
		h.cursor--
	}
}

// StepForward moves the cursor one transaction forward
func (h *History) StepForward() {
	if h.CanRedo() {
		h.cursor++
	}
}

// MarkSaved records the cursor as the saved position
func (h *History) MarkSaved() { h.savedMark = h.cursor }

// Invalidate makes the saved position unreachable
func (h *History) Invalidate() { h.savedMark = -1 }

// AtSaved reports whether the cursor is at the saved position
func (h *History) AtSaved() bool { return h.savedMark == h.cursor }

// Len returns the number of recorded transactions
func (h *History) Len() int { return len(h.entries) }

// Cursor returns the number of done transactions
func (h *History) Cursor() int { return h.cursor }
