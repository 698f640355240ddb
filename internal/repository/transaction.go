package repository

// Transaction is an ordered, non-empty list of operations recorded as one undo step
type Transaction struct {
	Name       string
	Operations []*Operation
}

// NewTransaction creates a named transaction from ops
func NewTransaction(name string, ops ...*Operation) *Transaction {
	return &Transaction{Name: name, Operations: ops}
}

// Add appends an operation
func (tx *Transaction) Add(op *Operation) *Transaction {
	tx.Operations = append(tx.Operations, op)
	return tx
}

// Len returns the number of operations
func (tx *Transaction) Len() int {
	return len(tx.Operations)
}

// Inverse returns the transaction undoing tx: every operation inverted, in reverse order
func (tx *Transaction) Inverse() *Transaction {
	inv := &Transaction{Name: tx.Name, Operations: make([]*Operation, 0, len(tx.Operations))}
	for i := len(tx.Operations) - 1; i >= 0; i-- {
		inv.Operations = append(inv.Operations, tx.Operations[i].Inverse())
	}
	return inv
}

// Elements returns the distinct elements changed by the transaction, in operation order
func (tx *Transaction) Elements() []*Element {
	seen := make(map[*Element]bool)
	var out []*Element
	for _, op := range tx.Operations {
		if op.Element != nil && !seen[op.Element] {
			seen[op.Element] = true
			out = append(out, op.Element)
		}
	}
	return out
}
