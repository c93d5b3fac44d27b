package db

// Operator is any node in a query plan: something that can describe its
// output shape and produce a pull-based iterator over TransactionId tid.
type Operator interface {
	Descriptor() *TupleDesc
	Iterator(tid TransactionId) (func() (*Tuple, error), error)
}
