package db

import "sort"

// OrderBy sorts its child's tuples by one or more fields, each ascending or
// descending independently, before yielding any of them.
type OrderBy struct {
	orderBy   []Expr
	child     Operator
	ascending []bool
}

// NewOrderBy constructs an order-by operator. orderByFields are evaluated
// against each child tuple; ascending[i] selects ascending (true) or
// descending (false) order for orderByFields[i]. Ties are broken by the
// next field in the list.
func NewOrderBy(orderByFields []Expr, child Operator, ascending []bool) (*OrderBy, error) {
	return &OrderBy{orderBy: orderByFields, child: child, ascending: ascending}, nil
}

// Descriptor is unchanged from the child: ordering changes row order, not
// shape.
func (o *OrderBy) Descriptor() *TupleDesc {
	return o.child.Descriptor()
}

// multiSorter implements sort.Interface over a slice of tuples, comparing
// lexicographically across a list of (expr, ascending) keys.
type multiSorter struct {
	data      []Tuple
	orderBy   []Expr
	ascending []bool
}

func (ms *multiSorter) Swap(i, j int) {
	ms.data[i], ms.data[j] = ms.data[j], ms.data[i]
}

func (ms *multiSorter) Len() int {
	return len(ms.data)
}

// Less loops through the ordering keys until one discriminates between the
// two tuples, falling back to the last key if all prior ones tie.
func (ms *multiSorter) Less(i, j int) bool {
	p, q := &ms.data[i], &ms.data[j]
	var k int
	for k = 0; k < len(ms.orderBy)-1; k++ {
		orderBy := ms.orderBy[k]
		var cmp orderByState
		if ms.ascending[k] {
			cmp, _ = p.compareField(q, orderBy)
		} else {
			cmp, _ = q.compareField(p, orderBy)
		}
		switch cmp {
		case OrderedLessThan:
			return true
		case OrderedGreaterThan:
			return false
		}
	}
	var cmp orderByState
	if ms.ascending[k] {
		cmp, _ = p.compareField(q, ms.orderBy[k])
	} else {
		cmp, _ = q.compareField(p, ms.orderBy[k])
	}
	return cmp == OrderedLessThan
}

// Sort sorts data in place according to ms's ordering keys.
func (ms *multiSorter) Sort(data []Tuple) {
	ms.data = data
	sort.Sort(ms)
}

// OrderedBy returns a reusable sorter for the given ordering keys.
func OrderedBy(orderBy []Expr, ascending []bool) *multiSorter {
	return &multiSorter{orderBy: orderBy, ascending: ascending}
}

// Iterator is blocking: it drains the child fully, sorts the result in
// memory, and then yields tuples one at a time from that sorted slice.
func (o *OrderBy) Iterator(tid TransactionId) (func() (*Tuple, error), error) {
	sorted := []Tuple{}

	it, err := o.child.Iterator(tid)
	if err != nil {
		return nil, err
	}

	for {
		tuple, err := it()
		if err != nil {
			return nil, err
		}
		if tuple == nil {
			break
		}
		sorted = append(sorted, *tuple)
	}

	if len(o.orderBy) > 0 {
		OrderedBy(o.orderBy, o.ascending).Sort(sorted)
	}

	i := 0
	return func() (*Tuple, error) {
		if i >= len(sorted) {
			return nil, nil
		}
		retVal := sorted[i]
		i++
		return &retVal, nil
	}, nil
}
