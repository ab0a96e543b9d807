package inventory

import "fmt"

type OutOfStockItem struct {
	ProductID string
	Requested int
	Available int
}

type OutOfStockError struct {
	Items []OutOfStockItem
}

func (e *OutOfStockError) Error() string {
	if len(e.Items) == 0 {
		return "insufficient stock"
	}
	it := e.Items[0]
	return fmt.Sprintf("insufficient stock: product=%s requested=%d available=%d", it.ProductID, it.Requested, it.Available)
}
