package request

// AddCartItemRequest adds a catalog product to a cart
type AddCartItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required,min=1"`
	Quantity  int   `json:"quantity" binding:"required,min=1"`
}

// SetQuantityRequest changes a line's quantity; zero removes the line
type SetQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required,min=0"`
}

// SetBillDateRequest backdates a cart. An empty date clears it.
type SetBillDateRequest struct {
	BillDate string `json:"bill_date" binding:"omitempty,datetime=2006-01-02"`
}
