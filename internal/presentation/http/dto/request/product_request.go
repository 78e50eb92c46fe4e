package request

import "github.com/shopspring/decimal"

// CreateProductRequest represents a product creation request
type CreateProductRequest struct {
	Name   string          `json:"name" binding:"required,min=1,max=255"`
	Price  decimal.Decimal `json:"price"`
	Profit decimal.Decimal `json:"profit"`
}

// ProductFilterRequest represents product list parameters
type ProductFilterRequest struct {
	Page    int `form:"page"`
	PerPage int `form:"per_page"`
}
