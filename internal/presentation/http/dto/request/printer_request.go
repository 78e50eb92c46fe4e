package request

// PrintOptions are sent with every print request.
type PrintOptions struct {
	// Direct asks for the device link instead of the host spooler.
	Direct bool `json:"direct"`
	// Device is the port picked in the printer dialog.
	Device string `json:"device"`
	// Cancelled is set when the operator dismissed the printer dialog.
	Cancelled bool `json:"cancelled"`
}

// PrintReceiptRequest is the request body for printing a receipt.
type PrintReceiptRequest struct {
	OrderID int64 `json:"order_id" binding:"required,min=1"`
	PrintOptions
}
