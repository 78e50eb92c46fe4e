package request

// UpdateSettingsRequest replaces the shop details printed on receipts
type UpdateSettingsRequest struct {
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Footer  string `json:"footer"`
}
