package payment

// CreateOrderRequest: cashiers may omit pos_id and get their own terminal.
type CreateOrderRequest struct {
	PosID       int64  `json:"pos_id"`
	Amount      int64  `json:"amount" binding:"required,gt=0"`
	Currency    string `json:"currency" binding:"required,currency"`
	Description string `json:"description" binding:"max=500"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=paid cancelled"`
}
