package rental

type CreateRentalReq struct {
	UserID int64 `json:"user_id" validate:"omitempty,gt=0"`
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
}

// UpdateRentalReq is a partial update: omitted fields keep their
// stored values.
type UpdateRentalReq struct {
	DueDate    string   `json:"due_date" validate:"omitempty"`
	ReturnDate *string  `json:"return_date" validate:"omitempty"`
	LateFee    *float64 `json:"late_fee" validate:"omitempty,gte=0"`
}
