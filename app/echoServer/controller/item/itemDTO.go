package item

type CreateItemReq struct {
	Title             string `json:"title" validate:"required,max=255"`
	Barcode           string `json:"barcode" validate:"required,max=100"`
	AllowedRentalDays int    `json:"allowed_rental_days" validate:"omitempty,gt=0"`
}
