package dto

type AddItemRequest struct {
	OfferID  uint `json:"offer_id" validate:"required"`
	Quantity int  `json:"quantity" validate:"required,gt=0"`
}

type UpdateItemRequest struct {
	Quantity int `json:"quantity"`
}

type CheckoutRequest struct {
	CartID       uint   `json:"cart_id" validate:"required"`
	PaymentToken string `json:"payment_token" validate:"required"`
}

type ScanRequest struct {
	QRCode string `json:"qr_code" validate:"required"`
}
