package domain

const (
	EventProductCreated = "ProductCreated"
	EventProductUpdated = "ProductUpdated"
	EventProductDeleted = "ProductDeleted"
	EventSellerCreated  = "SellerCreated"
)

type ProductUpdatedEvent struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       int64  `json:"price"`
	// Matched is false when no row had the id; the update still reports success.
	Matched bool `json:"matched"`
}

type ProductDeletedEvent struct {
	ID      int64 `json:"id"`
	Matched bool  `json:"matched"`
}
