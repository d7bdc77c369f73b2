package domain

type Product struct {
	ID          int64  `json:"id" db:"id"`
	Name        string `json:"name" db:"name"`
	Description string `json:"description" db:"description"`
	Price       int64  `json:"price" db:"price"`
	SellerID    int64  `json:"seller_id" db:"seller_id"`
}

// ProductInput is the body of both create and update. Every field is
// required; an update overwrites all three.
type ProductInput struct {
	Name        *string `json:"name" validate:"required"`
	Description *string `json:"description" validate:"required"`
	Price       *int64  `json:"price" validate:"required"`
}

type Seller struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Age      int32  `json:"age" db:"age"`
	Email    string `json:"email" db:"email"`
}

type SellerInput struct {
	Username *string `json:"username" validate:"required"`
	Age      *int32  `json:"age" validate:"required"`
	Email    *string `json:"email" validate:"required"`
}

// Login is accepted and echoed back unchanged. Nothing is stored or checked.
type Login struct {
	Username *string `json:"username" validate:"required"`
	Password *string `json:"password" validate:"required"`
}
