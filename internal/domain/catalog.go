package domain

import "time"

// Course is the slice of the catalog the payment core needs: price, currency
// and the active flag. Catalog management itself lives outside this service.
type Course struct {
	ID         int64
	Slug       string
	Title      string
	PriceCents int64
	Currency   string
	IsActive   bool
	CreatedAt  time.Time
}

// User carries just enough for existence checks and notification addressing.
type User struct {
	ID    int64
	Email string
}

// Cart holds the courses a user intends to purchase in one charge.
type Cart struct {
	ID        int64
	UserID    int64
	CreatedAt time.Time
}

type CartItem struct {
	ID        int64
	CartID    int64
	CourseID  int64
	CreatedAt time.Time
}
