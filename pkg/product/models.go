package product

// Product is the canonical persisted record. ProductID is assigned by the
// external source and immutable once stored; Viewed is only ever set through
// the mark-viewed action, never by an upsert.
type Product struct {
	ProductID         string  `json:"product_id" gorm:"primaryKey;column:product_id"`
	ProductName       string  `json:"product_name" gorm:"column:product_name;not null"`
	ProductPrice      string  `json:"product_price" gorm:"column:product_price;not null"`
	ProductStarRating *string `json:"product_star_rating" gorm:"column:product_star_rating"`
	Viewed            bool    `json:"viewed" gorm:"column:viewed;default:false"`
}

func (Product) TableName() string {
	return "products"
}

// Listing is one raw entry from the search response, prior to validation.
// It only lives inside a single pipeline call.
type Listing struct {
	ASIN       string `json:"asin"`
	Title      string `json:"product_title"`
	Price      string `json:"product_price"`
	StarRating string `json:"product_star_rating"`
}
