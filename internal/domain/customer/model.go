package customer

import (
	"time"
)

// Customer is a reference entity linked from work orders. Its name and phone
// feed the order's searchable text.
type Customer struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Name      string    `json:"name" gorm:"not null;index:idx_customer_name"`
	Phone     string    `json:"phone" gorm:"index:idx_customer_phone"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Customer model
func (Customer) TableName() string {
	return "customers"
}

// GeoLocation is a reference entity for a work-order site. The address feeds
// the order's searchable text.
type GeoLocation struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Address   string    `json:"address" gorm:"not null;index:idx_geo_location_address"`
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the GeoLocation model
func (GeoLocation) TableName() string {
	return "geo_locations"
}
