package customer

import (
	"context"
	"errors"
	"strings"

	"github.com/duongdev/nv-internal-sub007/internal/infrastructure/persistence/postgres/connection"
	"gorm.io/gorm"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrLocationNotFound = errors.New("geo location not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// Repository defines persistence operations for reference entities.
// Customers and locations are deduplicated at creation time and treated as
// immutable afterwards.
type Repository interface {
	FindOrCreateCustomer(ctx context.Context, name, phone string) (*Customer, error)
	FindCustomerByID(ctx context.Context, id uint) (*Customer, error)
	FindOrCreateLocation(ctx context.Context, address string, lat, lng float64) (*GeoLocation, error)
	FindLocationByID(ctx context.Context, id uint) (*GeoLocation, error)
}

type repository struct {
	db *connection.Database
}

func NewRepository(db *connection.Database) Repository {
	return &repository{db: db}
}

func (r *repository) FindOrCreateCustomer(ctx context.Context, name, phone string) (*Customer, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return nil, ErrInvalidInput
	}

	customer := Customer{Name: name, Phone: phone}
	err := r.db.WithContext(ctx).
		Where("name = ? AND phone = ?", name, phone).
		FirstOrCreate(&customer).Error
	if err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindCustomerByID(ctx context.Context, id uint) (*Customer, error) {
	var customer Customer
	result := r.db.WithContext(ctx).First(&customer, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrCustomerNotFound
		}
		return nil, result.Error
	}
	return &customer, nil
}

func (r *repository) FindOrCreateLocation(ctx context.Context, address string, lat, lng float64) (*GeoLocation, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, ErrInvalidInput
	}

	location := GeoLocation{Address: address, Lat: lat, Lng: lng}
	err := r.db.WithContext(ctx).
		Where("address = ?", address).
		FirstOrCreate(&location).Error
	if err != nil {
		return nil, err
	}
	return &location, nil
}

func (r *repository) FindLocationByID(ctx context.Context, id uint) (*GeoLocation, error) {
	var location GeoLocation
	result := r.db.WithContext(ctx).First(&location, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrLocationNotFound
		}
		return nil, result.Error
	}
	return &location, nil
}
