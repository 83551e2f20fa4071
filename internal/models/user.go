package models

import (
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

type User struct {
	gorm.Model
	Email        string `json:"email" gorm:"column:email;unique;not null"`
	FullName     string `json:"fullName" gorm:"column:full_name;not null"`
	PhoneNumber  string `json:"phoneNumber" gorm:"column:phone_number"`
	Password     string `json:"-" gorm:"-"` // Temporary field for password handling
	PasswordHash string `json:"-" gorm:"column:password_hash;not null"`
	Role         Role   `json:"role" gorm:"column:role;not null"`
	IsActive     bool   `json:"isActive" gorm:"column:is_active;not null;default:true"`
}

// TableName specifies the table name
func (User) TableName() string {
	return "users"
}

func (u *User) HashPassword() error {
	if u.Password == "" {
		return nil
	}
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hashedPassword)
	return nil
}

func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
}

// DriverProfile holds per-driver vehicle details and rating aggregates
type DriverProfile struct {
	gorm.Model
	UserID       uint    `json:"userId" gorm:"not null;uniqueIndex"`
	VehicleMake  string  `json:"vehicleMake"`
	VehicleModel string  `json:"vehicleModel"`
	VehicleYear  *int    `json:"vehicleYear,omitempty"`
	VehicleColor string  `json:"vehicleColor"`
	LicensePlate string  `json:"licensePlate"`
	IsAvailable  bool    `json:"isAvailable" gorm:"not null;default:false"`
	Rating       float64 `json:"rating" gorm:"not null;default:5.00"`
	TotalRides   uint    `json:"totalRides" gorm:"not null;default:0"`
	User         *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (DriverProfile) TableName() string {
	return "driver_profiles"
}

// RiderProfile holds per-rider rating aggregates
type RiderProfile struct {
	gorm.Model
	UserID     uint    `json:"userId" gorm:"not null;uniqueIndex"`
	Rating     float64 `json:"rating" gorm:"not null;default:5.00"`
	TotalRides uint    `json:"totalRides" gorm:"not null;default:0"`
	User       *User   `json:"user,omitempty" gorm:"foreignKey:UserID"`
}

// TableName specifies the table name
func (RiderProfile) TableName() string {
	return "rider_profiles"
}
