package users

import (
	"time"

	"gorm.io/gorm"
)

// Roles a user may hold
var Roles = []string{"admin", "author", "reader", "manager"}

// UserModel is both the users table row and the record exchanged in
// documents. Column titles match the JSON names.
type UserModel struct {
	ID        string    `gorm:"primaryKey;type:text" json:"id" csv:"name:id;order:0"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email" csv:"name:email;order:1"`
	Name      string    `gorm:"not null" json:"name" csv:"name:name;order:2"`
	Role      string    `gorm:"not null" json:"role" csv:"name:role;order:3"`
	Active    bool      `gorm:"not null" json:"active" csv:"name:active;order:4"`
	CreatedAt time.Time `gorm:"not null" json:"created_at" csv:"name:created_at;order:5;optional"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at" csv:"name:updated_at;order:6;optional"`
}

func (UserModel) TableName() string {
	return "users"
}

// AutoMigrate creates the users table
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&UserModel{})
}
