package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Shop represents a retail location replenished from factory stock.
// ManagerID is the derived single pointer; the user_shops membership table
// is the authoritative relation between owners and shops.
type Shop struct {
	ID        uuid.UUID      `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string         `gorm:"type:varchar(255);not null" json:"name"`
	Address   string         `gorm:"type:text" json:"address"`
	Phone     string         `gorm:"type:varchar(50)" json:"phone"`
	ManagerID *uuid.UUID     `gorm:"type:uuid;index" json:"manager_id"`
	Manager   *User          `gorm:"foreignKey:ManagerID" json:"manager,omitempty"`
	Members   []User         `gorm:"many2many:user_shops;" json:"members,omitempty"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}
