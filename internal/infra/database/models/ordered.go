package models

import (
	"time"
)

// Ordered is embedded by every table that carries a display order.
type Ordered struct {
	ID        string    `json:"id" gorm:"primaryKey;type:text"`
	SortOrder int       `json:"order" gorm:"column:sort_order;not null;default:0;index"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (o *Ordered) Row() *Ordered {
	return o
}
