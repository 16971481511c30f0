package entity

import "time"

// Warehouse representa un almacén físico o lógico. El stock siempre se
// escopa por (material, almacén).
type Warehouse struct {
	ID        string
	Name      string
	Location  string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
