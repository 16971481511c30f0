package repository

import "github.com/jhoicas/almacen-api/internal/domain/entity"

// MaterialRepository define el puerto de persistencia para Material (DIP).
type MaterialRepository interface {
	Create(material *entity.Material) error
	GetByID(id string) (*entity.Material, error)
	GetByCode(code string) (*entity.Material, error)
	Update(material *entity.Material) error
	List(limit, offset int) ([]*entity.Material, error)
	// HasMovements indica si existen movimientos que referencien el material.
	// Un material referenciado nunca se elimina.
	HasMovements(id string) (bool, error)
	Delete(id string) error
}
