package models

// Servicio is a service offered to customers. ID is nil until
// the row is first persisted and never changes afterwards.
type Servicio struct {
	ID          *int64  `json:"id" db:"service_id"`
	Name        string  `json:"name" db:"name"`
	Description string  `json:"description" db:"description"`
	Price       float64 `json:"price" db:"price"`
	IconKey     string  `json:"icon_key" db:"icon_key"`
	Status      int     `json:"status" db:"status"`
}

// HasID reports whether the servicio already carries an identifier.
func (s *Servicio) HasID() bool {
	return s != nil && s.ID != nil
}
