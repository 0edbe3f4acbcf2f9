package model

import "time"

type ResourceKind string

const (
	KindKitchen      ResourceKind = "kitchen"
	KindUtensil      ResourceKind = "utensil"
	KindFridge       ResourceKind = "fridge"
	KindHelperDriver ResourceKind = "helper_driver"
)

var ResourceKinds = []ResourceKind{KindKitchen, KindUtensil, KindFridge, KindHelperDriver}

func (k ResourceKind) Valid() bool {
	for _, known := range ResourceKinds {
		if k == known {
			return true
		}
	}
	return false
}

type KitchenResource struct {
	ID          int64        `json:"id"`
	Kind        ResourceKind `json:"kind"`
	Name        string       `json:"name"`
	Position    int          `json:"position"`
	PointPerson *string      `json:"point_person"`
	Phone       *string      `json:"phone"`
	IsDriver    bool         `json:"is_driver"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// KitchenResourceInput creates a resource. A nil Position means "append".
type KitchenResourceInput struct {
	Kind        ResourceKind
	Name        string
	Position    *int
	PointPerson string
	Phone       string
	IsDriver    bool
}

// KitchenResourceUpdate is a partial update; nil fields are left untouched.
type KitchenResourceUpdate struct {
	Name        *string
	Position    *int
	PointPerson *string
	Phone       *string
	IsDriver    *bool
}
