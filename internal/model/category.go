package model

import "time"

// Category is a node of the category tree. Root categories have no parent and
// level 1; every other node sits one level below its parent.
type Category struct {
	CreatedAt   time.Time
	ParentID    *int64
	Name        string
	Description string
	Kind        Kind
	ID          int64
	Level       int
	Active      bool
}

// IsRoot reports whether the category has no parent.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// LevelUnder returns the level a category takes when placed below parent.
func LevelUnder(parent *Category) int {
	if parent == nil {
		return 1
	}
	return parent.Level + 1
}
