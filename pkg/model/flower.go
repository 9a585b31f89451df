// Package model defines the objects a cactus disk stores.
package model

import (
	"github.com/i5heu/cactusdisk/pkg/types"
)

// Flower is a node of the cactus graph. Flowers are mutable: callers change
// them in place and the next write-back of the owning disk persists them.
type Flower struct {
	// Name is the unique identifier and ordering key of the flower.
	Name types.Name

	// ParentGroupName names the group this flower is nested in, NullName for the root.
	ParentGroupName types.Name

	// GroupNames lists the child groups of the flower.
	GroupNames []types.Name

	// EndNames lists the ends attached to the flower.
	EndNames []types.Name

	BuiltBlocks bool
	BuiltTrees  bool
	BuiltFaces  bool
}

func NewFlower(name types.Name) *Flower {
	return &Flower{Name: name}
}

func (f *Flower) AddGroupName(name types.Name) {
	f.GroupNames = append(f.GroupNames, name)
}

func (f *Flower) AddEndName(name types.Name) {
	f.EndNames = append(f.EndNames, name)
}

// IsLeaf reports whether the flower has no child groups.
func (f *Flower) IsLeaf() bool {
	return len(f.GroupNames) == 0
}
