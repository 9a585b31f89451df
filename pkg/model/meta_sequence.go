package model

import (
	"github.com/i5heu/cactusdisk/pkg/types"
)

// MetaSequence describes one input sequence. It is immutable: once it has
// been written to a backend it is never updated.
type MetaSequence struct {
	name       types.Name
	start      int64
	length     int64
	stringName types.Name
	eventName  types.Name
	header     string
}

// NewMetaSequence builds a meta sequence whose bases live in the string
// record stringName, covering [start, start+length) of the sequence.
func NewMetaSequence(name types.Name, start, length int64, stringName, eventName types.Name, header string) *MetaSequence {
	return &MetaSequence{
		name:       name,
		start:      start,
		length:     length,
		stringName: stringName,
		eventName:  eventName,
		header:     header,
	}
}

func (m *MetaSequence) Name() types.Name       { return m.name }
func (m *MetaSequence) Start() int64           { return m.start }
func (m *MetaSequence) Length() int64          { return m.length }
func (m *MetaSequence) StringName() types.Name { return m.stringName }
func (m *MetaSequence) EventName() types.Name  { return m.eventName }
func (m *MetaSequence) Header() string         { return m.header }

// Contains reports whether [start, start+length) lies inside the sequence.
func (m *MetaSequence) Contains(start, length int64) bool {
	return start >= m.start && length >= 0 && start+length <= m.start+m.length
}
