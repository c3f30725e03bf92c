package bulktransition

import "github.com/oklog/ulid/v2"

// IDGenerator provides invocation IDs.
type IDGenerator interface {
	NewID() string
}

// ULIDGenerator generates lexically sortable IDs.
type ULIDGenerator struct{}

func (ULIDGenerator) NewID() string {
	return ulid.Make().String()
}
