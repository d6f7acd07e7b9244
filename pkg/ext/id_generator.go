package ext

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator generates report identifiers.
type IDGenerator interface {
	GenerateID() string
}

// NewUUIDGenerator returns an IDGenerator producing random (version 4) UUIDs.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

type uuidGenerator struct{}

func (uuidGenerator) GenerateID() string {
	return uuid.NewString()
}

// NewSequentialIDGenerator returns an IDGenerator producing UUID-shaped
// identifiers 00000000-0000-0000-0000-000000000001, ...002 and so on.
// It is safe for concurrent use.
func NewSequentialIDGenerator() IDGenerator {
	return &sequentialIDGenerator{}
}

type sequentialIDGenerator struct {
	next atomic.Uint64
}

func (g *sequentialIDGenerator) GenerateID() string {
	return fmt.Sprintf("00000000-0000-0000-0000-%012d", g.next.Add(1)%1_000_000_000_000)
}
