package schedule

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/warp/visit-engine/care"
)

// IDGenerator supplies ids for new visits. Implementations must be safe for
// concurrent use.
type IDGenerator interface {
	NewVisitID() care.VisitID
}

// UUIDGenerator issues random UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewVisitID() care.VisitID {
	return care.VisitID(uuid.NewString())
}

// SequenceGenerator issues prefix-1, prefix-2, ... for reproducible tests.
type SequenceGenerator struct {
	Prefix string
	n      atomic.Int64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{Prefix: prefix}
}

func (g *SequenceGenerator) NewVisitID() care.VisitID {
	return care.VisitID(fmt.Sprintf("%s-%d", g.Prefix, g.n.Add(1)))
}
