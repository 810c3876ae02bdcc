// Package arrivals produces the synthetic plan purchases that feed the
// dashboard while no real storefront is attached.
package arrivals

import (
	"log"
	"math/rand"
	"time"

	"github.com/sakoon/console-backend/internal/session"
)

// planCatalogue is the fixed set of offers a synthetic purchase picks from.
var planCatalogue = []string{
	"10 min Chat",
	"5 min Call",
	"30 min Chat",
}

// Generator enqueues one synthetic arrival per firing: a uniformly random
// plan from the catalogue lands in the registry as a waiting entry, a feed
// record, a revenue delta and a notification.
type Generator struct {
	reg *session.Registry
	rng *rand.Rand
}

func New(reg *session.Registry) *Generator {
	return NewWithSeed(reg, time.Now().UnixNano())
}

// NewWithSeed fixes the rng seed, for deterministic tests.
func NewWithSeed(reg *session.Registry, seed int64) *Generator {
	return &Generator{
		reg: reg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Fire records one arrival and returns the enqueued waiting entry.
func (g *Generator) Fire() *session.WaitingEntry {
	plan := planCatalogue[g.rng.Intn(len(planCatalogue))]
	entry := g.reg.RecordArrival(plan)
	log.Printf("arrival: new user purchased %q (waiting id %d)", plan, entry.ID)
	return entry
}
