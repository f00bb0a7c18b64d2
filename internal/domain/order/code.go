package order

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// CodeGenerator produces display codes of the form ORD-YYYYMMDD-NNN.
// Codes may collide; they are never used as keys.
type CodeGenerator struct {
	mu   sync.Mutex
	now  func() time.Time
	rand *rand.Rand
}

func NewCodeGenerator(now func() time.Time, seed int64) *CodeGenerator {
	if now == nil {
		now = time.Now
	}
	return &CodeGenerator{now: now, rand: rand.New(rand.NewSource(seed))}
}

func (g *CodeGenerator) Next() string {
	g.mu.Lock()
	n := g.rand.Intn(1000)
	g.mu.Unlock()
	return fmt.Sprintf("ORD-%s-%03d", g.now().UTC().Format("20060102"), n)
}
