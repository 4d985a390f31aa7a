package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type probe struct {
	name  string
	phase Phase
	log   *[]string
}

func (p probe) Phase() Phase { return p.phase }
func (p probe) Update(time.Duration) {
	*p.log = append(*p.log, p.name)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var log []string
	r := NewRunner()
	r.Register(probe{"walls", PhaseInteraction, &log})
	r.Register(probe{"move", PhaseMovement, &log})
	r.Register(probe{"pairs", PhaseInteraction, &log})
	r.Register(probe{"ai", PhaseAI, &log})
	r.Register(probe{"input", PhaseInput, &log})

	r.Tick(PhaseMovement, PhaseInteraction, time.Second)
	assert.Equal(t, []string{"move", "ai", "walls", "pairs"}, log)

	log = nil
	r.TickPhase(PhaseInput, time.Second)
	assert.Equal(t, []string{"input"}, log)
}
