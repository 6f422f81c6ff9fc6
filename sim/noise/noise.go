// Package noise provides the background noise channels that run alongside
// attack scenarios: ambient activity a detection pipeline has to sift through.
//
// Each channel draws inter-arrival intervals from a seeded exponential
// distribution and reschedules itself after every emission, stopping once the
// next draw would land past the run end. Channels share the run's clock with
// the scenario timeline; interleaving falls out of (due time, sequence)
// ordering alone.
package noise

import (
	"math/rand"

	"github.com/sirupsen/logrus"

	"github.com/redlantern/routesim/sim"
)

// emitFunc builds one envelope for a channel at virtual time now.
type emitFunc func(now float64) sim.Envelope

// channel is the shared self-rescheduling core of every noise stream.
type channel struct {
	name    string
	clock   *sim.SimulationClock
	bus     *sim.EventBus
	rng     *rand.Rand
	rate    float64 // mean events per second
	isolate sim.IsolateFunc
	build   emitFunc

	emitted int
}

// Name returns the channel name (also its RNG subsystem suffix).
func (c *channel) Name() string { return c.name }

// Emitted returns how many events the channel has published so far.
func (c *channel) Emitted() int { return c.emitted }

// Start schedules the channel's first emission. Each emission schedules its
// own successor; the chain ends when the next arrival would fall past runEnd,
// which is what lets the clock's queue drain.
func (c *channel) Start(runEnd float64) error {
	if c.rate <= 0 {
		logrus.Debugf("noise %s: rate %.3f, channel disabled", c.name, c.rate)
		return nil
	}
	first := c.clock.Now() + c.interval()
	if first > runEnd {
		return nil
	}
	_, err := c.clock.Schedule(first, c.fire(runEnd))
	return err
}

// interval draws the next exponential inter-arrival gap.
func (c *channel) interval() float64 {
	return c.rng.ExpFloat64() / c.rate
}

func (c *channel) fire(runEnd float64) sim.Callback {
	return func(now float64) error {
		ev := c.build(now)
		c.emitted++
		if err := c.isolate(c.bus.Emit(ev)); err != nil {
			return err
		}
		next := now + c.interval()
		if next > runEnd {
			logrus.Debugf("noise %s: stopping at t=%.3f after %d events", c.name, now, c.emitted)
			return nil
		}
		_, err := c.clock.Schedule(next, c.fire(runEnd))
		return err
	}
}

// passthrough is the default isolation policy when none is supplied: every
// dispatch error stays fatal.
func passthrough(err error) error { return err }
