// Package pipeline implements the fixed-depth shift register used by every
// execution unit to model multi-cycle latency. Grounded on
// original_source/src/pipeline.py's deque(maxlen=num_stages) shift
// register; reimplemented over a plain slice since Go has no bounded deque
// in the standard library.
package pipeline

// Pipeline is a fixed-depth shift register of opaque payloads. In
// "iterative" mode (at most one in-flight instruction) a new instruction
// cannot be admitted while one is already in flight; in fully-pipelined
// mode a new instruction can enter every cycle as long as the tail stage is
// empty (admitting shifts every stage forward, so an occupied tail would be
// lost).
type Pipeline struct {
	stages    []any
	iterative bool
}

// New creates a Pipeline with numStages shift-register slots.
func New(numStages int, iterative bool) *Pipeline {
	return &Pipeline{stages: make([]any, numStages), iterative: iterative}
}

// CanAdmit reports whether AddInstruction would succeed right now.
func (p *Pipeline) CanAdmit() bool {
	if p.iterative {
		return !p.hasInFlight()
	}
	return p.stages[len(p.stages)-1] == nil
}

// AddInstruction pushes payload into the head of the pipeline. Returns
// false without modifying state if the pipeline cannot admit it yet.
func (p *Pipeline) AddInstruction(payload any) bool {
	if !p.CanAdmit() {
		return false
	}
	p.shiftIn(payload)
	return true
}

// Advance shifts every stage forward by one cycle, discarding whatever was
// at the tail and admitting a nil at the head.
func (p *Pipeline) Advance() {
	p.shiftIn(nil)
}

// PopLastInstruction removes and returns the tail stage's payload (nil if
// empty).
func (p *Pipeline) PopLastInstruction() any {
	n := len(p.stages)
	last := p.stages[n-1]
	p.stages[n-1] = nil
	return last
}

// LastInstruction peeks the tail stage without removing it.
func (p *Pipeline) LastInstruction() any {
	return p.stages[len(p.stages)-1]
}

func (p *Pipeline) hasInFlight() bool {
	for _, s := range p.stages {
		if s != nil {
			return true
		}
	}
	return false
}

func (p *Pipeline) shiftIn(payload any) {
	copy(p.stages[1:], p.stages[:len(p.stages)-1])
	p.stages[0] = payload
}
