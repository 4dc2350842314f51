package sim

import (
	"math/rand/v2"

	"github.com/len5sim/rvsim/pkg/rs"
)

// rngShim wraps the seeded generator used for the random pick policy:
// rand.NewPCG(seed, seed^const).
type rngShim struct {
	r *rand.Rand
}

func newRNGShim(seed uint64) *rngShim {
	return &rngShim{r: rand.New(rand.NewPCG(seed, seed^0xC0FFEE))}
}

// pickWith applies the configured reservation-station pick policy,
// matching rs_pick_policy.py's five named strategies.
func pickWith[T rs.Entry](st *rs.Station[T], policy PickPolicy, rng *rngShim) (int, bool) {
	switch policy {
	case PickNewest:
		return st.PickNewestReady()
	case PickFirst:
		return st.PickFirstReady()
	case PickLast:
		return st.PickLastReady()
	case PickRandom:
		return st.PickRandomReady(rng.r)
	default:
		return st.PickOldestReady()
	}
}
