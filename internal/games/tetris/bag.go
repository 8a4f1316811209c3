package tetris

import "math/rand"

// Randomizer deals piece types from shuffled bags holding each shape once.
// Every aligned run of seven draws is a permutation of all seven types.
type Randomizer struct {
	rng *rand.Rand
	bag []PieceType
}

// NewRandomizer creates a randomizer whose sequence is fully determined by seed.
func NewRandomizer(seed int64) *Randomizer {
	return &Randomizer{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Next pops the next piece type, refilling the bag first when it is empty.
func (r *Randomizer) Next() PieceType {
	if len(r.bag) == 0 {
		r.refill()
	}
	t := r.bag[0]
	r.bag = r.bag[1:]
	return t
}

// Remaining reports how many draws are left in the current bag.
func (r *Randomizer) Remaining() int {
	return len(r.bag)
}

func (r *Randomizer) refill() {
	r.bag = make([]PieceType, len(PieceTypes))
	copy(r.bag, PieceTypes[:])
	r.rng.Shuffle(len(r.bag), func(i, j int) {
		r.bag[i], r.bag[j] = r.bag[j], r.bag[i]
	})
}
