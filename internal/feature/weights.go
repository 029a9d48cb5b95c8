package feature

// DefaultWeight is the weight of a feature that has never been trained.
// Untrained features contribute their label weight unscaled, so a fresh
// model ranks solutions by graph structure alone.
const DefaultWeight = 1.0

// Weights is the dense trainable weight vector, indexed by dictionary id.
// Index 0 is unused. Reads out of range return DefaultWeight so a vector
// sized for an older dictionary snapshot stays usable.
type Weights []float64

// NewWeights returns a vector sized for dict with every entry at
// DefaultWeight.
func NewWeights(dict *Dictionary) Weights {
	w := make(Weights, dict.Size()+1)
	for i := range w {
		w[i] = DefaultWeight
	}
	return w
}

// Get returns the weight for id.
func (w Weights) Get(id int32) float64 {
	if id < 1 || int(id) >= len(w) {
		return DefaultWeight
	}
	return w[id]
}

// Set stores v for id, growing the vector if needed.
func (w *Weights) Set(id int32, v float64) {
	for int(id) >= len(*w) {
		*w = append(*w, DefaultWeight)
	}
	(*w)[id] = v
}

// Add accumulates delta into the weight for id.
func (w *Weights) Add(id int32, delta float64) {
	w.Set(id, w.Get(id)+delta)
}

// Clone returns an independent copy, used as a per-epoch snapshot.
func (w Weights) Clone() Weights {
	out := make(Weights, len(w))
	copy(out, w)
	return out
}
