package generator

// ring is a fixed-capacity buffer of delays; the oldest value is overwritten
// once it is full.
type ring struct {
	buf   []float64
	start int
	size  int
}

func newRing(capacity int) *ring {
	if capacity < 1 {
		capacity = 1
	}
	return &ring{buf: make([]float64, capacity)}
}

func (r *ring) push(v float64) {
	if r.size < len(r.buf) {
		r.buf[(r.start+r.size)%len(r.buf)] = v
		r.size++
		return
	}
	r.buf[r.start] = v
	r.start = (r.start + 1) % len(r.buf)
}

func (r *ring) len() int {
	return r.size
}

// last returns up to n of the newest values, oldest first.
func (r *ring) last(n int) []float64 {
	if n > r.size {
		n = r.size
	}
	out := make([]float64, n)
	offset := r.size - n
	for i := 0; i < n; i++ {
		out[i] = r.buf[(r.start+offset+i)%len(r.buf)]
	}
	return out
}

// at returns the i-th of the newest n values, oldest first. n must not
// exceed len.
func (r *ring) at(n, i int) float64 {
	return r.buf[(r.start+r.size-n+i)%len(r.buf)]
}

// mean averages up to n of the newest values without copying them.
func (r *ring) mean(n int) float64 {
	n = min(n, r.size)
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += r.at(n, i)
	}
	return sum / float64(n)
}

// variance is populationVariance over up to n of the newest values.
func (r *ring) variance(n int) float64 {
	n = min(n, r.size)
	if n == 0 {
		return 0
	}
	mean := r.mean(n)
	var sq float64
	for i := 0; i < n; i++ {
		d := r.at(n, i) - mean
		sq += d * d
	}
	return sq / float64(n)
}

func (r *ring) reset() {
	r.start = 0
	r.size = 0
}

// populationVariance returns the mean squared deviation of values.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return sq / float64(len(values))
}
