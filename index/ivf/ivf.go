package ivf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/litevec/litevec/vector"
)

const (
	// DefaultPartitions is the partition count used when none is configured.
	DefaultPartitions = 10

	// DefaultTargetAccuracy is the target accuracy percentage used when the
	// collection leaves it unspecified.
	DefaultTargetAccuracy = 95

	kmeansIterations = 20
)

var blobMagic = [4]byte{'I', 'V', 'F', '1'}

// Index is an inverted-file index: vectors are partitioned into clusters via
// k-means, and a query probes only the clusters nearest to it. The target
// accuracy percentage governs how many partitions are probed.
type Index struct {
	metric     vector.Metric
	partitions int
	accuracy   int

	dim       int
	ids       []string
	vecs      [][]float32
	assign    []int // partition per vector
	centroids [][]float32
}

// New creates an empty IVF index. partitions <= 0 and accuracy <= 0 fall back
// to the defaults.
func New(metric vector.Metric, partitions, accuracy int) *Index {
	if partitions <= 0 {
		partitions = DefaultPartitions
	}
	if accuracy <= 0 {
		accuracy = DefaultTargetAccuracy
	}
	return &Index{metric: metric, partitions: partitions, accuracy: accuracy}
}

// Build trains centroids on the given vectors and assigns every vector to its
// nearest partition. Assignment runs in parallel across GOMAXPROCS chunks.
func (i *Index) Build(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("ivf: ids and vectors length mismatch: %d != %d", len(ids), len(vectors))
	}
	if len(ids) == 0 {
		i.dim, i.ids, i.vecs, i.assign, i.centroids = 0, nil, nil, nil, nil
		return nil
	}
	dim := len(vectors[0])
	for j := range vectors {
		if len(vectors[j]) != dim {
			return fmt.Errorf("ivf: inconsistent vector dims %d vs %d", len(vectors[j]), dim)
		}
	}

	i.dim = dim
	i.ids = append([]string(nil), ids...)
	i.vecs = append([][]float32(nil), vectors...)
	i.centroids = kmeans(i.vecs, min(i.partitions, len(i.vecs)), kmeansIterations)

	assign := make([]int, len(i.vecs))
	workers := runtime.GOMAXPROCS(0)
	chunk := (len(i.vecs) + workers - 1) / workers
	var g errgroup.Group
	for start := 0; start < len(i.vecs); start += chunk {
		start := start
		end := min(start+chunk, len(i.vecs))
		g.Go(func() error {
			for j := start; j < end; j++ {
				assign[j] = nearestCentroid(i.vecs[j], i.centroids)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	i.assign = assign
	return nil
}

// Query probes the partitions nearest to the query vector and returns the
// candidate ids in increasing metric-distance order. k <= 0 returns every
// candidate from the probed partitions.
func (i *Index) Query(query []float32, k int) ([]string, error) {
	if i.dim == 0 || len(i.vecs) == 0 {
		return nil, nil
	}
	if len(query) != i.dim {
		return nil, fmt.Errorf("%w: got %d components, want %d", vector.ErrDimensionMismatch, len(query), i.dim)
	}

	probed := i.probedPartitions(query)
	type scored struct {
		idx  int
		dist float64
	}
	var candidates []scored
	for j, part := range i.assign {
		if !probed[part] {
			continue
		}
		d, err := i.metric.Distance(query, i.vecs[j])
		if err != nil {
			return nil, err
		}
		if math.IsNaN(d) {
			continue
		}
		candidates = append(candidates, scored{idx: j, dist: d})
	}
	sort.Slice(candidates, func(a, b int) bool { return candidates[a].dist < candidates[b].dist })
	if k <= 0 || k > len(candidates) {
		k = len(candidates)
	}
	out := make([]string, k)
	for n := 0; n < k; n++ {
		out[n] = i.ids[candidates[n].idx]
	}
	return out, nil
}

// Probes returns how many partitions a query visits for the configured
// target accuracy: ceil(accuracy% of the partition count), at least one.
func (i *Index) Probes() int {
	n := len(i.centroids)
	if n == 0 {
		n = i.partitions
	}
	p := int(math.Ceil(float64(i.accuracy) / 100 * float64(n)))
	if p < 1 {
		p = 1
	}
	if p > n {
		p = n
	}
	return p
}

func (i *Index) probedPartitions(query []float32) map[int]bool {
	type scored struct {
		part int
		dist float64
	}
	order := make([]scored, len(i.centroids))
	for p, c := range i.centroids {
		order[p] = scored{part: p, dist: squaredL2(query, c)}
	}
	sort.Slice(order, func(a, b int) bool { return order[a].dist < order[b].dist })
	probes := i.Probes()
	probed := make(map[int]bool, probes)
	for p := 0; p < probes && p < len(order); p++ {
		probed[order[p].part] = true
	}
	return probed
}

// MarshalBinary stores: magic, dim(u32), n(u32), partitions(u32),
// accuracy(u32), metric(len+bytes), centroids(partitions*dim f32), then per
// vector: idLen(u32), id bytes, partition(u32), vec(f32[dim]).
func (i *Index) MarshalBinary() ([]byte, error) {
	out := append([]byte(nil), blobMagic[:]...)
	putU32 := func(v uint32) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], v)
		out = append(out, b[:]...)
	}
	putF32 := func(v float32) { putU32(math.Float32bits(v)) }

	putU32(uint32(i.dim))
	putU32(uint32(len(i.ids)))
	putU32(uint32(len(i.centroids)))
	putU32(uint32(i.accuracy))
	putU32(uint32(len(i.metric)))
	out = append(out, []byte(i.metric)...)
	for _, c := range i.centroids {
		for j := 0; j < i.dim; j++ {
			putF32(c[j])
		}
	}
	for idx, id := range i.ids {
		putU32(uint32(len(id)))
		out = append(out, []byte(id)...)
		putU32(uint32(i.assign[idx]))
		for j := 0; j < i.dim; j++ {
			putF32(i.vecs[idx][j])
		}
	}
	return out, nil
}

// UnmarshalBinary restores the index from bytes produced by MarshalBinary.
func (i *Index) UnmarshalBinary(data []byte) error {
	if len(data) < 4 || string(data[:4]) != string(blobMagic[:]) {
		return errors.New("ivf: invalid index blob")
	}
	off := 4
	getU32 := func() (uint32, error) {
		if off+4 > len(data) {
			return 0, errors.New("ivf: truncated index blob")
		}
		v := binary.LittleEndian.Uint32(data[off : off+4])
		off += 4
		return v, nil
	}
	getF32 := func() (float32, error) {
		v, err := getU32()
		return math.Float32frombits(v), err
	}

	dim, err := getU32()
	if err != nil {
		return err
	}
	n, err := getU32()
	if err != nil {
		return err
	}
	parts, err := getU32()
	if err != nil {
		return err
	}
	accuracy, err := getU32()
	if err != nil {
		return err
	}
	metricLen, err := getU32()
	if err != nil {
		return err
	}
	if off+int(metricLen) > len(data) {
		return errors.New("ivf: truncated index blob")
	}
	metric, err := vector.ParseMetric(string(data[off : off+int(metricLen)]))
	if err != nil {
		return fmt.Errorf("ivf: %w", err)
	}
	off += int(metricLen)

	centroids := make([][]float32, parts)
	for p := range centroids {
		c := make([]float32, dim)
		for j := range c {
			if c[j], err = getF32(); err != nil {
				return err
			}
		}
		centroids[p] = c
	}

	ids := make([]string, n)
	vecs := make([][]float32, n)
	assign := make([]int, n)
	for idx := 0; idx < int(n); idx++ {
		idLen, err := getU32()
		if err != nil {
			return err
		}
		if off+int(idLen) > len(data) {
			return errors.New("ivf: truncated index blob")
		}
		ids[idx] = string(data[off : off+int(idLen)])
		off += int(idLen)
		part, err := getU32()
		if err != nil {
			return err
		}
		assign[idx] = int(part)
		v := make([]float32, dim)
		for j := range v {
			if v[j], err = getF32(); err != nil {
				return err
			}
		}
		vecs[idx] = v
	}

	i.metric = metric
	i.partitions = int(parts)
	i.accuracy = int(accuracy)
	i.dim = int(dim)
	i.ids = ids
	i.vecs = vecs
	i.assign = assign
	i.centroids = centroids
	return nil
}

// kmeans clusters vectors into k centroids with k-means++ seeding. Seeding is
// deterministic so rebuilding an unchanged collection yields the same
// partitioning.
func kmeans(vectors [][]float32, k, maxIters int) [][]float32 {
	dim := len(vectors[0])
	if len(vectors) <= k {
		centroids := make([][]float32, k)
		for c := range centroids {
			centroids[c] = append([]float32(nil), vectors[c%len(vectors)]...)
		}
		return centroids
	}

	rng := rand.New(rand.NewSource(int64(len(vectors))*31 + int64(dim)))

	centroids := make([][]float32, k)
	centroids[0] = append([]float32(nil), vectors[rng.Intn(len(vectors))]...)

	// minDist tracks each vector's squared distance to its nearest chosen
	// centroid; new seeds sample proportional to it.
	minDist := make([]float64, len(vectors))
	var sum float64
	for j, v := range vectors {
		minDist[j] = squaredL2(v, centroids[0])
		sum += minDist[j]
	}
	for c := 1; c < k; c++ {
		if sum == 0 {
			centroids[c] = append([]float32(nil), vectors[rng.Intn(len(vectors))]...)
			continue
		}
		target := rng.Float64() * sum
		var cumsum float64
		chosen := 0
		for j, d := range minDist {
			cumsum += d
			if cumsum >= target {
				chosen = j
				break
			}
		}
		centroids[c] = append([]float32(nil), vectors[chosen]...)
		sum = 0
		for j, v := range vectors {
			if d := squaredL2(v, centroids[c]); d < minDist[j] {
				minDist[j] = d
			}
			sum += minDist[j]
		}
	}

	assign := make([]int, len(vectors))
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for j, v := range vectors {
			nearest := nearestCentroid(v, centroids)
			if assign[j] != nearest {
				assign[j] = nearest
				changed = true
			}
		}
		if !changed {
			break
		}
		sums := make([][]float64, k)
		counts := make([]int, k)
		for c := range sums {
			sums[c] = make([]float64, dim)
		}
		for j, v := range vectors {
			c := assign[j]
			counts[c]++
			for d := range v {
				sums[c][d] += float64(v[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			for d := 0; d < dim; d++ {
				centroids[c][d] = float32(sums[c][d] / float64(counts[c]))
			}
		}
	}
	return centroids
}

func nearestCentroid(v []float32, centroids [][]float32) int {
	best, bestDist := 0, math.Inf(1)
	for c, centroid := range centroids {
		if d := squaredL2(v, centroid); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

func squaredL2(a, b []float32) float64 {
	var s float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		s += d * d
	}
	return s
}
