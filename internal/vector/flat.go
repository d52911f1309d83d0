package vector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
)

// FlatIndex is an exact L2 nearest-neighbor index. Vectors are addressed by insertion
// position (label), starting at 0.
type FlatIndex interface {
	Add(vectors [][]float32) error
	// Search returns exactly k distances and labels, nearest first. Slots that cannot be
	// filled hold label -1.
	Search(query []float32, k int) (distances []float32, labels []int64, err error)
	Reset() error
	Len() int
	Dimension() int
	WriteFile(path string) error
	Close() error
}

// IndexReader opens an index previously written by FlatIndex.WriteFile.
type IndexReader func(path string) (FlatIndex, error)

// NativeFlatL2 is a pure Go flat index using squared L2 distance. It mirrors the
// search contract of FAISS IndexFlatL2 so either can back an IndexStore.
type NativeFlatL2 struct {
	dimension int
	data      []float32
}

// NewNativeFlatL2 creates an empty index with the given dimension.
func NewNativeFlatL2(dimension int) (*NativeFlatL2, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	return &NativeFlatL2{dimension: dimension}, nil
}

// Add appends vectors. Either all are added or none.
func (n *NativeFlatL2) Add(vectors [][]float32) error {
	for _, vec := range vectors {
		if len(vec) != n.dimension {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), n.dimension)
		}
	}
	for _, vec := range vectors {
		n.data = append(n.data, vec...)
	}
	return nil
}

// Search returns the k nearest vectors by squared L2 distance, ascending. Ties keep
// insertion order. When k exceeds Len, the remaining slots hold label -1.
func (n *NativeFlatL2) Search(query []float32, k int) ([]float32, []int64, error) {
	if len(query) != n.dimension {
		return nil, nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), n.dimension)
	}
	if k <= 0 {
		return []float32{}, []int64{}, nil
	}
	total := n.Len()
	order := make([]int, total)
	dists := make([]float64, total)
	for i := 0; i < total; i++ {
		order[i] = i
		dists[i] = SquaredL2(query, n.data[i*n.dimension:(i+1)*n.dimension])
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

	distances := make([]float32, k)
	labels := make([]int64, k)
	for i := 0; i < k; i++ {
		if i < total {
			distances[i] = float32(dists[order[i]])
			labels[i] = int64(order[i])
			continue
		}
		distances[i] = math.MaxFloat32
		labels[i] = -1
	}
	return distances, labels, nil
}

// Reset removes all vectors. The dimension is kept.
func (n *NativeFlatL2) Reset() error {
	n.data = nil
	return nil
}

// Len returns the number of vectors.
func (n *NativeFlatL2) Len() int {
	return len(n.data) / n.dimension
}

// Dimension returns the vector dimension.
func (n *NativeFlatL2) Dimension() int {
	return n.dimension
}

// Close is a no-op for NativeFlatL2.
func (n *NativeFlatL2) Close() error {
	return nil
}

var nativeMagic = [4]byte{'R', 'S', 'L', '2'}

const nativeVersion uint32 = 1

// WriteFile persists the index. Format (little endian): magic "RSL2", version (4),
// dimension (4), count (8), then count*dimension float32 values.
func (n *NativeFlatL2) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create index file: %w", err)
	}
	w := bufio.NewWriter(f)
	header := []interface{}{nativeMagic, nativeVersion, uint32(n.dimension), uint64(n.Len())}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			_ = f.Close()
			return fmt.Errorf("write header: %w", err)
		}
	}
	if _, err := w.Write(float32SliceToBytes(n.data)); err != nil {
		_ = f.Close()
		return fmt.Errorf("write vectors: %w", err)
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return fmt.Errorf("flush index file: %w", err)
	}
	return f.Close()
}

// ReadNativeFlatL2 opens an index written by NativeFlatL2.WriteFile.
func ReadNativeFlatL2(path string) (FlatIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [4]byte
	var version, dim uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic != nativeMagic {
		return nil, errors.New("not a native L2 index file")
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != nativeVersion {
		return nil, fmt.Errorf("unsupported index version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &dim); err != nil {
		return nil, fmt.Errorf("read dimensions: %w", err)
	}
	if dim == 0 {
		return nil, errors.New("index dimension is zero")
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, fmt.Errorf("read count: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat index file: %w", err)
	}
	const headerSize = 4 + 4 + 4 + 8
	want := uint64(dim) * count * 4
	if uint64(info.Size()) != headerSize+want {
		return nil, fmt.Errorf("index file size %d does not match %d vectors of dimension %d", info.Size(), count, dim)
	}
	buf := make([]byte, want)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, fmt.Errorf("read vectors: %w", err)
	}
	return &NativeFlatL2{dimension: int(dim), data: bytesToFloat32Slice(buf)}, nil
}

func float32SliceToBytes(s []float32) []byte {
	const size = 4
	out := make([]byte, len(s)*size)
	for i, v := range s {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(v))
	}
	return out
}

func bytesToFloat32Slice(b []byte) []float32 {
	const size = 4
	out := make([]float32, len(b)/size)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*size : (i+1)*size]))
	}
	return out
}
