//go:build !faiss || !cgo
// +build !faiss !cgo

package vector

// faissAvailable reports that FAISS support is not compiled in.
const faissAvailable = false

func newFAISSFlatIndex(dimension int) (FlatIndex, error) {
	return nil, ErrFAISSUnavailable
}

// ReadFAISSFlatL2 returns an error because FAISS is not available.
func ReadFAISSFlatL2(path string) (FlatIndex, error) {
	return nil, ErrFAISSUnavailable
}
