//go:build faiss && cgo
// +build faiss,cgo

package vector

/*
#cgo CFLAGS: -I/opt/homebrew/include -I/usr/local/include
#cgo LDFLAGS: -L/opt/homebrew/lib -L/usr/local/lib -lfaiss_c

#include <stdlib.h>
#include <faiss/c_api/Index_c.h>
#include <faiss/c_api/IndexFlat_c.h>
#include <faiss/c_api/index_io_c.h>
#include <faiss/c_api/error_c.h>
*/
import "C"

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"
)

// faissAvailable reports that FAISS support is compiled in.
const faissAvailable = true

// FAISSFlatL2 wraps a FAISS IndexFlatL2 (exact search, squared L2 distance).
type FAISSFlatL2 struct {
	index     *C.FaissIndex
	dimension int
}

// NewFAISSFlatL2 creates an empty FAISS IndexFlatL2 with the given dimension.
func NewFAISSFlatL2(dimension int) (*FAISSFlatL2, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("dimensions must be positive")
	}
	var index *C.FaissIndexFlatL2
	if ret := C.faiss_IndexFlatL2_new_with(&index, C.idx_t(dimension)); ret != 0 {
		return nil, fmt.Errorf("failed to create FAISS index: %s", faissLastError())
	}
	return &FAISSFlatL2{index: (*C.FaissIndex)(index), dimension: dimension}, nil
}

// ReadFAISSFlatL2 loads an index written by FAISSFlatL2.WriteFile.
func ReadFAISSFlatL2(path string) (FlatIndex, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open index file: %w", err)
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))

	var index *C.FaissIndex
	if ret := C.faiss_read_index_fname(cPath, 0, &index); ret != 0 {
		return nil, fmt.Errorf("failed to load FAISS index: %s", faissLastError())
	}
	return &FAISSFlatL2{index: index, dimension: int(C.faiss_Index_d(index))}, nil
}

func faissLastError() string {
	cErr := C.faiss_get_last_error()
	if cErr == nil {
		return "unknown error"
	}
	return C.GoString(cErr)
}

// Add appends vectors in one FAISS call.
func (f *FAISSFlatL2) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	flat := make([]float32, len(vectors)*f.dimension)
	for i, vec := range vectors {
		if len(vec) != f.dimension {
			return fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(vec), f.dimension)
		}
		copy(flat[i*f.dimension:(i+1)*f.dimension], vec)
	}
	ret := C.faiss_Index_add(f.index, C.idx_t(len(vectors)), (*C.float)(unsafe.Pointer(&flat[0])))
	if ret != 0 {
		return fmt.Errorf("failed to add vectors to FAISS index: %s", faissLastError())
	}
	return nil
}

// Search runs a single-query search. FAISS fills unused slots with label -1.
func (f *FAISSFlatL2) Search(query []float32, k int) ([]float32, []int64, error) {
	if len(query) != f.dimension {
		return nil, nil, fmt.Errorf("%w: got %d, expected %d", ErrDimensionMismatch, len(query), f.dimension)
	}
	if k <= 0 {
		return []float32{}, []int64{}, nil
	}
	distances := make([]float32, k)
	labels := make([]int64, k)
	ret := C.faiss_Index_search(
		f.index,
		1,
		(*C.float)(unsafe.Pointer(&query[0])),
		C.idx_t(k),
		(*C.float)(unsafe.Pointer(&distances[0])),
		(*C.idx_t)(unsafe.Pointer(&labels[0])),
	)
	if ret != 0 {
		return nil, nil, fmt.Errorf("FAISS search failed: %s", faissLastError())
	}
	return distances, labels, nil
}

// Reset removes all vectors.
func (f *FAISSFlatL2) Reset() error {
	if ret := C.faiss_Index_reset(f.index); ret != 0 {
		return fmt.Errorf("failed to reset FAISS index: %s", faissLastError())
	}
	return nil
}

// Len returns the number of vectors in the index.
func (f *FAISSFlatL2) Len() int {
	if f.index == nil {
		return 0
	}
	return int(C.faiss_Index_ntotal(f.index))
}

// Dimension returns the vector dimension.
func (f *FAISSFlatL2) Dimension() int {
	return f.dimension
}

// WriteFile writes the native FAISS index blob to path.
func (f *FAISSFlatL2) WriteFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create index dir: %w", err)
	}
	cPath := C.CString(path)
	defer C.free(unsafe.Pointer(cPath))
	if ret := C.faiss_write_index_fname(f.index, cPath); ret != 0 {
		return fmt.Errorf("failed to save FAISS index: %s", faissLastError())
	}
	return nil
}

// Close frees the FAISS index.
func (f *FAISSFlatL2) Close() error {
	if f.index != nil {
		C.faiss_Index_free(f.index)
		f.index = nil
	}
	return nil
}

func newFAISSFlatIndex(dimension int) (FlatIndex, error) {
	idx, err := NewFAISSFlatL2(dimension)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
