package vector

import (
	"errors"
	"fmt"
)

// ErrFAISSUnavailable is returned when the FAISS backend is requested but not compiled in.
var ErrFAISSUnavailable = errors.New("FAISS not available: build with -tags=faiss and install FAISS library")

// StoreType selects a Store implementation.
type StoreType string

const (
	// StoreTypeCosine is the brute-force cosine similarity store. Its dimension is set by the first Add.
	StoreTypeCosine StoreType = "cosine"
	// StoreTypeL2 is the flat L2 index adapter. It needs a dimension up front.
	StoreTypeL2 StoreType = "l2"
)

// L2Backend selects the FlatIndex implementation behind an IndexStore.
type L2Backend string

const (
	// L2BackendAuto uses FAISS when compiled in, otherwise the native index.
	L2BackendAuto L2Backend = "auto"
	// L2BackendNative is the pure Go flat index.
	L2BackendNative L2Backend = "native"
	// L2BackendFAISS is FAISS IndexFlatL2. Requires building with -tags=faiss.
	L2BackendFAISS L2Backend = "faiss"
)

// NewStore creates a store of the given type. Supported types: "cosine" (default), "l2".
// dimension and backend only apply to "l2".
func NewStore(storeType string, dimension int, backend string) (Store, error) {
	switch StoreType(storeType) {
	case StoreTypeCosine, "":
		return NewCosineStore(), nil
	case StoreTypeL2:
		s, err := NewIndexStore(dimension, L2Backend(backend))
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store type: %s (supported: cosine, l2)", storeType)
	}
}

// IsFAISSAvailable returns true if FAISS support is compiled in (build tag -tags=faiss).
func IsFAISSAvailable() bool {
	return faissAvailable
}

func resolveL2Backend(backend L2Backend) (L2Backend, error) {
	switch backend {
	case L2BackendAuto, "":
		if faissAvailable {
			return L2BackendFAISS, nil
		}
		return L2BackendNative, nil
	case L2BackendNative:
		return L2BackendNative, nil
	case L2BackendFAISS:
		if !faissAvailable {
			return "", ErrFAISSUnavailable
		}
		return L2BackendFAISS, nil
	default:
		return "", fmt.Errorf("unknown l2 backend: %s (supported: auto, native, faiss)", backend)
	}
}

func newFlatIndex(backend L2Backend, dimension int) (FlatIndex, IndexReader, error) {
	switch backend {
	case L2BackendFAISS:
		idx, err := newFAISSFlatIndex(dimension)
		if err != nil {
			return nil, nil, err
		}
		return idx, ReadFAISSFlatL2, nil
	default:
		idx, err := NewNativeFlatL2(dimension)
		if err != nil {
			return nil, nil, err
		}
		return idx, ReadNativeFlatL2, nil
	}
}
