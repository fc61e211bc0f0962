package compress

import (
	"errors"
	"sync"

	"github.com/bkaradzic/go-lz4"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// AlgorithmType user defined type to store the algorithm type.
type AlgorithmType byte

const (
	// AlgoNone represents a ,,uncompressed'' algorithm.
	AlgoNone = AlgorithmType(iota)

	// AlgoSnappy represents the snappy compression algorithm:
	// https://en.wikipedia.org/wiki/Snappy_(software)
	AlgoSnappy

	// AlgoLZ4 represents the lz4 compression algorithm:
	// https://en.wikipedia.org/wiki/LZ4_(compression_algorithm)
	AlgoLZ4

	// AlgoZstd represents zstandard, slower but stronger than the others.
	AlgoZstd
)

var (
	// ErrBadAlgo is returned on a unsupported/unknown algorithm.
	ErrBadAlgo = errors.New("invalid algorithm type")
)

// Algorithm is the common interface for all supported algorithms.
type Algorithm interface {
	Encode([]byte) ([]byte, error)
	Decode([]byte) ([]byte, error)
}

type noneAlgo struct{}
type snappyAlgo struct{}
type lz4Algo struct{}
type zstdAlgo struct{}

var (
	algoMap = map[AlgorithmType]Algorithm{
		AlgoNone:   noneAlgo{},
		AlgoSnappy: snappyAlgo{},
		AlgoLZ4:    lz4Algo{},
		AlgoZstd:   zstdAlgo{},
	}

	algoToString = map[AlgorithmType]string{
		AlgoNone:   "none",
		AlgoSnappy: "snappy",
		AlgoLZ4:    "lz4",
		AlgoZstd:   "zstd",
	}

	stringToAlgo = map[string]AlgorithmType{
		"none":   AlgoNone,
		"snappy": AlgoSnappy,
		"lz4":    AlgoLZ4,
		"zstd":   AlgoZstd,
	}
)

func (a noneAlgo) Encode(src []byte) ([]byte, error) {
	return src, nil
}

func (a noneAlgo) Decode(src []byte) ([]byte, error) {
	return src, nil
}

func (a snappyAlgo) Encode(src []byte) ([]byte, error) {
	return snappy.Encode(nil, src), nil
}

func (a snappyAlgo) Decode(src []byte) ([]byte, error) {
	return snappy.Decode(nil, src)
}

func (a lz4Algo) Encode(src []byte) ([]byte, error) {
	return lz4.Encode(nil, src)
}

func (a lz4Algo) Decode(src []byte) ([]byte, error) {
	return lz4.Decode(nil, src)
}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

// EncodeAll and DecodeAll may be used concurrently,
// so a single encoder/decoder pair is enough.
func zstdCodec() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil)
		if zstdErr != nil {
			return
		}

		zstdDec, zstdErr = zstd.NewReader(nil)
	})

	return zstdEnc, zstdDec, zstdErr
}

func (a zstdAlgo) Encode(src []byte) ([]byte, error) {
	enc, _, err := zstdCodec()
	if err != nil {
		return nil, err
	}

	return enc.EncodeAll(src, nil), nil
}

func (a zstdAlgo) Decode(src []byte) ([]byte, error) {
	_, dec, err := zstdCodec()
	if err != nil {
		return nil, err
	}

	return dec.DecodeAll(src, nil)
}

// IsValid returns true if `at` is a known algorithm type.
func (at AlgorithmType) IsValid() bool {
	_, ok := algoMap[at]
	return ok
}

func (at AlgorithmType) String() string {
	name, ok := algoToString[at]
	if !ok {
		return "unknown algorithm"
	}

	return name
}

// AlgorithmFromType returns a interface to the given AlgorithmType.
func AlgorithmFromType(a AlgorithmType) (Algorithm, error) {
	if algo, ok := algoMap[a]; ok {
		return algo, nil
	}

	return nil, ErrBadAlgo
}

// AlgoFromString tries to convert a string to AlgorithmType
func AlgoFromString(s string) (AlgorithmType, error) {
	algoType, ok := stringToAlgo[s]
	if !ok {
		return 0, ErrBadAlgo
	}

	return algoType, nil
}

// AlgoNames returns the names of all supported algorithms.
func AlgoNames() []string {
	return []string{"none", "snappy", "lz4", "zstd"}
}
