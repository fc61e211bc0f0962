package testutil

import (
	"io/ioutil"
	"math/rand"
	"os"
	"testing"
)

// CreateDummyBuf creates a byte slice that is `size` big.
// It's filled with the repeating numbers [0...254].
func CreateDummyBuf(size int64) []byte {
	buf := make([]byte, size)

	for i := int64(0); i < size; i++ {
		// Be evil and stripe the data:
		buf[i] = byte(i % 255)
	}

	return buf
}

// CreateRandomDummyBuf creates data that is hard to compress.
// The same seed will always yield the same data.
func CreateRandomDummyBuf(size, seed int64) []byte {
	buf := make([]byte, size)
	rand.New(rand.NewSource(seed)).Read(buf)
	return buf
}

// CreateFile writes `data` to a temporary file and returns its path.
func CreateFile(t *testing.T, data []byte) string {
	fd, err := ioutil.TempFile("", "cowstore-test")
	if err != nil {
		t.Fatalf("cannot create temp file: %v", err)
	}

	if _, err := fd.Write(data); err != nil {
		t.Fatalf("cannot write temp file: %v", err)
	}

	if err := fd.Close(); err != nil {
		t.Fatalf("cannot close temp file: %v", err)
	}

	return fd.Name()
}

// Remover removes all files in paths recursively and errors when it fails.
// It is no error if there's nothing to delete. It's useful in defer statements.
func Remover(t *testing.T, paths ...string) {
	for _, path := range paths {
		if err := os.RemoveAll(path); err != nil {
			t.Errorf("removing temp directory failed: %v", err)
		}
	}
}
