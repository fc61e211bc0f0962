package cmd

import (
	"fmt"
	"io"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/backend/compress"
	"github.com/sahib/cowstore/backend/file"
	"github.com/sahib/cowstore/backend/kv"
	"github.com/sahib/cowstore/backend/memory"
)

// sourceSpec is a parsed source argument like "zip:/tmp/blob.cz".
type sourceSpec struct {
	Kind string
	Path string
	Name string
}

func (ss sourceSpec) String() string {
	if ss.Kind == "kv" {
		return fmt.Sprintf("kv:%s#%s", ss.Path, ss.Name)
	}

	return ss.Kind + ":" + ss.Path
}

var sourceKinds = []string{"file", "zip", "kv", "mem"}

// parseSource splits `arg` into kind and location.
// Arguments without a known kind are taken as file path.
func parseSource(arg string) (sourceSpec, error) {
	if arg == "" {
		return sourceSpec{}, fmt.Errorf("empty source")
	}

	spec := sourceSpec{Kind: "file", Path: arg}
	for _, kind := range sourceKinds {
		if strings.HasPrefix(arg, kind+":") {
			spec.Kind = kind
			spec.Path = arg[len(kind)+1:]
			break
		}
	}

	if spec.Kind == "mem" {
		return spec, nil
	}

	if spec.Kind == "kv" {
		split := strings.SplitN(spec.Path, "#", 2)
		if len(split) != 2 || split[0] == "" || split[1] == "" {
			return sourceSpec{}, fmt.Errorf("kv source needs the form kv:DIR#NAME: %s", arg)
		}

		spec.Path, spec.Name = split[0], split[1]
	}

	if spec.Path == "" {
		return sourceSpec{}, fmt.Errorf("source has no path: %s", arg)
	}

	path, err := homedir.Expand(spec.Path)
	if err != nil {
		return sourceSpec{}, err
	}

	spec.Path = path
	return spec, nil
}

type nopCloser struct{}

func (nc nopCloser) Close() error { return nil }

// openSource creates the backend described by `spec`.
// The returned closer releases everything it holds.
func openSource(spec sourceSpec, kvChunkSize int64) (backend.Backend, io.Closer, error) {
	switch spec.Kind {
	case "file":
		b := file.New(spec.Path)
		return b, b, nil
	case "zip":
		b := compress.NewFromFile(spec.Path)
		return b, b, nil
	case "mem":
		return memory.New([]byte(spec.Path)), nopCloser{}, nil
	case "kv":
		store, err := kv.Open(spec.Path, kvChunkSize)
		if err != nil {
			return nil, nil, err
		}

		return store.Blob(spec.Name), store, nil
	default:
		return nil, nil, fmt.Errorf("unknown source kind: %s", spec.Kind)
	}
}
