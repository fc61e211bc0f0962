package cmd

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/absfs/memfs"
	"github.com/dustin/go-humanize"
	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/backend/vfs"
	"github.com/sahib/cowstore/overlay"
	"github.com/sahib/cowstore/util"
	"github.com/sahib/cowstore/util/testutil"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	terminal "github.com/wayneashleyberry/terminal-dimensions"
)

type benchConfig struct {
	PageSize int64
	IOSize   int64
	Ops      int
	Seed     int64
}

type benchResult struct {
	Config    benchConfig
	Took      time.Duration
	Bytes     int64
	Usage     overlay.Usage
	BackendIO int64
}

// countingBackend counts how many bytes the overlay fetched.
type countingBackend struct {
	backend.Backend
	bytes int64
}

func (cb *countingBackend) Read(off, length int64) ([]byte, error) {
	data, err := cb.Backend.Read(off, length)
	cb.bytes += int64(len(data))
	return data, err
}

// runBench does random writes, reads and deletes on a fresh overlay.
func runBench(b backend.Backend, cfg benchConfig) (benchResult, error) {
	cb := &countingBackend{Backend: b}
	st := overlay.New(cb, overlay.Options{PageSize: cfg.PageSize})
	if err := st.Open(); err != nil {
		return benchResult{}, err
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	buf := testutil.CreateRandomDummyBuf(cfg.IOSize, cfg.Seed)
	size := st.Size()
	if size < cfg.IOSize {
		size = cfg.IOSize
	}

	res := benchResult{Config: cfg}
	start := time.Now()

	for idx := 0; idx < cfg.Ops; idx++ {
		off := rng.Int63n(size - cfg.IOSize + 1)

		var err error
		switch dice := rng.Intn(10); {
		case dice < 5:
			err = st.Write(off, buf)
		case dice < 9:
			if off+cfg.IOSize <= st.Size() {
				_, err = st.Read(off, cfg.IOSize)
			}
		default:
			if off+cfg.IOSize < st.Size() {
				err = st.Del(off, cfg.IOSize)
			}
		}

		if err != nil {
			return res, err
		}

		res.Bytes += cfg.IOSize
	}

	res.Took = time.Since(start)
	res.Usage = st.Usage()
	res.BackendIO = cb.bytes
	return res, nil
}

// memfsSource creates a blob of random data in an in-memory filesystem.
func memfsSource(size int64, seed int64) (backend.Backend, error) {
	fs, err := memfs.NewFS()
	if err != nil {
		return nil, err
	}

	fd, err := fs.Create("/bench")
	if err != nil {
		return nil, err
	}

	if _, err := fd.Write(testutil.CreateRandomDummyBuf(size, seed)); err != nil {
		fd.Close()
		return nil, err
	}

	if err := fd.Close(); err != nil {
		return nil, err
	}

	return vfs.New(fs, "/bench"), nil
}

func parsePageSizes(arg string) ([]int64, error) {
	sizes := []int64{}
	for _, field := range strings.Split(arg, ",") {
		size, err := parseNumber(strings.TrimSpace(field))
		if err != nil || size == 0 {
			return nil, fmt.Errorf("bad page size: %s", field)
		}

		sizes = append(sizes, size)
	}

	return sizes, nil
}

func handleBench(ctx *cli.Context) error {
	pageSizes, err := parsePageSizes(ctx.String("page-sizes"))
	if err != nil {
		return ExitCode{BadArgs, err.Error()}
	}

	ioSize, err := parseNumber(ctx.String("io-size"))
	if err != nil || ioSize == 0 {
		return ExitCode{BadArgs, fmt.Sprintf("bad io size: %s", ctx.String("io-size"))}
	}

	size, err := parseNumber(ctx.String("size"))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("bad size: %s", ctx.String("size"))}
	}

	seed := ctx.Int64("seed")

	var b backend.Backend
	if ctx.NArg() > 0 {
		st, closer, err := openStore(ctx, ctx.Args().First())
		if err != nil {
			return err
		}

		defer closer.Close()

		// An overlay is a fine backend for another overlay.
		b = st
	} else {
		log.Infof("generating %s of random data", humanize.IBytes(uint64(size)))
		if b, err = memfsSource(size, seed); err != nil {
			return ExitCode{UnknownError, err.Error()}
		}
	}

	drawHeading(fmt.Sprintf("%d ops with %s each", ctx.Int("ops"), humanize.IBytes(uint64(ioSize))))

	cells := barCells()

	var baseline time.Duration
	for idx, pageSize := range pageSizes {
		res, err := runBench(b, benchConfig{
			PageSize: pageSize,
			IOSize:   ioSize,
			Ops:      ctx.Int("ops"),
			Seed:     seed,
		})

		if err != nil {
			return ExitCode{BadSource, err.Error()}
		}

		if idx == 0 {
			baseline = res.Took
		}

		drawBar(res, baseline, cells)
	}

	return nil
}

func drawHeading(heading string) {
	fmt.Println()
	fmt.Println(heading)
	fmt.Println(strings.Repeat("=", len(heading)))
	fmt.Println()
}

// barCells returns how many cells a bar may take on this terminal.
func barCells() int {
	width, err := terminal.Width()
	if err != nil {
		return 40
	}

	// Leave room for the page size and the stats after the bar.
	return int(util.Clamp64(int64(width)-80, 10, 60))
}

func drawBar(res benchResult, ref time.Duration, cells int) {
	took := res.Took
	if took <= 0 {
		took = time.Nanosecond
	}

	perc := float64(ref) / float64(took)

	fmt.Printf("page %-10s [", humanize.IBytes(uint64(res.Config.PageSize)))
	for idx := 0; idx < cells; idx++ {
		if idx <= int(perc*float64(cells)/2) {
			fmt.Printf("=")
		} else {
			fmt.Printf(" ")
		}
	}

	throughput := float64(res.Bytes) / took.Seconds()
	fmt.Printf(
		"] %s/s, %d pages (%s), %s fetched\n",
		humanize.IBytes(uint64(throughput)),
		res.Usage.Pages,
		humanize.IBytes(uint64(res.Usage.Bytes)),
		humanize.IBytes(uint64(res.BackendIO)),
	)
}
