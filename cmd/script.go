package cmd

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sahib/cowstore/backend"
	"github.com/sahib/cowstore/overlay"
)

type opKind int

const (
	opWrite opKind = iota
	opDel
	opTruncate
	opRead
	opStat
)

var opNames = map[string]opKind{
	"write":    opWrite,
	"del":      opDel,
	"truncate": opTruncate,
	"read":     opRead,
	"stat":     opStat,
}

// opArgs is the number of arguments each operation takes.
var opArgs = map[opKind]int{
	opWrite:    2,
	opDel:      2,
	opTruncate: 1,
	opRead:     2,
	opStat:     0,
}

// scriptOp is a single line of an apply script.
type scriptOp struct {
	Kind opKind
	Line int
	Off  int64
	Len  int64
	Data []byte
}

// ScriptError tells which line of a script is broken.
type ScriptError struct {
	Line int
	Err  error
}

func (se *ScriptError) Error() string {
	return fmt.Sprintf("line %d: %v", se.Line, se.Err)
}

// parseNumber accepts plain numbers and sizes like "4K" or "1MiB".
func parseNumber(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, err
	}

	if n > uint64(overlay.ToEnd) {
		return 0, fmt.Errorf("number too big: %s", s)
	}

	return int64(n), nil
}

func parseLength(s string) (int64, error) {
	if s == "end" {
		return overlay.ToEnd, nil
	}

	return parseNumber(s)
}

func parseWriteData(s string) ([]byte, error) {
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("bad quoted data: %v", err)
		}

		return []byte(unquoted), nil
	}

	return []byte(s), nil
}

func parseOp(line string) (scriptOp, error) {
	fields := strings.Fields(line)
	kind, ok := opNames[fields[0]]
	if !ok {
		return scriptOp{}, fmt.Errorf("unknown operation: %s", fields[0])
	}

	nargs := opArgs[kind]
	if len(fields)-1 < nargs || (kind != opWrite && len(fields)-1 > nargs) {
		return scriptOp{}, fmt.Errorf("%s needs %d arguments", fields[0], nargs)
	}

	op := scriptOp{Kind: kind}
	if nargs == 0 {
		return op, nil
	}

	off, err := parseNumber(fields[1])
	if err != nil {
		return scriptOp{}, err
	}

	op.Off = off

	switch kind {
	case opWrite:
		// Data is everything after the offset, including spaces.
		rest := strings.TrimSpace(line)
		rest = strings.TrimSpace(rest[len(fields[0]):])
		rest = strings.TrimSpace(rest[len(fields[1]):])
		op.Data, err = parseWriteData(rest)
	case opDel:
		op.Len, err = parseLength(fields[2])
	case opRead:
		op.Len, err = parseNumber(fields[2])
	}

	if err != nil {
		return scriptOp{}, err
	}

	return op, nil
}

// parseScript reads one operation per line.
// Empty lines and lines starting with '#' are skipped.
//
//   write <off> <data>     data may be a Go quoted string
//   del <off> <len|end>
//   truncate <size>
//   read <off> <len>
//   stat
func parseScript(r io.Reader) ([]scriptOp, error) {
	ops := []scriptOp{}
	scanner := bufio.NewScanner(r)

	for lineNo := 1; scanner.Scan(); lineNo++ {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		op, err := parseOp(line)
		if err != nil {
			return nil, &ScriptError{Line: lineNo, Err: err}
		}

		op.Line = lineNo
		ops = append(ops, op)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return ops, nil
}

// runScript applies `ops` to `st`. Results of read and stat
// are printed to `w`.
func runScript(st *overlay.Store, ops []scriptOp, w io.Writer) error {
	for _, op := range ops {
		var err error

		switch op.Kind {
		case opWrite:
			err = st.Write(op.Off, op.Data)
		case opDel:
			err = st.Del(op.Off, op.Len)
		case opTruncate:
			err = st.Truncate(op.Off)
		case opRead:
			var data []byte
			if data, err = st.Read(op.Off, op.Len); err == nil {
				fmt.Fprintf(w, "%d+%d: %q\n", op.Off, op.Len, data)
			}
		case opStat:
			var info backend.Info
			if info, err = st.Stat(); err == nil {
				fmt.Fprintf(w, "size: %d\n", info.Size)
			}
		}

		if err != nil {
			return &ScriptError{Line: op.Line, Err: err}
		}
	}

	return nil
}
