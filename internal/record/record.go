// Package record encodes analysed systems as one comma separated line each:
//
//	utilisation, processor_count, n_0, ..., n_{p-1}, M, C, T, R, M, C, T, R, ...
//
// Tasks follow in processor order, R is -1 for tasks without a bound.
package record

import (
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"prem-rta/internal/prem"
)

var ErrMalformedRecord = errors.New("malformed record")

const separator = ", "

// Encode renders sys as a record line without the trailing newline.
func Encode(sys *prem.System) string {
	fields := []string{
		strconv.FormatFloat(sys.Utilisation, 'g', -1, 64),
		strconv.Itoa(len(sys.Processors)),
	}
	for _, p := range sys.Processors {
		fields = append(fields, strconv.Itoa(p.Len()))
	}
	for _, p := range sys.Processors {
		for _, t := range p.Tasks {
			fields = append(fields,
				strconv.Itoa(t.M),
				strconv.Itoa(t.C),
				strconv.Itoa(t.T),
				strconv.Itoa(t.R),
			)
		}
	}
	return strings.Join(fields, separator)
}

// Decode parses a record line. Deadlines are implicit and priorities are
// left unassigned; the state reflects which response times are present.
func Decode(line string) (*prem.System, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.TrimLeadingSpace = true
	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}
	return decodeFields(fields)
}

func decodeFields(fields []string) (*prem.System, error) {
	if len(fields) < 2 {
		return nil, fmt.Errorf("%w: %d fields", ErrMalformedRecord, len(fields))
	}
	util, err := strconv.ParseFloat(strings.TrimSpace(fields[0]), 64)
	if err != nil {
		return nil, fmt.Errorf("%w: utilisation: %v", ErrMalformedRecord, err)
	}

	ints := make([]int, len(fields)-1)
	for i, f := range fields[1:] {
		v, err := strconv.Atoi(strings.TrimSpace(f))
		if err != nil {
			return nil, fmt.Errorf("%w: field %d: %v", ErrMalformedRecord, i+1, err)
		}
		ints[i] = v
	}

	cpus := ints[0]
	if cpus < 0 || len(ints) < 1+cpus {
		return nil, fmt.Errorf("%w: bad processor count %d", ErrMalformedRecord, cpus)
	}
	counts := ints[1 : 1+cpus]
	rest := ints[1+cpus:]

	total := 0
	for _, n := range counts {
		if n < 0 {
			return nil, fmt.Errorf("%w: negative task count", ErrMalformedRecord)
		}
		total += n
	}
	if len(rest) != 4*total {
		return nil, fmt.Errorf("%w: expected %d task fields, got %d", ErrMalformedRecord, 4*total, len(rest))
	}

	sys := prem.NewSystem(util)
	analysed, unanalysed := 0, 0
	for _, n := range counts {
		p := prem.NewProcessor()
		for i := 0; i < n; i++ {
			m, c, t, rt := rest[0], rest[1], rest[2], rest[3]
			rest = rest[4:]
			task, err := prem.NewTask(m, c, t, 0)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrMalformedRecord, err)
			}
			if rt < 0 {
				unanalysed++
			} else {
				task.R = rt
				analysed++
			}
			p.Add(task)
		}
		sys.Processors = append(sys.Processors, p)
	}

	switch {
	case analysed == 0:
		sys.State = prem.Unanalysed
	case unanalysed == 0:
		sys.State = prem.Analysed
	default:
		sys.State = prem.Diverged
	}
	return sys, nil
}
