package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"transit-sync/internal/syncer"
)

// promptResolver asks on the terminal which remaining route stop an
// unmatched timetable header is. A stop id picks it, an empty line skips the
// header, anything else stops the run.
type promptResolver struct {
	in  *bufio.Scanner
	out io.Writer
}

func newPromptResolver(in io.Reader, out io.Writer) *promptResolver {
	return &promptResolver{in: bufio.NewScanner(in), out: out}
}

func (p *promptResolver) Resolve(ctx context.Context, q syncer.MatchQuery) (syncer.MatchDecision, error) {
	if err := ctx.Err(); err != nil {
		return syncer.MatchDecision{}, err
	}
	fmt.Fprintln(p.out, strings.Repeat("-", 10))
	fmt.Fprintf(p.out, "%s: %s\n", q.Route.Name, q.Header.Raw)
	fmt.Fprintln(p.out, "May be one of:")
	for _, rp := range q.Remaining {
		fmt.Fprintf(p.out, "  %3d: %s\t\t%s\n", rp.Stop.ID, rp.Direction, rp.Stop)
	}
	fmt.Fprintln(p.out, "? (stop number, empty line to skip, 0 to exit)")
	fmt.Fprint(p.out, "> ")

	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return syncer.MatchDecision{}, err
		}
		return syncer.MatchDecision{Abort: true}, nil
	}
	line := strings.TrimSpace(p.in.Text())
	if line == "" {
		return syncer.MatchDecision{}, nil
	}
	id, err := strconv.ParseInt(line, 10, 64)
	if err != nil || id == 0 {
		return syncer.MatchDecision{Abort: true}, nil
	}
	for _, rp := range q.Remaining {
		if rp.Stop.ID == id {
			return syncer.MatchDecision{Stop: rp.Stop}, nil
		}
	}
	return syncer.MatchDecision{Abort: true}, nil
}
