package source

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

// Reader turns lines of text into ticks: every line containing a "t" is
// one tick, anything else is ignored.
type Reader struct {
	R io.Reader
}

// Run reads lines until the input ends or ctx is done. Reaching the end of
// the input is not an error.
//
// When ctx is done and R is an io.Closer, R is closed to unblock the
// pending read. Otherwise the reading goroutine stays blocked until the
// next line or the end of the process.
func (s Reader) Run(ctx context.Context, onTick func()) error {
	lines := make(chan string)
	errc := make(chan error, 1)

	go func() {
		defer close(lines)
		sc := bufio.NewScanner(s.R)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			if c, ok := s.R.(io.Closer); ok {
				_ = c.Close()
			}
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-errc:
					if err != nil {
						return fmt.Errorf("read ticks: %w", err)
					}
				default:
				}
				return nil
			}
			if strings.Contains(line, "t") {
				onTick()
			}
		}
	}
}
