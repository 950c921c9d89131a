package player

import (
	"bufio"
	"io"
	"time"
)

type lineResult struct {
	text string
	err  error
}

// startPump launches the background stdin reader exactly once. Reading on a
// separate goroutine keeps the session's timers and context cancellation
// responsive while the terminal blocks on a line.
func (p *Player) startPump() {
	p.pumpOnce.Do(func() {
		p.lines = make(chan lineResult)
		go pump(p.in, p.lines)
	})
}

func pump(in io.Reader, out chan<- lineResult) {
	reader := bufio.NewReader(in)
	for {
		text, err := reader.ReadString('\n')

		// A final unterminated line still counts.
		if text != "" {
			out <- lineResult{text: text}
		}

		if err != nil {
			if err == io.EOF {
				close(out)
				return
			}
			out <- lineResult{err: err}
			// Backoff so a persistently failing reader cannot spin.
			time.Sleep(50 * time.Millisecond)
		}
	}
}
