package screen

import (
	"bufio"
	"io"
	"strings"
	"sync"
)

// Frame is everything a display needs to draw one screen
type Frame struct {
	Screen ID
	Title  string
	Lines  []string
	QR     [][]bool

	// Warning frames are drawn so they cannot be mistaken for a normal screen
	Warning bool
}

// Display draws frames. Drawing is synchronous.
type Display interface {
	Render(frame Frame) error
}

// ConsoleDisplay draws frames as text on a terminal
type ConsoleDisplay struct {
	mu sync.Mutex
	w  io.Writer
}

// NewConsoleDisplay returns a display writing to w
func NewConsoleDisplay(w io.Writer) *ConsoleDisplay {
	return &ConsoleDisplay{w: w}
}

const consoleWidth = 40

// Render writes frame to the terminal
func (c *ConsoleDisplay) Render(frame Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	bw := bufio.NewWriter(c.w)
	border := strings.Repeat("=", consoleWidth)
	if frame.Warning {
		border = strings.Repeat("!", consoleWidth)
	}

	bw.WriteString(border + "\n")
	bw.WriteString(" " + frame.Title + "\n")
	bw.WriteString(border + "\n")
	for _, line := range frame.Lines {
		bw.WriteString(" " + line + "\n")
	}
	if len(frame.QR) > 0 {
		writeQR(bw, frame.QR)
	}
	bw.WriteString(border + "\n")

	return bw.Flush()
}

// writeQR draws two module rows per text row with half block characters,
// inverted so the code scans on a dark terminal. A one module quiet zone
// is added around the matrix.
func writeQR(bw *bufio.Writer, matrix [][]bool) {
	size := len(matrix)
	dark := func(y, x int) bool {
		if y < 0 || y >= size || x < 0 || x >= len(matrix[y]) {
			return false
		}
		return matrix[y][x]
	}

	for y := -1; y <= size; y += 2 {
		for x := -1; x <= size; x++ {
			top, bottom := !dark(y, x), !dark(y+1, x)
			switch {
			case top && bottom:
				bw.WriteString("█")
			case top:
				bw.WriteString("▀")
			case bottom:
				bw.WriteString("▄")
			default:
				bw.WriteString(" ")
			}
		}
		bw.WriteString("\n")
	}
}
