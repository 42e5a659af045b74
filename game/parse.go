package game

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"memory-scramble-server/gameerrors"
)

// Board file grammar:
//
//	ROWSxCOLS
//	LABEL_1
//	...
//	LABEL_{ROWS*COLS}
//	(blank line)
//
// exactly ROWS*COLS+2 lines, each label non-empty without whitespace.
// CRLF line endings are tolerated.
var headerPattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// ParseBoardFile reads a board file and builds the starting board.
func ParseBoardFile(path string) (*Board, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", gameerrors.ErrParse, path, err)
	}
	board, err := ParseBoard(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return board, nil
}

// ParseBoard parses board file content into a new Board.
func ParseBoard(content string) (*Board, error) {
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}

	// A file ending in "...\n\n" splits into a final empty element
	// beyond the grammar's blank line; drop such extras.
	for len(lines) > 2 && lines[len(lines)-1] == "" && lines[len(lines)-2] == "" {
		lines = lines[:len(lines)-1]
	}

	if len(lines) < 2 {
		return nil, fmt.Errorf("%w: want at least a header and a blank line, got %d lines", gameerrors.ErrParse, len(lines))
	}

	m := headerPattern.FindStringSubmatch(lines[0])
	if m == nil {
		return nil, fmt.Errorf("%w: bad header %q, want ROWSxCOLS", gameerrors.ErrParse, lines[0])
	}
	rows, err := strconv.Atoi(m[1])
	if err != nil {
		return nil, fmt.Errorf("%w: bad row count %q", gameerrors.ErrParse, m[1])
	}
	cols, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("%w: bad column count %q", gameerrors.ErrParse, m[2])
	}
	if rows <= 0 || cols <= 0 {
		return nil, fmt.Errorf("%w: board dimensions must be positive, got %dx%d", gameerrors.ErrParse, rows, cols)
	}

	want := rows*cols + 2
	if len(lines) != want {
		return nil, fmt.Errorf("%w: want %d lines (header, %d labels, blank), got %d", gameerrors.ErrParse, want, rows*cols, len(lines))
	}
	if lines[len(lines)-1] != "" {
		return nil, fmt.Errorf("%w: file must end with a blank line", gameerrors.ErrParse)
	}

	labels := lines[1 : rows*cols+1]
	grid := make([][]*Card, rows)
	for r := 0; r < rows; r++ {
		grid[r] = make([]*Card, cols)
		for c := 0; c < cols; c++ {
			card, err := NewCard(labels[r*cols+c])
			if err != nil {
				return nil, fmt.Errorf("%w: card at (%d,%d): %v", gameerrors.ErrParse, r, c, err)
			}
			grid[r][c] = card
		}
	}

	return NewBoard(rows, cols, grid)
}
