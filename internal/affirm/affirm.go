// Package affirm provides the finish-screen affirmations.
package affirm

import (
	"bufio"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strings"
	"time"
)

var defaultPool = []string{
	"Lightning fingers!",
	"You are speed!",
	"Keyboard ninja!",
	"Blistering!",
	"Ridiculous!",
	"Godlike!",
	"Insane pace!",
	"Turbo mode!",
}

// Source yields uniform values in [0, 1).
type Source interface {
	Float64() float64
}

// Default returns a copy of the built-in pool.
func Default() []string {
	return append([]string(nil), defaultPool...)
}

// NewRand returns a generator seeded with the current time.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// Pick selects an entry uniformly. The index is clamped so a source that
// returns 1.0 (or anything out of range) still lands inside the pool.
func Pick(src Source, pool []string) string {
	if len(pool) == 0 {
		return ""
	}
	idx := int(math.Floor(src.Float64() * float64(len(pool))))
	if idx < 0 {
		idx = 0
	}
	if idx > len(pool)-1 {
		idx = len(pool) - 1
	}
	return pool[idx]
}

// Load reads one affirmation per line from path. Blank lines and lines
// starting with # are skipped; a file with no entries is an error.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only file.
			_ = cerr
		}
	}()

	var pool []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pool = append(pool, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("affirmation list is empty")
	}
	return pool, nil
}
