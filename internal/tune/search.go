package tune

import (
	"fmt"
	"log/slog"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/loopeng"
)

// DefaultBlockSizes is the square block-size ladder tried by every search.
var DefaultBlockSizes = []int{8, 16, 24, 32, 40, 64, 128}

// DefaultSqueezer is the trial extent substituted for squeezable
// dimensions so each trial run stays cheap.
const DefaultSqueezer = 3

// Config tunes the search itself.
type Config struct {
	BlockSizes []int
	Squeezer   int
	// Aggressive enables the expanded candidate set (see Expand).
	Aggressive bool
}

// DefaultConfig returns the standard search configuration.
func DefaultConfig() Config {
	return Config{BlockSizes: DefaultBlockSizes, Squeezer: DefaultSqueezer}
}

// RunFunc executes the native routine once with the given trial arguments
// and returns the total measured wall seconds.
type RunFunc func(args *bind.Args) (float64, error)

// NoCandidateError reports a search in which every candidate was illegal
// for the resolved dimension extents. The caller must not proceed with an
// unset block size.
type NoCandidateError struct {
	Tried int
}

func (e *NoCandidateError) Error() string {
	return fmt.Sprintf("autotuning failed: all %d block-size candidates exceed the iteration extents", e.Tried)
}

// Request describes one search.
type Request struct {
	// Args is the caller's bound argument mapping. The winning block shape
	// is written back into it; nothing else is modified.
	Args *bind.Args
	// Blocks are the blocking parameters under search, in declaration
	// order.
	Blocks []loopeng.BlockParam
	// Outputs names the parameters written by the computation; their
	// buffers are replaced by private copies for the trials.
	Outputs []string
	// Squeezable names dimension parameters safe to shrink to the
	// squeezer value during trials (buffered axes under a strictly
	// sequential loop).
	Squeezable []string
	Run        RunFunc
	Config     Config
	Logger     *slog.Logger
}

// Search runs the empirical block-size search and commits the fastest
// legal configuration into req.Args. Illegal candidates are skipped, never
// reported; an entirely illegal candidate set is an explicit failure.
func Search(req Request) (map[string]int, error) {
	if len(req.Blocks) == 0 {
		return nil, nil
	}
	cfg := req.Config
	if len(cfg.BlockSizes) == 0 {
		cfg.BlockSizes = DefaultBlockSizes
	}
	if cfg.Squeezer == 0 {
		cfg.Squeezer = DefaultSqueezer
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// Clone the mapping and substitute private copies for every output so
	// trial runs cannot corrupt caller-visible state.
	trial := req.Args.Clone()
	for _, name := range req.Outputs {
		if g := trial.Grid(name); g != nil {
			trial.Set(name, g.Clone())
		}
	}
	for _, name := range req.Squeezable {
		trial.Set(name, cfg.Squeezer)
	}

	names := make([]string, len(req.Blocks))
	for i, bp := range req.Blocks {
		names[i] = bp.Name
	}

	// Square candidates from the ladder, optionally expanded, plus the
	// unit (no blocking) candidate.
	candidates := make([][]int, 0, len(cfg.BlockSizes)+1)
	for _, v := range cfg.BlockSizes {
		row := make([]int, len(names))
		for i := range row {
			row[i] = v
		}
		candidates = append(candidates, row)
	}
	if cfg.Aggressive {
		candidates = Expand(candidates)
	}
	unit := make([]int, len(names))
	for i := range unit {
		unit[i] = 1
	}
	candidates = append(candidates, unit)

	best := -1
	var bestTime float64
	for idx, row := range candidates {
		if !legal(row, req.Blocks, trial) {
			continue
		}
		for i, name := range names {
			trial.Set(name, row[i])
		}
		elapsed, err := req.Run(trial)
		if err != nil {
			return nil, fmt.Errorf("autotuning trial %v: %w", row, err)
		}
		logger.Debug("autotuning trial", "blocks", row, "elapsed", elapsed)
		if best < 0 || elapsed < bestTime {
			best = idx
			bestTime = elapsed
		}
	}
	if best < 0 {
		return nil, &NoCandidateError{Tried: len(candidates)}
	}

	winner := make(map[string]int, len(names))
	for i, name := range names {
		winner[name] = candidates[best][i]
		req.Args.Set(name, candidates[best][i])
	}
	logger.Info("autotuned block shape", "blocks", winner, "elapsed", bestTime)
	return winner, nil
}

// legal verifies no trial value exceeds the resolved extent of its
// governing dimension, using the squeezed extent where one applies. An
// unresolved extent rejects every candidate; a block size cannot be
// certified against an unknown loop bound.
func legal(row []int, blocks []loopeng.BlockParam, trial *bind.Args) bool {
	for i, bp := range blocks {
		extent := trial.Int(bp.Dim.Name)
		if extent == 0 {
			extent = bp.Dim.Size
		}
		if row[i] > extent {
			return false
		}
	}
	return true
}
