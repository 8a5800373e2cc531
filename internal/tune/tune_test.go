package tune

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridforge/stencil/internal/bind"
	"github.com/gridforge/stencil/internal/ir"
	"github.com/gridforge/stencil/internal/loopeng"
)

// =============================================================================
// Expansion (pure function)
// =============================================================================

func TestExpand_TailSwaps(t *testing.T) {
	base := [][]int{{8, 8}, {16, 16}}

	out := Expand(base)

	// Prefix of {8,8} with {16,16}'s tail.
	assert.Contains(t, out, []int{8, 16})
	// And the symmetric swap.
	assert.Contains(t, out, []int{16, 8})
	// Originals come first, in order.
	assert.Equal(t, []int{8, 8}, out[0])
	assert.Equal(t, []int{16, 16}, out[1])
}

func TestExpand_SubsetDoubling(t *testing.T) {
	out := Expand([][]int{{8, 8}})

	// Every non-empty subset of parameters doubled: first only, second
	// only, both.
	assert.Contains(t, out, []int{16, 8})
	assert.Contains(t, out, []int{8, 16})
	assert.Contains(t, out, []int{16, 16})
}

func TestExpand_HandComputedSingleParameter(t *testing.T) {
	// Width 1: tail swaps regenerate the base rows, subset doubling adds
	// exactly one doubled row per candidate.
	out := Expand([][]int{{8}, {16}})
	assert.Equal(t, [][]int{{8}, {16}, {32}}, out)
}

func TestExpand_NoDuplicates(t *testing.T) {
	out := Expand([][]int{{8, 8}, {16, 16}, {32, 32}})

	seen := make(map[string]bool)
	for _, c := range out {
		key := fingerprint(c)
		assert.False(t, seen[key], "duplicate candidate %v", c)
		seen[key] = true
	}
}

// =============================================================================
// Search
// =============================================================================

func searchFixture() (*bind.Args, []loopeng.BlockParam) {
	x := ir.NewDimension("x")
	args := bind.NewArgs()
	args.Set("u", ir.NewGrid(40))
	args.Set("x", 40)
	args.Set("x_block_size", 40)
	return args, []loopeng.BlockParam{{Name: "x_block_size", Dim: x}}
}

func TestSearch_SelectsEmpiricalMinimum(t *testing.T) {
	args, blocks := searchFixture()

	times := map[int]float64{8: 5.0, 16: 3.0, 32: 4.0}
	run := func(trial *bind.Args) (float64, error) {
		if v, ok := times[trial.Int("x_block_size")]; ok {
			return v, nil
		}
		return 9.0, nil
	}

	winner, err := Search(Request{
		Args:   args,
		Blocks: blocks,
		Run:    run,
		Config: Config{BlockSizes: []int{8, 16, 32}, Squeezer: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 16, winner["x_block_size"])
	assert.Equal(t, 16, args.Int("x_block_size"), "winner is committed to the caller's arguments")
}

func TestSearch_IllegalCandidateExcludedEvenIfCheapest(t *testing.T) {
	args, blocks := searchFixture() // extent x = 40

	run := func(trial *bind.Args) (float64, error) {
		if trial.Int("x_block_size") == 64 {
			return 0.1, nil // would win, but 64 > 40 is illegal
		}
		return 1.0, nil
	}

	winner, err := Search(Request{
		Args:   args,
		Blocks: blocks,
		Run:    run,
		Config: Config{BlockSizes: []int{8, 64}, Squeezer: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, winner["x_block_size"])
}

func TestSearch_FirstMinimumWinsTies(t *testing.T) {
	args, blocks := searchFixture()

	run := func(trial *bind.Args) (float64, error) { return 2.0, nil }

	winner, err := Search(Request{
		Args:   args,
		Blocks: blocks,
		Run:    run,
		Config: Config{BlockSizes: []int{8, 16}, Squeezer: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 8, winner["x_block_size"], "ties break by discovery order")
}

func TestSearch_OutputBuffersAreNotMutated(t *testing.T) {
	args, blocks := searchFixture()
	out := args.Grid("u")
	out.Fill(7)

	run := func(trial *bind.Args) (float64, error) {
		trial.Grid("u").Fill(0) // the trial scribbles on its buffer
		assert.NotSame(t, out, trial.Grid("u"), "trials must see a private copy")
		return 1.0, nil
	}

	_, err := Search(Request{
		Args:    args,
		Blocks:  blocks,
		Outputs: []string{"u"},
		Run:     run,
		Config:  Config{BlockSizes: []int{8}, Squeezer: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 7.0, out.At(0), "caller-visible output survives the search untouched")
}

func TestSearch_SqueezableDimensionsShrink(t *testing.T) {
	args, blocks := searchFixture()
	args.Set("time", 1000)

	var sawTime int
	run := func(trial *bind.Args) (float64, error) {
		sawTime = trial.Int("time")
		return 1.0, nil
	}

	_, err := Search(Request{
		Args:       args,
		Blocks:     blocks,
		Squeezable: []string{"time"},
		Run:        run,
		Config:     Config{BlockSizes: []int{8}, Squeezer: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, sawTime, "trials run with the squeezed extent")
	assert.Equal(t, 1000, args.Int("time"), "the real invocation keeps the full extent")
}

func TestSearch_AllIllegalIsExplicitFailure(t *testing.T) {
	args, blocks := searchFixture()
	args.Set("x", 0) // extent never resolved

	run := func(trial *bind.Args) (float64, error) {
		t.Fatal("no trial should execute")
		return 0, nil
	}

	_, err := Search(Request{
		Args:   args,
		Blocks: blocks,
		Run:    run,
		Config: Config{BlockSizes: []int{8, 16}, Squeezer: 3},
	})
	require.Error(t, err)
	var nce *NoCandidateError
	assert.True(t, errors.As(err, &nce))
}
