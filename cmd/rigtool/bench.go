package main

import (
	"flag"
	"fmt"
	gomath "math"
	"math/rand/v2"
	"os"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/Faultbox/rigscope/internal/ik"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/pkg/math"
)

// benchSummary aggregates random-target solves.
type benchSummary struct {
	Trials     int
	Converged  int
	Rate       float64
	MeanFinal  float64
	StdFinal   float64
	P50Final   float64
	P95Final   float64
	MaxFinal   float64
	MeanPasses float64
}

// reach returns the chain root position and the summed segment lengths.
func reach(chain []*skeleton.Node) (math.Vec3, float32) {
	if len(chain) == 0 {
		return math.Vec3{}, 0
	}
	var length float32
	for i := 1; i < len(chain); i++ {
		length += chain[i].WorldPosition().Distance(chain[i-1].WorldPosition())
	}
	return chain[0].WorldPosition(), length
}

// sampleBall returns a uniform point in the ball of radius around center.
func sampleBall(rng *rand.Rand, center math.Vec3, radius float32) math.Vec3 {
	dir := math.Vec3{X: float32(rng.NormFloat64()), Y: float32(rng.NormFloat64()), Z: float32(rng.NormFloat64())}
	if dir.Length() < 1e-6 {
		dir = math.Vec3{Y: 1}
	}
	r := radius * float32(gomath.Cbrt(rng.Float64()))
	return center.Add(dir.Normalize().Scale(r))
}

// runBench solves n random targets inside the reach of the chain ending at
// bone. The pose is reset before every trial, so a seed yields one result.
func runBench(r *rig.Rig, bone string, n int, seed uint64) (benchSummary, error) {
	tip := r.Store().Find(bone)
	if tip == nil {
		return benchSummary{}, fmt.Errorf("%w: %q", rig.ErrUnknownBone, bone)
	}
	r.ResetPose()
	center, length := reach(ik.BuildChain(r.Bones(), tip))

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	finals := make([]float64, 0, n)
	passes := make([]float64, 0, n)
	converged := 0
	for i := 0; i < n; i++ {
		r.ResetPose()
		target := sampleBall(rng, center, length)
		res, err := r.Solve(bone, target)
		if err != nil {
			return benchSummary{}, err
		}
		finals = append(finals, float64(res.Final))
		passes = append(passes, float64(res.Passes))
		if res.Converged {
			converged++
		}
	}
	r.ResetPose()
	return summarize(finals, passes, converged), nil
}

func summarize(finals, passes []float64, converged int) benchSummary {
	s := benchSummary{Trials: len(finals), Converged: converged}
	if s.Trials == 0 {
		return s
	}
	sorted := append([]float64(nil), finals...)
	sort.Float64s(sorted)

	s.Rate = float64(converged) / float64(s.Trials)
	s.MeanFinal, s.StdFinal = stat.MeanStdDev(sorted, nil)
	s.P50Final = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	s.P95Final = stat.Quantile(0.95, stat.Empirical, sorted, nil)
	s.MaxFinal = sorted[len(sorted)-1]
	s.MeanPasses = stat.Mean(passes, nil)
	return s
}

func cmdBench(args []string) {
	fs := flag.NewFlagSet("bench", flag.ExitOnError)
	c := addCommon(fs)
	n := fs.Int("n", 200, "Number of random targets")
	seed := fs.Uint64("seed", 1, "Random seed")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool bench [options] <model> [bone]")
		os.Exit(1)
	}

	r, _, _, cleanup, err := c.load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	bone := fs.Arg(1)
	if bone == "" && r.Handle() != nil {
		bone = r.Handle().BoneName()
	}

	s, err := runBench(r, bone, *n, *seed)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Bone:        %s\n", bone)
	fmt.Printf("Trials:      %d\n", s.Trials)
	fmt.Printf("Converged:   %d (%.1f%%)\n", s.Converged, s.Rate*100)
	fmt.Printf("Final dist:  mean=%.4f sd=%.4f p50=%.4f p95=%.4f max=%.4f\n",
		s.MeanFinal, s.StdFinal, s.P50Final, s.P95Final, s.MaxFinal)
	fmt.Printf("Passes:      mean=%.2f\n", s.MeanPasses)
}
