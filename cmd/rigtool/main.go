// rigtool is a CLI utility for inspecting, solving and serving IK rigs.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Faultbox/rigscope/internal/config"
	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/logger"
	"github.com/Faultbox/rigscope/internal/rig"
	"github.com/Faultbox/rigscope/internal/skeleton"
	"github.com/Faultbox/rigscope/internal/store"
	"github.com/Faultbox/rigscope/pkg/math"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "solve":
		cmdSolve(args)
	case "bench":
		cmdBench(args)
	case "presets":
		cmdPresets(args)
	case "serve":
		cmdServe(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`rigtool - IK rig utility

Usage:
  rigtool <command> [options]

Commands:
  info <model>                          Show bones, constraints and the handle bone
  solve <model> <bone> <x> <y> <z>      Solve one target and print the residual per pass
  bench <model> [bone]                  Solve random reachable targets and report statistics
  presets list <model-name>             List stored constraint overrides
  presets set <model-name> <bone> <spec> Store an override (JSON or YAML spec)
  presets delete <model-name> <bone>    Remove an override
  serve <model>                         Serve the inspect API for a model

Common options:
  -config <file>       Config file (solver, constraint and inspect settings)
  -constraints <file>  Constraint sidecar YAML
  -store <file>        Constraint preset database
  -debug               Enable debug logging

Examples:
  rigtool info arm.glb
  rigtool solve -constraints arm.yaml arm.glb hand 1 1 0
  rigtool bench -n 500 -seed 7 arm.glb
  rigtool presets -store rig.db set arm lower '{type: hinge, axis: z, min: 0, max: 2.6}'
  rigtool serve -addr :8080 -store rig.db arm.glb`)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// common holds flags shared by every subcommand.
type common struct {
	config      string
	constraints string
	store       string
	debug       bool
}

func addCommon(fs *flag.FlagSet) *common {
	c := &common{}
	fs.StringVar(&c.config, "config", "", "Config file")
	fs.StringVar(&c.constraints, "constraints", "", "Constraint sidecar YAML")
	fs.StringVar(&c.store, "store", "", "Constraint preset database")
	fs.BoolVar(&c.debug, "debug", false, "Enable debug logging")
	return c
}

// setup loads the config and initializes logging. Console logging stays at
// warn so it does not interleave with command output.
func (c *common) setup() (*config.Config, error) {
	cfg, err := config.LoadFile(c.config)
	if err != nil {
		return nil, err
	}
	if c.constraints != "" {
		cfg.Constraints.Sidecar = c.constraints
	}
	if c.store != "" {
		cfg.Store.Path = c.store
	}
	level := "warn"
	if c.debug {
		level = "debug"
	}
	if err := logger.Init(level, cfg.Logging.LogFile); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return cfg, nil
}

// load assembles the rig for a model file and applies stored presets.
// The returned cleanup closes the rig and the store.
func (c *common) load(path string) (*rig.Rig, *config.Config, *store.Store, func(), error) {
	cfg, err := c.setup()
	if err != nil {
		return nil, nil, nil, nil, err
	}

	r, err := rig.LoadFile(path, cfg.Constraints.Sidecar, rig.OptionsFromConfig(cfg))
	if err != nil && !errors.Is(err, rig.ErrNoBones) {
		return nil, nil, nil, nil, err
	}

	var presets *store.Store
	cleanup := func() {
		r.Close()
		if presets != nil {
			presets.Close()
		}
		logger.Sync()
	}

	if cfg.Store.Path != "" {
		presets, err = store.Open(cfg.Store.Path)
		if err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
		if _, err := presets.ApplyTo(context.Background(), r); err != nil {
			cleanup()
			return nil, nil, nil, nil, err
		}
	}
	return r, cfg, presets, cleanup, nil
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	c := addCommon(fs)
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool info [options] <model>")
		os.Exit(1)
	}

	r, _, _, cleanup, err := c.load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	snap := r.Snapshot()
	fmt.Printf("Model:   %s\n", snap.Model)
	fmt.Printf("Rig:     %s\n", snap.ID)
	fmt.Printf("Bones:   %d\n", snap.Bones)
	fmt.Printf("Handle:  %s\n", snap.HandleBone)
	if snap.Bones == 0 {
		return
	}
	fmt.Println()
	fmt.Println("Bones:")
	for _, b := range r.Bones() {
		name := strings.Repeat("  ", boneDepth(b)) + b.Name
		fmt.Printf("  %-32s %s\n", name, describeSpec(constraint.Describe(b.UserData.Constraint)))
	}
}

// boneDepth counts bone ancestors.
func boneDepth(b *skeleton.Node) int {
	depth := 0
	for p := b.Parent; p != nil && p.IsBone; p = p.Parent {
		depth++
	}
	return depth
}

// describeSpec formats a spec in its normalized form.
func describeSpec(s constraint.Spec) string {
	c, err := s.Build()
	if err != nil {
		return s.Type + " (invalid)"
	}
	s = constraint.Describe(c)
	switch s.Type {
	case constraint.KindHinge:
		return fmt.Sprintf("hinge %s [%.2f, %.2f]", s.Axis, *s.Min, *s.Max)
	case constraint.KindLimitRotation:
		parts := []string{"limitRotation"}
		for _, axis := range []string{"x", "y", "z"} {
			if r, ok := s.Limits[axis]; ok {
				parts = append(parts, fmt.Sprintf("%s[%.2f, %.2f]", axis, r.Min, r.Max))
			}
		}
		return strings.Join(parts, " ")
	case constraint.KindSpring:
		return fmt.Sprintf("spring k=%.2f d=%.2f", *s.Stiffness, *s.Damping)
	case constraint.KindNone:
		return "-"
	}
	return s.Type
}

func cmdSolve(args []string) {
	fs := flag.NewFlagSet("solve", flag.ExitOnError)
	c := addCommon(fs)
	fs.Parse(args)

	if fs.NArg() < 5 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool solve [options] <model> <bone> <x> <y> <z>")
		os.Exit(1)
	}
	target, err := parseVec3(fs.Args()[2:5])
	if err != nil {
		fatal(err)
	}

	r, _, _, cleanup, err := c.load(fs.Arg(0))
	if err != nil {
		fatal(err)
	}
	defer cleanup()

	res, err := r.Solve(fs.Arg(1), target)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("Initial distance: %.4f\n", res.Initial)
	for i, d := range res.Distances {
		fmt.Printf("  pass %2d: %.4f\n", i+1, d)
	}
	fmt.Printf("Final distance:   %.4f\n", res.Final)
	fmt.Printf("Converged:        %v\n", res.Converged)

	fmt.Println()
	for _, b := range r.BoneInfos() {
		fmt.Printf("  %-24s rot=(%.3f, %.3f, %.3f)\n", b.Name, b.Rotation[0], b.Rotation[1], b.Rotation[2])
	}
}

func parseVec3(args []string) (math.Vec3, error) {
	var v [3]float32
	for i, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return math.Vec3{}, fmt.Errorf("invalid coordinate %q: %w", a, err)
		}
		v[i] = float32(f)
	}
	return math.Vec3FromArray(v), nil
}
