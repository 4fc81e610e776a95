package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Faultbox/rigscope/internal/constraint"
	"github.com/Faultbox/rigscope/internal/store"
)

func cmdPresets(args []string) {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	c := addCommon(fs)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: rigtool presets -store <db> list|set|delete <model-name> [bone] [spec]")
		os.Exit(1)
	}

	cfg, err := c.setup()
	if err != nil {
		fatal(err)
	}
	if cfg.Store.Path == "" {
		fatal(fmt.Errorf("no preset store, pass -store or set store.path"))
	}
	presets, err := store.Open(cfg.Store.Path)
	if err != nil {
		fatal(err)
	}
	defer presets.Close()

	ctx := context.Background()
	model := fs.Arg(1)

	switch fs.Arg(0) {
	case "list", "ls":
		overrides, err := presets.List(ctx, model)
		if err != nil {
			fatal(err)
		}
		for _, o := range overrides {
			fmt.Printf("  %-24s %-40s %s\n", o.Bone, describeSpec(o.Spec), o.UpdatedAt)
		}
		fmt.Printf("%d override(s)\n", len(overrides))

	case "set":
		if fs.NArg() < 4 {
			fatal(fmt.Errorf("set needs <model-name> <bone> <spec>"))
		}
		spec, err := parseSpec(fs.Arg(3))
		if err != nil {
			fatal(err)
		}
		if err := presets.Put(ctx, model, fs.Arg(2), spec); err != nil {
			fatal(err)
		}
		fmt.Printf("Stored %s/%s: %s\n", model, fs.Arg(2), describeSpec(spec))

	case "delete", "rm":
		if fs.NArg() < 3 {
			fatal(fmt.Errorf("delete needs <model-name> <bone>"))
		}
		if err := presets.Delete(ctx, model, fs.Arg(2)); err != nil {
			fatal(err)
		}
		fmt.Printf("Deleted %s/%s\n", model, fs.Arg(2))

	default:
		fatal(fmt.Errorf("unknown presets command %q", fs.Arg(0)))
	}
}

// parseSpec reads a spec written as JSON or YAML flow and validates it.
// Hinge and spring defaults are filled in so the stored form is complete.
func parseSpec(text string) (constraint.Spec, error) {
	var spec constraint.Spec
	if err := yaml.Unmarshal([]byte(text), &spec); err != nil {
		return constraint.Spec{}, fmt.Errorf("parsing spec: %w", err)
	}
	c, err := spec.Build()
	if err != nil {
		return constraint.Spec{}, err
	}
	return constraint.Describe(c), nil
}
