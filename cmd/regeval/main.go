// Command regeval runs a compiled program against the register-machine
// evaluator: it loads a stack-bytecode program, wires up the lazy compiler
// and optional instrumentation, and evaluates the program's entry function.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/regvm/compiler"
	"github.com/chazu/regvm/config"
	"github.com/chazu/regvm/runtime"
	"github.com/chazu/regvm/vm"
	"github.com/chazu/regvm/vm/image"
	"github.com/chazu/regvm/vm/statsstore"
)

func main() {
	verbose := flag.Bool("v", false, "Verbose output")
	profile := flag.Bool("profile", false, "Record per-opcode execution counters")
	entry := flag.String("m", "main", "Entry function name to evaluate")
	configDir := flag.String("C", ".", "Directory to search for regvm.toml")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: regeval [options] <program.svm>\n\n")
		fmt.Fprintf(os.Stderr, "Evaluates a compiled stack-bytecode program through the register-machine evaluator.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	log := commonlog.GetLogger("regeval")

	cfg, err := config.FindAndLoad(*configDir)
	if err != nil {
		log.Errorf("config: %s", err.Error())
		os.Exit(1)
	}

	rt := runtime.New()
	rt.SetInstructionLimit(cfg.Runtime.InstructionLimit)

	comp := compiler.NewCompiler()
	vm.SetCompiler(comp)

	var profiler *vm.Profiler
	if *profile {
		profiler = vm.NewProfiler()
		profiler.Enable()
		vm.SetProfiler(profiler)
	}

	var store *image.Store
	if cfg.Cache.Enabled {
		store, err = image.NewStore(cfg.CacheDirPath())
		if err != nil {
			log.Errorf("cache: %s", err.Error())
			os.Exit(1)
		}
		defer store.Close()
	}

	blob, err := os.ReadFile(flag.Arg(0))
	if err != nil {
		log.Errorf("reading program: %s", err.Error())
		os.Exit(1)
	}

	fv, err := loadEntryFunction(blob, *entry)
	if err != nil {
		log.Errorf("loading entry function %q: %s", *entry, err.Error())
		os.Exit(1)
	}

	result, err := vm.Eval(rt, runtime.NewFunction(fv), nil)
	if err != nil {
		log.Errorf("evaluation failed: %s", err.Error())
		os.Exit(1)
	}
	rt.Flush(rt.Stdout())
	if *verbose {
		log.Infof("result: %s", rt.Str(result))
	}

	if *profile && profiler != nil {
		profiler.DumpStatus()
		if cfg.Stats.Enabled {
			if err := recordStats(cfg, profiler); err != nil {
				log.Errorf("stats: %s", err.Error())
			}
		}
	}
}

// loadEntryFunction decodes blob as a single encoded StackProgram (see
// compiler.Encode) and wraps it as the named function's uncompiled body.
// A single top-level entry program is all this command loads; multi-function
// program images with a module/import system are not supported.
func loadEntryFunction(blob []byte, name string) (*runtime.FunctionValue, error) {
	if _, err := compiler.Decode(blob); err != nil {
		return nil, err
	}
	return &runtime.FunctionValue{
		Name:          name,
		ArgCount:      0,
		StackBytecode: blob,
	}, nil
}

func recordStats(cfg *config.Config, profiler *vm.Profiler) error {
	store, err := statsstore.Open(cfg.StatsPath())
	if err != nil {
		return err
	}
	defer store.Close()
	return store.RecordRun("regeval", profiler.Stats())
}
