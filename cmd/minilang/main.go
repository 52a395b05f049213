// minilang CLI - compiles and runs minilang programs
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"

	"github.com/chazu/minilang/cache"
	"github.com/chazu/minilang/driver"
	"github.com/chazu/minilang/manifest"
	"github.com/chazu/minilang/server"
	"github.com/chazu/minilang/vm"
	"github.com/chazu/minilang/vm/dist"
)

// Exit codes follow sysexits.h.
const (
	exitOK      = 0
	exitUsage   = 64
	exitCompile = 65
	exitRuntime = 70
	exitIOError = 74
)

const chunkFileExt = ".mlc"

var log = commonlog.GetLogger("minilang")

func main() {
	os.Exit(realMain())
}

func realMain() int {
	verbosity := flag.Int("v", 0, "Log verbosity (0 errors only, 4 debug)")
	disasm := flag.Bool("disasm", false, "Print the compiled bytecode before running")
	output := flag.String("o", "", "Write the compiled chunk to this file instead of running it")
	lspMode := flag.Bool("lsp", false, "Serve the language server protocol on stdio")
	configDir := flag.String("config", "", "Directory containing minilang.toml (default: search upward from .)")
	noCache := flag.Bool("no-cache", false, "Do not read or write the compiled-chunk cache")
	trace := flag.Bool("trace", false, "Log every executed instruction (implies -v 4)")
	evalExpr := flag.String("e", "", "Evaluate an expression and print its value")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: minilang [options] [file.ml | file.mlc]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles and runs a minilang program. With no file, runs the project entry from minilang.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  minilang hello.ml               # Compile and run\n")
		fmt.Fprintf(os.Stderr, "  minilang -disasm hello.ml       # Show bytecode, then run\n")
		fmt.Fprintf(os.Stderr, "  minilang -o hello.mlc hello.ml  # Compile to a chunk file\n")
		fmt.Fprintf(os.Stderr, "  minilang hello.mlc              # Run a compiled chunk\n")
		fmt.Fprintf(os.Stderr, "  minilang -e '2 * 21'            # Evaluate an expression\n")
		fmt.Fprintf(os.Stderr, "  minilang -lsp                   # Start the language server\n")
	}
	flag.Parse()

	m, err := loadManifest(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	level := *verbosity
	if m.Log.Verbosity > level {
		level = m.Log.Verbosity
	}
	traceOn := *trace || m.VM.Trace
	if traceOn && level < 4 {
		level = 4
	}
	commonlog.Configure(level, nil)

	opts, err := m.CompilerOptions()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return exitUsage
	}

	if *lspMode {
		if err := server.NewLSP(opts).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "LSP error: %v\n", err)
			return 1
		}
		return exitOK
	}

	var path string
	switch {
	case *evalExpr != "":
		if flag.NArg() > 0 {
			flag.Usage()
			return exitUsage
		}
	case flag.NArg() == 0:
		path = m.EntryPath()
	case flag.NArg() == 1:
		path = flag.Arg(0)
	default:
		flag.Usage()
		return exitUsage
	}

	driverOpts := []driver.Option{
		driver.WithCompilerOptions(opts),
		driver.WithTrace(traceOn),
		driver.WithLogger(log),
	}
	if m.CacheEnabled() && !*noCache && *output == "" {
		store, err := cache.Open(m.CachePath())
		if err != nil {
			log.Warningf("cache disabled: %s", err)
		} else {
			defer store.Close()
			driverOpts = append(driverOpts, driver.WithCache(store))
		}
	}
	d := driver.New(driverOpts...)

	if *evalExpr != "" {
		return evaluate(d, *evalExpr, os.Stdout)
	}
	return run(d, path, *disasm, *output)
}

// evaluate prints the value of a single expression to w.
func evaluate(d *driver.Driver, expr string, w io.Writer) int {
	v, err := d.Eval(expr)
	if err != nil {
		var rerr *vm.RuntimeError
		if errors.As(err, &rerr) {
			fmt.Fprintf(os.Stderr, "runtime error: %v\n", err)
			return exitRuntime
		}
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitCompile
	}
	fmt.Fprintln(w, v)
	return exitOK
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	if dir != "" {
		return manifest.Load(dir)
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil || m != nil {
		return m, err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return manifest.Default(cwd), nil
}

func run(d *driver.Driver, path string, disasm bool, output string) int {
	chunk, code := load(d, path)
	if chunk == nil {
		return code
	}

	if disasm {
		fmt.Print(vm.Disassemble(chunk, filepath.Base(path)))
	}

	if output != "" {
		data, err := dist.Encode(chunk)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitIOError
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return exitIOError
		}
		log.Infof("wrote %s (%d bytes)", output, len(data))
		return exitOK
	}

	switch d.RunChunk(chunk) {
	case vm.InterpretOK:
		return exitOK
	case vm.InterpretCompileError:
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, d.Err())
		return exitCompile
	default:
		fmt.Fprintf(os.Stderr, "%s: runtime error: %v\n", path, d.Err())
		return exitRuntime
	}
}

// load compiles a source file or decodes a chunk file. On failure it
// returns a nil chunk and the exit code to use.
func load(d *driver.Driver, path string) (*vm.Chunk, int) {
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return nil, exitIOError
	}

	if strings.HasSuffix(path, chunkFileExt) {
		chunk, err := dist.Decode(data)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			return nil, exitIOError
		}
		return chunk, exitOK
	}

	chunk, err := d.Compile(string(data))
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		return nil, exitCompile
	}
	return chunk, exitOK
}
