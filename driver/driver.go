// Package driver ties the compiler and the VM together: it compiles source
// text (optionally through a chunk cache) and runs the result on a fresh VM.
package driver

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
	"strconv"

	"github.com/chazu/minilang/compiler"
	"github.com/chazu/minilang/vm"
	"github.com/tliron/commonlog"
)

// ChunkCache stores compiled chunks by key. *cache.Store implements it.
type ChunkCache interface {
	Get(key string) (*vm.Chunk, bool, error)
	Put(key string, chunk *vm.Chunk) error
}

// Driver compiles and runs minilang programs.
type Driver struct {
	out   io.Writer
	copts compiler.Options
	cache ChunkCache
	trace bool
	log   commonlog.Logger
	err   error
}

// New creates a Driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		out: os.Stdout,
		log: commonlog.GetLogger("minilang.driver"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Err returns the error from the most recent Compile, Run or RunChunk, or
// nil if it succeeded. Compile errors are *compiler.Error, runtime errors
// are *vm.RuntimeError.
func (d *Driver) Err() error {
	return d.err
}

// CacheKey returns the cache key for source compiled with opts by the
// current generator.
func CacheKey(source string, opts compiler.Options) string {
	return cacheKey(source, opts, compiler.GeneratorVersion)
}

func cacheKey(source string, opts compiler.Options, generator int) string {
	h := sha256.New()
	h.Write([]byte(strconv.Itoa(generator)))
	h.Write([]byte{0})
	h.Write([]byte(opts.Dialect.String()))
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatBool(opts.PopBranchCondition)))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Compile compiles source to a chunk, consulting the cache first when one
// is configured. Cache failures are logged and never fail the compile.
func (d *Driver) Compile(source string) (*vm.Chunk, error) {
	d.err = nil

	var key string
	if d.cache != nil {
		key = CacheKey(source, d.copts)
		chunk, ok, err := d.cache.Get(key)
		switch {
		case err != nil:
			d.log.Warningf("cache lookup failed: %s", err)
		case ok:
			d.log.Debugf("cache hit %s", key[:12])
			return chunk, nil
		}
	}

	chunk, err := compiler.Compile(source, d.copts)
	if err != nil {
		d.err = err
		return nil, err
	}

	if d.cache != nil {
		if err := d.cache.Put(key, chunk); err != nil {
			d.log.Warningf("cache store failed: %s", err)
		}
	}
	return chunk, nil
}

// Run compiles and executes source.
func (d *Driver) Run(source string) vm.InterpretResult {
	chunk, err := d.Compile(source)
	if err != nil {
		d.log.Infof("compile failed: %s", err)
		return vm.InterpretCompileError
	}
	return d.RunChunk(chunk)
}

// Eval compiles a single expression and returns the value it evaluates to.
// Expressions bypass the cache.
func (d *Driver) Eval(expr string) (vm.Value, error) {
	d.err = nil

	chunk, err := compiler.CompileExpr(expr, d.copts)
	if err != nil {
		d.err = err
		return vm.Nil, err
	}

	m := vm.NewVM()
	m.SetOutput(d.out)
	m.SetTrace(d.trace)
	if res := m.Interpret(chunk); res != vm.InterpretOK {
		d.err = m.Err()
		return vm.Nil, d.err
	}
	v, _ := m.Top()
	return v, nil
}

// RunChunk executes an already compiled chunk on a fresh VM.
func (d *Driver) RunChunk(chunk *vm.Chunk) vm.InterpretResult {
	d.err = nil

	m := vm.NewVM()
	m.SetOutput(d.out)
	m.SetTrace(d.trace)
	res := m.Interpret(chunk)
	if res != vm.InterpretOK {
		d.err = m.Err()
		d.log.Infof("runtime error: %s", d.err)
	}
	return res
}
