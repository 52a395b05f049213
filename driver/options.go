package driver

import (
	"io"

	"github.com/chazu/minilang/compiler"
	"github.com/tliron/commonlog"
)

// Option configures a Driver.
type Option func(*Driver)

// WithOutput sets the writer PRINT writes to. Defaults to os.Stdout.
func WithOutput(w io.Writer) Option {
	return func(d *Driver) { d.out = w }
}

// WithCompilerOptions sets the dialect and code generation options.
func WithCompilerOptions(opts compiler.Options) Option {
	return func(d *Driver) { d.copts = opts }
}

// WithCache enables the compiled-chunk cache. Without this every Compile
// call compiles from source.
func WithCache(c ChunkCache) Option {
	return func(d *Driver) { d.cache = c }
}

// WithTrace logs every executed instruction at debug level.
func WithTrace(on bool) Option {
	return func(d *Driver) { d.trace = on }
}

// WithLogger replaces the driver's logger.
func WithLogger(l commonlog.Logger) Option {
	return func(d *Driver) { d.log = l }
}
