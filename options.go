package lynx

// Option configures a Database at construction time, mirroring the
// teacher's functional-options pattern in pkg/sqvect/sqvect.go
// (Option func(*DB)).
type Option func(*Database)

// WithLogger attaches a Logger the façade reports maintenance and
// warn-threshold events to. The zero-value default is a silent nopLogger.
func WithLogger(l Logger) Option {
	return func(d *Database) { d.logger = l }
}

// WithDataPath overrides the directory Save/Load persist to, in place of
// setting Config.DataPath directly.
func WithDataPath(path string) Option {
	return func(d *Database) { d.cfg.DataPath = path }
}
