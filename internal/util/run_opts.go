package util

// RunOpts holds the resolved options for a single invocation of `mono run`,
// after flag parsing, config overlay, and validation. It is passed down
// through scope resolution, engine construction, and the scheduler rather
// than threading a dozen separate parameters.
type RunOpts struct {
	// Concurrency is the maximum number of non-persistent tasks that may
	// run at once.
	Concurrency int

	// Parallel lifts the Concurrency limit, so every task whose
	// dependencies have finished starts at once. Dependency edges are
	// still followed: a task never starts before the tasks it depends on.
	Parallel bool

	// ContinueOnError keeps the run going after a task failure instead of
	// cancelling everything that hasn't started yet.
	ContinueOnError bool

	// Only restricts execution to exactly the tasks named on the command
	// line, without pulling in their dependencies' own runs (though
	// dependency hashes are still used for fingerprinting).
	Only bool

	// DryRun, when true, computes the full task graph and hashes but
	// executes nothing.
	DryRun bool

	// DryRunJSON additionally requests the dry-run summary be printed as
	// JSON instead of the human-readable table.
	DryRunJSON bool

	// Forces every task to execute even if the cache has a hit.
	Force bool

	// NoCache disables writing to the cache after a task executes.
	NoCache bool

	// RemoteOnly restricts cache lookups/writes to the remote cache,
	// skipping the local filesystem cache entirely.
	RemoteOnly bool

	// Summarize requests a run summary JSON file be written under
	// .mono/runs/ at the end of the run.
	Summarize bool

	// EnvMode selects how environment variables not explicitly declared
	// in a task's `env` list are treated when hashing (strict vs loose).
	EnvMode EnvMode

	// LogOrder controls how concurrently running tasks' output is
	// prefixed and interleaved.
	LogOrder string

	// Profile names a path for a chrome-trace-format execution trace. No
	// flag sets it and no tracer reads it, so a value has no effect.
	Profile string

	// GraphFile holds the --graph path for a Graphviz DOT dump of the task
	// graph. The value is carried here, but nothing reads it and no graph
	// file is written.
	GraphFile string

	// SinglePackageMode collapses the package graph to the single root
	// package; package#task syntax is rejected in this mode.
	SinglePackageMode bool

	// PassThroughArgs are the args following a literal "--" on the
	// command line, forwarded verbatim to whichever named task follows
	// it in argument order.
	PassThroughArgs []string
}

// EnvMode selects strict or loose environment-variable hashing.
type EnvMode int

const (
	// Infer picks strict mode when a task declares PassThroughEnv and
	// loose mode otherwise; this is the default.
	Infer EnvMode = iota
	Loose
	Strict
)

func (m EnvMode) String() string {
	switch m {
	case Loose:
		return "loose"
	case Strict:
		return "strict"
	default:
		return "infer"
	}
}
