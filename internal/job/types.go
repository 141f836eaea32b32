package job

// Type identifies what a job does to its unit.
//
// The first four are the mergeable primitives. ReloadOrStart, Restart,
// TryRestart and TryReload are compound types that collapse to a primitive
// once the unit's activation state is known. Nop occupies a separate
// per-unit slot and never merges with the others.
type Type int

const (
	TypeInvalid Type = iota - 1

	TypeStart
	TypeVerifyActive
	TypeStop
	TypeReload
	TypeReloadOrStart
	TypeRestart
	TypeTryRestart
	TypeTryReload
	TypeNop
)

// State is a job's dispatch state. Waiting means installed but not yet
// dispatched (or requeued); Running means the unit primitive has been
// invoked and the engine is awaiting its completion signal.
type State int

const (
	StateWaiting State = iota
	StateRunning
)

// Result is a job's terminal classification
type Result int

const (
	ResultInvalidValue Result = iota - 1

	ResultDone
	ResultCanceled
	ResultTimeout
	ResultFailed
	ResultDependency
	ResultSkipped
	ResultInvalid
	ResultAssert
	ResultUnsupported
)

// Mode describes how a client request is reconciled against jobs already
// in flight. Fail, Replace and ReplaceIrreversibly are honored by the
// engine's install surface; the remaining modes belong to the transaction
// builder sitting in front of it.
type Mode int

const (
	ModeInvalid Mode = iota - 1

	ModeFail
	ModeReplace
	ModeReplaceIrreversibly
	ModeIsolate
	ModeFlush
	ModeIgnoreDependencies
	ModeIgnoreRequirements
)

var typeNames = map[Type]string{
	TypeStart:         "start",
	TypeVerifyActive:  "verify-active",
	TypeStop:          "stop",
	TypeReload:        "reload",
	TypeReloadOrStart: "reload-or-start",
	TypeRestart:       "restart",
	TypeTryRestart:    "try-restart",
	TypeTryReload:     "try-reload",
	TypeNop:           "nop",
}

var stateNames = map[State]string{
	StateWaiting: "waiting",
	StateRunning: "running",
}

var resultNames = map[Result]string{
	ResultDone:        "done",
	ResultCanceled:    "canceled",
	ResultTimeout:     "timeout",
	ResultFailed:      "failed",
	ResultDependency:  "dependency",
	ResultSkipped:     "skipped",
	ResultInvalid:     "invalid",
	ResultAssert:      "assert",
	ResultUnsupported: "unsupported",
}

var modeNames = map[Mode]string{
	ModeFail:                "fail",
	ModeReplace:             "replace",
	ModeReplaceIrreversibly: "replace-irreversibly",
	ModeIsolate:             "isolate",
	ModeFlush:               "flush",
	ModeIgnoreDependencies:  "ignore-dependencies",
	ModeIgnoreRequirements:  "ignore-requirements",
}

var (
	typesByName   = invert(typeNames)
	statesByName  = invert(stateNames)
	resultsByName = invert(resultNames)
	modesByName   = invert(modeNames)
)

func invert[K comparable](names map[K]string) map[string]K {
	byName := make(map[string]K, len(names))
	for k, n := range names {
		byName[n] = k
	}
	return byName
}

func (t Type) String() string { return typeNames[t] }

// Valid reports whether t is one of the enumerated job types
func (t Type) Valid() bool {
	_, ok := typeNames[t]
	return ok
}

// TypeFromString resolves a job type name, returning TypeInvalid if unknown
func TypeFromString(s string) Type {
	if t, ok := typesByName[s]; ok {
		return t
	}
	return TypeInvalid
}

func (s State) String() string { return stateNames[s] }

// StateFromString resolves a job state name, returning -1 if unknown
func StateFromString(name string) State {
	if s, ok := statesByName[name]; ok {
		return s
	}
	return State(-1)
}

func (r Result) String() string { return resultNames[r] }

// ResultFromString resolves a job result name, returning ResultInvalidValue
// if unknown
func ResultFromString(s string) Result {
	if r, ok := resultsByName[s]; ok {
		return r
	}
	return ResultInvalidValue
}

func (m Mode) String() string { return modeNames[m] }

// ModeFromString resolves a job mode name, returning ModeInvalid if unknown
func ModeFromString(s string) Mode {
	if m, ok := modesByName[s]; ok {
		return m
	}
	return ModeInvalid
}

// Flags carries the client-controlled job bits
type Flags uint8

const (
	// FlagOverride marks a job the client wants to prevail over
	// non-override peers when failure propagation consults overridable
	// requirement edges
	FlagOverride Flags = 1 << iota

	// FlagIrreversible refuses cancellation by a conflicting later job
	FlagIrreversible

	// FlagIgnoreOrder bypasses the before/after runnability predicate
	FlagIgnoreOrder
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }
