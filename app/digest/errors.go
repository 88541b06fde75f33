package digest

import (
	"errors"
	"fmt"
)

// Error kinds. Match with errors.Is.
var (
	ErrFetch      = errors.New("fetch failed")
	ErrExtraction = errors.New("extraction failed")
	ErrAssembly   = errors.New("assembly failed")
	ErrConversion = errors.New("conversion failed")
	ErrConfig     = errors.New("invalid configuration")
)

type Error struct {
	Kind error
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func Wrap(kind error, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func Errorf(kind error, op string, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// Scope is where a failure is caught.
type Scope int

const (
	ScopeItem Scope = iota
	ScopeSection
	ScopeRun
)

// Action is what the catch site does with a failure.
type Action int

const (
	OmitItem Action = iota
	OmitSection
	Degrade // log and carry on with a default or without the optional output
	FailRun
)

func (a Action) String() string {
	switch a {
	case OmitItem:
		return "omit_item"
	case OmitSection:
		return "omit_section"
	case Degrade:
		return "degrade"
	default:
		return "fail_run"
	}
}

var kinds = []error{ErrFetch, ErrExtraction, ErrAssembly, ErrConversion, ErrConfig}

var policy = map[Scope]map[error]Action{
	ScopeItem: {
		ErrFetch:      OmitItem,
		ErrExtraction: OmitItem,
		ErrAssembly:   FailRun,
		ErrConversion: Degrade,
		ErrConfig:     Degrade,
	},
	ScopeSection: {
		ErrFetch:      OmitSection,
		ErrExtraction: OmitSection,
		ErrAssembly:   FailRun,
		ErrConversion: Degrade,
		ErrConfig:     Degrade,
	},
	ScopeRun: {
		ErrFetch:      FailRun,
		ErrExtraction: FailRun,
		ErrAssembly:   FailRun,
		ErrConversion: Degrade,
		ErrConfig:     Degrade,
	},
}

var unknownKind = map[Scope]Action{
	ScopeItem:    OmitItem,
	ScopeSection: OmitSection,
	ScopeRun:     FailRun,
}

// Decide looks up the policy for err caught at scope.
func Decide(err error, scope Scope) Action {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return policy[scope][kind]
		}
	}
	return unknownKind[scope]
}
