package job

import "github.com/RevCBH/unitd/internal/unit"

// The merge relation over the merge-domain types. Symmetric; TypeInvalid
// marks an incompatible pair. Restart absorbs the positive primitives,
// which is what makes "restart wins" fall out of plain table lookup.
var mergeTable = map[Type]map[Type]Type{
	TypeStart: {
		TypeStart:        TypeStart,
		TypeVerifyActive: TypeStart,
		TypeStop:         TypeInvalid,
		TypeReload:       TypeReloadOrStart,
		TypeRestart:      TypeRestart,
	},
	TypeVerifyActive: {
		TypeStart:        TypeStart,
		TypeVerifyActive: TypeVerifyActive,
		TypeStop:         TypeInvalid,
		TypeReload:       TypeReload,
		TypeRestart:      TypeRestart,
	},
	TypeStop: {
		TypeStart:        TypeInvalid,
		TypeVerifyActive: TypeInvalid,
		TypeStop:         TypeStop,
		TypeReload:       TypeInvalid,
		TypeRestart:      TypeInvalid,
	},
	TypeReload: {
		TypeStart:        TypeReloadOrStart,
		TypeVerifyActive: TypeReload,
		TypeStop:         TypeInvalid,
		TypeReload:       TypeReload,
		TypeRestart:      TypeRestart,
	},
	TypeRestart: {
		TypeStart:        TypeRestart,
		TypeVerifyActive: TypeRestart,
		TypeStop:         TypeInvalid,
		TypeReload:       TypeRestart,
		TypeRestart:      TypeRestart,
	},
}

// Merge combines two job types into the stronger one.
// Returns false if the types conflict or either is outside the merge domain.
func Merge(a, b Type) (Type, bool) {
	row, ok := mergeTable[a]
	if !ok {
		return TypeInvalid, false
	}
	merged, ok := row[b]
	if !ok || merged == TypeInvalid {
		return TypeInvalid, false
	}
	return merged, true
}

// Collapse resolves a compound type into a primitive given the unit's
// current activation state. Primitive types pass through unchanged.
func Collapse(t Type, state unit.ActiveState) Type {
	switch t {
	case TypeTryRestart:
		if state.IsInactiveOrDeactivating() {
			return TypeNop
		}
		return TypeRestart
	case TypeTryReload:
		if state.IsInactiveOrDeactivating() {
			return TypeNop
		}
		return TypeReload
	case TypeReloadOrStart:
		if state.IsInactiveOrDeactivating() {
			return TypeStart
		}
		return TypeReload
	default:
		return t
	}
}

// MergeAndCollapse is the composed operation used at every install site:
// merge the two types, then collapse any compound result against the
// unit's state. Collapsing first keeps the inputs inside the merge domain.
func MergeAndCollapse(a, b Type, state unit.ActiveState) (Type, bool) {
	merged, ok := Merge(Collapse(a, state), Collapse(b, state))
	if !ok {
		return TypeInvalid, false
	}
	return Collapse(merged, state), true
}

// IsConflicting reports whether two types cannot coexist on one unit
func IsConflicting(a, b Type) bool {
	_, ok := Merge(a, b)
	return !ok
}

// IsSuperset reports whether a job of type a entails everything a job of
// type b would do, so a late-arriving b can fold into a running a.
func IsSuperset(a, b Type) bool {
	if a == b {
		return true
	}
	switch a {
	case TypeStart, TypeReload:
		return b == TypeVerifyActive
	case TypeRestart:
		return b == TypeStart || b == TypeVerifyActive || b == TypeReload
	default:
		return false
	}
}

// IsRedundant reports whether a job's desired effect already holds given
// the unit's activation state. Redundant jobs finish immediately as done.
func IsRedundant(t Type, state unit.ActiveState) bool {
	switch t {
	case TypeStart, TypeVerifyActive:
		return state == unit.Active || state == unit.Reloading
	case TypeStop:
		return state == unit.Inactive || state == unit.Failed
	case TypeReload:
		return state == unit.Reloading
	case TypeRestart:
		return state == unit.Activating
	default:
		return false
	}
}

// startsUnit reports whether the type brings a unit up, which is what the
// after-set half of the runnability predicate gates on
func startsUnit(t Type) bool {
	return t == TypeStart || t == TypeVerifyActive || t == TypeReload
}

// lateMergeAllowed reports whether a new job of type t may fold into an
// already-running job. A daemon that already began consuming its old
// configuration cannot be handed an updated one by merging the intent in.
func lateMergeAllowed(t Type) bool {
	return t != TypeReload
}
