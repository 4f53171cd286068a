// Package domain holds the pure state rules of the acquisition lifecycle:
// status enums, transition predicates, the subdivision/handover gate, the
// deposit tolerance check, and the handover pipeline stage template.
// Nothing in this package touches the store.
package domain

// HandoverStatus is the property-level handover state.
type HandoverStatus string

const (
	HandoverNotStarted    HandoverStatus = "NOT_STARTED"
	HandoverAwaitingStart HandoverStatus = "AWAITING_START"
	HandoverInProgress    HandoverStatus = "IN_PROGRESS"
	HandoverCompleted     HandoverStatus = "COMPLETED"
)

// SubdivisionStatus is the property-level subdivision state.
// Subdivided is terminal: no handover or subdivision transition may follow it.
type SubdivisionStatus string

const (
	SubdivisionNotStarted SubdivisionStatus = "NOT_STARTED"
	SubdivisionStarted    SubdivisionStatus = "SUB_DIVISION_STARTED"
	Subdivided            SubdivisionStatus = "SUBDIVIDED"
)

// ReservationStatus marks a property as reserved. Stored as NULL when clear.
type ReservationStatus string

const ReservationReserved ReservationStatus = "RESERVED"

// InterestStatus is the lifecycle state of one client's interest in a property.
type InterestStatus string

const (
	InterestActive     InterestStatus = "ACTIVE"
	InterestReserved   InterestStatus = "RESERVED"
	InterestCommitted  InterestStatus = "COMMITTED"
	InterestConverted  InterestStatus = "CONVERTED"
	InterestInHandover InterestStatus = "IN_HANDOVER"
	InterestInactive   InterestStatus = "INACTIVE"
)

// IsValid reports whether s is a known interest status.
func (s InterestStatus) IsValid() bool {
	switch s {
	case InterestActive, InterestReserved, InterestCommitted,
		InterestConverted, InterestInHandover, InterestInactive:
		return true
	}
	return false
}

// Cancellable reports whether an interest in this status may be cancelled
// by the client. Committed and later states require administrative override.
func (s InterestStatus) Cancellable() bool {
	return s == InterestActive || s == InterestReserved
}

// HandoverEligible reports whether an interest in this status satisfies the
// precondition for starting the handover pipeline.
func (s InterestStatus) HandoverEligible() bool {
	return s == InterestCommitted || s == InterestConverted
}

// PropertyOpenForInterest reports whether a property in the given states can
// accept a new interest expression.
func PropertyOpenForInterest(handover HandoverStatus, subdivision SubdivisionStatus) bool {
	if subdivision == Subdivided {
		return false
	}
	return handover != HandoverCompleted
}

// CanStartHandover decides whether handover may begin given the property's
// current states. Subdivision and handover are mutually exclusive, and
// Subdivided locks the property permanently.
func CanStartHandover(handover HandoverStatus, subdivision SubdivisionStatus) bool {
	if subdivision == Subdivided || subdivision == SubdivisionStarted {
		return false
	}
	return handover == HandoverNotStarted || handover == HandoverAwaitingStart
}

// CanTransitionSubdivision decides whether the property's subdivision status
// may move from current to target while handover is in the given state.
func CanTransitionSubdivision(current, target SubdivisionStatus, handover HandoverStatus) bool {
	if current == Subdivided {
		return false
	}
	switch target {
	case SubdivisionStarted:
		if current != SubdivisionNotStarted {
			return false
		}
		return handover != HandoverInProgress && handover != HandoverCompleted
	case Subdivided:
		return current == SubdivisionStarted
	case SubdivisionNotStarted:
		// Abandoning a started subdivision is allowed; nothing else maps back.
		return current == SubdivisionStarted
	}
	return false
}

// CommitEligible reports whether a property in the given handover state can
// accept a commitment lock.
func CommitEligible(handover HandoverStatus) bool {
	return handover == HandoverAwaitingStart || handover == HandoverNotStarted
}
