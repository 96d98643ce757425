// internal/types/types.go - Common type definitions
package types

import "time"

// AttributeKind identifies which operator-controlled parameter a record tracks.
type AttributeKind string

const (
	KindCommission AttributeKind = "COMMISSION"
	KindMEV        AttributeKind = "MEV"
)

// Validator is the monitored entity, keyed by its vote account public key.
// A validator is created on first observation and never deleted, only marked
// delinquent or active.
type Validator struct {
	VoteAccount string
	Delinquent  bool
	FirstSeenAt time.Time
	UpdatedAt   time.Time
}

// Observation is one sweep's view of a single validator as reported by the
// state source.
type Observation struct {
	VoteAccount   string
	Epoch         uint64
	ObservedAt    time.Time
	Commission    int
	MEVCommission int
	MEVDisabled   bool
	Delinquent    bool
}

// AttributeSnapshot is a stored observation of one attribute's value. A new
// snapshot is written only when the value differs from the most recent prior
// snapshot for the same (vote account, kind), or when none exists yet.
type AttributeSnapshot struct {
	VoteAccount string
	Kind        AttributeKind
	Epoch       uint64
	ObservedAt  time.Time
	Value       int
	Disabled    bool
}

// ChangeEvent is a classified transition between two snapshot values. It is
// produced exactly once per qualifying snapshot transition, never for the
// very first observation of a validator.
type ChangeEvent struct {
	ID           string
	VoteAccount  string
	Kind         AttributeKind
	Epoch        uint64
	ObservedAt   time.Time
	From         int
	To           int
	Delta        int
	FromDisabled bool
	ToDisabled   bool
	Severity     Severity
}

// LivenessKind is the direction of a delinquency flip.
type LivenessKind string

const (
	LivenessWentDown LivenessKind = "WENT_DOWN"
	LivenessCameUp   LivenessKind = "CAME_UP"
)

// LivenessEvent records one flip of a validator's delinquency flag. It is
// never produced for confirmations of unchanged state.
type LivenessEvent struct {
	ID          string
	VoteAccount string
	Kind        LivenessKind
	Timestamp   time.Time
}

// LivenessTransition pairs a liveness event with the delinquency flag value
// the store must persist in the same logical write: both or neither.
type LivenessTransition struct {
	Event      LivenessEvent
	Delinquent bool
}

// DailyAvailability is the derived per-calendar-day availability for one
// validator. Date is midnight UTC of the day it covers.
type DailyAvailability struct {
	VoteAccount         string
	Date                time.Time
	DelinquentMinutes   float64
	AvailabilityPercent float64
}

// Notification is the payload handed to the notification collaborator for a
// qualifying change event.
type Notification struct {
	VoteAccount  string
	Kind         AttributeKind
	Epoch        uint64
	From         int
	To           int
	FromDisabled bool
	ToDisabled   bool
	Severity     Severity
}
