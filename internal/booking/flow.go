package booking

import (
	"fmt"

	"tripcart/internal/models"
)

// Flow sequences a session through the booking stages. Automatic
// transitions fire on the false->true edge of the aggregate queries, so
// re-selecting a leg never drags the user forward a second time.
type Flow struct {
	stage            models.Stage
	sawFlight        bool
	sawAccommodation bool
	failureReason    string
	transactionID    string
	recordID         int64
}

// NewFlow starts at StageSelectingFlight.
func NewFlow() *Flow {
	return &Flow{stage: models.StageSelectingFlight}
}

func (f *Flow) Stage() models.Stage   { return f.stage }
func (f *Flow) FailureReason() string { return f.failureReason }
func (f *Flow) TransactionID() string { return f.transactionID }
func (f *Flow) RecordID() int64       { return f.recordID }
func (f *Flow) Confirmed() bool       { return f.stage == models.StageConfirmed }

// Observe applies the automatic transitions for the current aggregate.
// It returns true when the stage changed.
func (f *Flow) Observe(a *Aggregate) bool {
	before := f.stage

	hasFlight := a.HasFlight()
	hasStay := a.HasAccommodation()
	if hasFlight && !f.sawFlight && f.stage == models.StageSelectingFlight {
		f.stage = models.StageSelectingAccommodation
		// жильё выбрано раньше рейса: вкладка размещения уже заполнена
		if hasStay {
			f.stage = models.StageReviewingSummary
		}
	}
	f.sawFlight = hasFlight

	if hasStay && !f.sawAccommodation && f.stage == models.StageSelectingAccommodation {
		f.stage = models.StageReviewingSummary
	}
	f.sawAccommodation = hasStay

	return f.stage != before
}

// Navigate moves to a tab chosen by the user. Only the selection and review
// stages are tabs; leaving awaiting_payment abandons the pending payment.
func (f *Flow) Navigate(target models.Stage) error {
	if f.stage == models.StageConfirmed {
		return ErrSessionConfirmed
	}
	switch target {
	case models.StageSelectingFlight, models.StageSelectingAccommodation, models.StageReviewingSummary:
	default:
		return fmt.Errorf("%w: cannot navigate to %q", ErrInvalidTransition, target)
	}
	f.stage = target
	f.failureReason = ""
	return nil
}

// Confirm moves from review to payment. A flight is mandatory; stay and cab
// are optional.
func (f *Flow) Confirm(a *Aggregate) error {
	if f.stage == models.StageConfirmed {
		return ErrSessionConfirmed
	}
	if f.stage != models.StageReviewingSummary {
		return fmt.Errorf("%w: confirm from %q", ErrInvalidTransition, f.stage)
	}
	if !a.HasFlight() {
		return NewValidationError("flight", "select a flight before confirming the booking")
	}
	f.stage = models.StageAwaitingPayment
	f.failureReason = ""
	return nil
}

// PaymentSucceeded completes the booking.
func (f *Flow) PaymentSucceeded(transactionID string, recordID int64) error {
	if f.stage != models.StageAwaitingPayment {
		return fmt.Errorf("%w: payment completed in %q", ErrInvalidTransition, f.stage)
	}
	f.stage = models.StageConfirmed
	f.transactionID = transactionID
	f.recordID = recordID
	f.failureReason = ""
	return nil
}

// PaymentFailed keeps the flow in awaiting_payment and records why.
func (f *Flow) PaymentFailed(reason string) {
	if f.stage != models.StageAwaitingPayment {
		return
	}
	f.failureReason = reason
}

// Reset returns to the first stage and forgets the edge history.
func (f *Flow) Reset() {
	*f = Flow{stage: models.StageSelectingFlight}
}

func (f *Flow) Snapshot() models.FlowSnapshot {
	return models.FlowSnapshot{
		Stage:            f.stage,
		SawFlight:        f.sawFlight,
		SawAccommodation: f.sawAccommodation,
		FailureReason:    f.failureReason,
		TransactionID:    f.transactionID,
		RecordID:         f.recordID,
	}
}

// RestoreFlow rebuilds a flow; an empty stage means a fresh flow.
func RestoreFlow(s models.FlowSnapshot) *Flow {
	if s.Stage == "" {
		return NewFlow()
	}
	return &Flow{
		stage:            s.Stage,
		sawFlight:        s.SawFlight,
		sawAccommodation: s.SawAccommodation,
		failureReason:    s.FailureReason,
		transactionID:    s.TransactionID,
		recordID:         s.RecordID,
	}
}
