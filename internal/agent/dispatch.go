package agent

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/morelandlabs/dentalagent/internal/observability/metrics"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

var dispatchTracer = otel.Tracer("dentalagent.internal.agent.dispatch")

// defaultVisitLength is the slot the conflict check reserves for a new
// booking; the store books the same length.
const defaultVisitLength = 30 * time.Minute

// Dispatcher executes a fully-resolved intent against the clinic store.
// One handler per intent; each performs exactly one state-changing action
// and returns a confirmation carrying the concrete resulting values.
type Dispatcher struct {
	store   ClinicStore
	logger  *logging.Logger
	metrics *metrics.AgentMetrics
}

// NewDispatcher constructs a dispatcher.
func NewDispatcher(store ClinicStore, logger *logging.Logger, m *metrics.AgentMetrics) *Dispatcher {
	if store == nil {
		panic("agent: clinic store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{store: store, logger: logger, metrics: m}
}

// Dispatch runs the handler for the intent. Business-rule violations come
// back as *RejectedError; anything else is an infrastructure failure.
func (d *Dispatcher) Dispatch(ctx context.Context, actor Actor, intent Intent, slots map[string]string, now time.Time) (*Response, error) {
	ctx, span := dispatchTracer.Start(ctx, "agent.dispatch")
	defer span.End()
	span.SetAttributes(
		attribute.String("agent.intent", string(intent)),
		attribute.String("agent.actor", actor.Key()),
	)

	started := time.Now()
	resp, err := d.dispatch(ctx, actor, intent, slots, now)
	d.metrics.ObserveDispatchLatency(string(intent), time.Since(started).Seconds())
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	d.logger.Info("intent dispatched", "intent", intent, "actor", actor.Key())
	return resp, nil
}

func (d *Dispatcher) dispatch(ctx context.Context, actor Actor, intent Intent, slots map[string]string, now time.Time) (*Response, error) {
	switch intent {
	case IntentApptBook:
		return d.book(ctx, actor, slots, now)
	case IntentApptBlock:
		return d.block(ctx, actor, slots, now)
	case IntentApptCancel:
		return d.cancel(ctx, actor, slots)
	case IntentApptReschedule:
		return d.reschedule(ctx, actor, slots, now)
	case IntentClinicalStart:
		return d.startVisit(ctx, actor, slots)
	case IntentClinicalComplete:
		return d.completeVisit(ctx, actor, slots)
	case IntentInvAdjust:
		return d.adjustInventory(ctx, slots)
	case IntentInvThreshold:
		return d.setThreshold(ctx, slots)
	case IntentInvPrice:
		return d.setItemPrice(ctx, slots)
	case IntentTreatmentCreate:
		return d.createTreatment(ctx, actor, slots)
	case IntentTreatmentDelete:
		return d.deleteTreatment(ctx, slots)
	case IntentTreatmentPrice:
		return d.setTreatmentPrice(ctx, slots)
	}
	return nil, fmt.Errorf("agent: no handler for intent %q", intent)
}

func (d *Dispatcher) book(ctx context.Context, actor Actor, slots map[string]string, now time.Time) (*Response, error) {
	start, err := slotDateTime(slots, now)
	if err != nil {
		return nil, err
	}

	doctorID := actor.ID
	patientID := slotID(slots, "patient")
	if actor.Role == RolePatient {
		doctorID = slotID(slots, "doctor")
		patientID = actor.ID
	}

	startHour, endHour, err := d.store.WorkingHours(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("agent: working hours: %w", err)
	}
	if start.Hour() < startHour || start.Hour() >= endHour {
		return nil, Rejected("The clinic takes appointments between %s and %s.",
			FormatClock(startHour, 0), FormatClock(endHour, 0))
	}

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	day := DateWindow{Start: dayStart, End: dayStart.AddDate(0, 0, 1)}
	schedule, err := d.store.GetSchedule(ctx, doctorID, day)
	if err != nil {
		return nil, fmt.Errorf("agent: check schedule: %w", err)
	}
	end := start.Add(defaultVisitLength)
	for _, appt := range schedule {
		if appt.Status == "cancelled" || appt.Status == "completed" {
			continue
		}
		// Intervals [start, end) and [appt.Start, appt.End) must not overlap.
		if start.Before(appt.End) && appt.Start.Before(end) {
			return nil, Rejected("That slot is already taken at %s.", FormatClock(appt.Start.Hour(), appt.Start.Minute()))
		}
	}

	id, err := d.store.Book(ctx, BookingSpec{
		DoctorID:    doctorID,
		PatientID:   patientID,
		TreatmentID: slotID(slots, "treatment"),
		Start:       start,
	})
	if err != nil {
		return nil, err
	}

	return &Response{Text: fmt.Sprintf("Booked %s on %s at %s (appointment #%d).",
		slots["treatment"], slots["date"], clockFromSlot(slots["time"]), id)}, nil
}

func (d *Dispatcher) block(ctx context.Context, actor Actor, slots map[string]string, now time.Time) (*Response, error) {
	at, err := slotDateTime(slots, now)
	if err != nil {
		return nil, err
	}
	if _, err := d.store.Block(ctx, actor.ID, at); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("%s blocked.", clockFromSlot(slots["time"]))}, nil
}

func (d *Dispatcher) cancel(ctx context.Context, actor Actor, slots map[string]string) (*Response, error) {
	appt, err := d.store.ActiveAppointment(ctx, actor, slotID(slots, "patient"))
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, Rejected("No active appointment found to cancel.")
	}
	if err := d.store.Cancel(ctx, appt.ID, actor); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Appointment #%d on %s at %s cancelled.",
		appt.ID, appt.Start.Format("Jan 2"), FormatClock(appt.Start.Hour(), appt.Start.Minute()))}, nil
}

func (d *Dispatcher) reschedule(ctx context.Context, actor Actor, slots map[string]string, now time.Time) (*Response, error) {
	appt, err := d.store.ActiveAppointment(ctx, actor, slotID(slots, "patient"))
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, Rejected("No active appointment found to reschedule.")
	}
	at, err := slotDateTime(slots, now)
	if err != nil {
		return nil, err
	}
	if err := d.store.Reschedule(ctx, appt.ID, at); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Appointment #%d moved to %s at %s.",
		appt.ID, slots["date"], clockFromSlot(slots["time"]))}, nil
}

func (d *Dispatcher) startVisit(ctx context.Context, actor Actor, slots map[string]string) (*Response, error) {
	id, err := d.store.StartVisit(ctx, actor.ID, slotID(slots, "patient"))
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Visit started for %s (appointment #%d).", slots["patient"], id)}, nil
}

func (d *Dispatcher) completeVisit(ctx context.Context, actor Actor, slots map[string]string) (*Response, error) {
	amount, err := d.store.CompleteVisit(ctx, actor.ID, slotID(slots, "patient"))
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Visit completed for %s. Invoice generated for %.2f.", slots["patient"], amount)}, nil
}

func (d *Dispatcher) adjustInventory(ctx context.Context, slots map[string]string) (*Response, error) {
	qty, err := slotInt(slots, "quantity")
	if err != nil {
		return nil, err
	}
	newQty, err := d.store.AdjustInventory(ctx, slotID(slots, "item"), qty)
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Added %d to %s. New quantity: %d.", qty, slots["item"], newQty)}, nil
}

func (d *Dispatcher) setThreshold(ctx context.Context, slots map[string]string) (*Response, error) {
	threshold, err := slotInt(slots, "threshold")
	if err != nil {
		return nil, err
	}
	if err := d.store.SetInventoryThreshold(ctx, slotID(slots, "item"), threshold); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("You will be alerted when %s drops to %d or below.", slots["item"], threshold)}, nil
}

func (d *Dispatcher) setItemPrice(ctx context.Context, slots map[string]string) (*Response, error) {
	price, err := slotFloat(slots, "price")
	if err != nil {
		return nil, err
	}
	if err := d.store.SetInventoryPrice(ctx, slotID(slots, "item"), price); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Buying cost of %s set to %.2f.", slots["item"], price)}, nil
}

func (d *Dispatcher) createTreatment(ctx context.Context, actor Actor, slots map[string]string) (*Response, error) {
	price, err := slotFloat(slots, "price")
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(slots["name"])
	id, err := d.store.CreateTreatment(ctx, actor.ID, name, price)
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Treatment %q created at %.2f (id %d).", name, price, id)}, nil
}

func (d *Dispatcher) deleteTreatment(ctx context.Context, slots map[string]string) (*Response, error) {
	if err := d.store.DeleteTreatment(ctx, slotID(slots, "treatment")); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Treatment %s deleted.", slots["treatment"])}, nil
}

func (d *Dispatcher) setTreatmentPrice(ctx context.Context, slots map[string]string) (*Response, error) {
	price, err := slotFloat(slots, "price")
	if err != nil {
		return nil, err
	}
	if err := d.store.SetTreatmentPrice(ctx, slotID(slots, "treatment"), price); err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("Price of %s set to %.2f.", slots["treatment"], price)}, nil
}

// slotID reads the resolved entity id stored alongside a name slot.
func slotID(slots map[string]string, name string) int64 {
	id, _ := strconv.ParseInt(slots[name+"_id"], 10, 64)
	return id
}

func slotInt(slots map[string]string, name string) (int, error) {
	v, err := strconv.Atoi(slots[name])
	if err != nil {
		return 0, fmt.Errorf("agent: slot %q is not an integer: %w", name, err)
	}
	return v, nil
}

func slotFloat(slots map[string]string, name string) (float64, error) {
	v, err := strconv.ParseFloat(slots[name], 64)
	if err != nil {
		return 0, fmt.Errorf("agent: slot %q is not a number: %w", name, err)
	}
	return v, nil
}

// slotDateTime combines the date (2006-01-02) and time (15:04) slots.
func slotDateTime(slots map[string]string, now time.Time) (time.Time, error) {
	date := slots["date"]
	if date == "" {
		date = now.Format("2006-01-02")
	}
	clock := slots["time"]
	if clock == "" {
		return time.Time{}, fmt.Errorf("agent: time slot missing")
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("agent: parse slot datetime: %w", err)
	}
	return t, nil
}

func clockFromSlot(v string) string {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return v
	}
	return FormatClock(t.Hour(), t.Minute())
}
