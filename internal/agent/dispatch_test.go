package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/morelandlabs/dentalagent/pkg/logging"
)

func newTestDispatcher(store *fakeClinicStore) *Dispatcher {
	return NewDispatcher(store, logging.New("error"), nil)
}

func TestDispatchAdjustInventory(t *testing.T) {
	store := newFakeStore()
	d := newTestDispatcher(store)

	slots := map[string]string{"item": "Nitrile Gloves", "item_id": "1", "quantity": "50"}
	resp, err := d.Dispatch(context.Background(), testDoctor, IntentInvAdjust, slots, testAnchor)
	require.NoError(t, err)
	assert.Equal(t, "Added 50 to Nitrile Gloves. New quantity: 80.", resp.Text)
	assert.Equal(t, 1, store.adjustCalls)
}

func TestDispatchSetThreshold(t *testing.T) {
	d := newTestDispatcher(newFakeStore())

	slots := map[string]string{"item": "Nitrile Gloves", "item_id": "1", "threshold": "10"}
	resp, err := d.Dispatch(context.Background(), testDoctor, IntentInvThreshold, slots, testAnchor)
	require.NoError(t, err)
	assert.Equal(t, "You will be alerted when Nitrile Gloves drops to 10 or below.", resp.Text)
}

func TestDispatchCreateTreatment(t *testing.T) {
	d := newTestDispatcher(newFakeStore())

	slots := map[string]string{"name": "deep bleaching", "price": "120"}
	resp, err := d.Dispatch(context.Background(), testDoctor, IntentTreatmentCreate, slots, testAnchor)
	require.NoError(t, err)
	assert.Equal(t, `Treatment "deep bleaching" created at 120.00 (id 3).`, resp.Text)
}

func TestBookRejectsOverlappingSlot(t *testing.T) {
	store := newFakeStore()
	store.schedule = []AppointmentRecord{{
		ID:     9,
		Start:  time.Date(2026, time.August, 26, 15, 0, 0, 0, time.UTC),
		End:    time.Date(2026, time.August, 26, 15, 30, 0, 0, time.UTC),
		Status: "booked",
	}}
	d := newTestDispatcher(store)

	// 2:45 runs until 3:15, straddling the existing 3:00 appointment even
	// though it starts outside it.
	slots := map[string]string{"patient_id": "1", "treatment": "Teeth Cleaning", "date": "2026-08-26", "time": "14:45"}
	_, err := d.Dispatch(context.Background(), testDoctor, IntentApptBook, slots, testAnchor)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "That slot is already taken at 3:00 PM.", rejected.Reason)
	assert.Zero(t, store.bookCalls)

	// 2:30 ends exactly at 3:00 and is fine.
	slots["time"] = "14:30"
	resp, err := d.Dispatch(context.Background(), testDoctor, IntentApptBook, slots, testAnchor)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Booked Teeth Cleaning")
	assert.Equal(t, 1, store.bookCalls)
}

func TestBookIgnoresCancelledAppointments(t *testing.T) {
	store := newFakeStore()
	store.schedule = []AppointmentRecord{{
		ID:     9,
		Start:  time.Date(2026, time.August, 26, 15, 0, 0, 0, time.UTC),
		End:    time.Date(2026, time.August, 26, 15, 30, 0, 0, time.UTC),
		Status: "cancelled",
	}}
	d := newTestDispatcher(store)

	slots := map[string]string{"patient_id": "1", "treatment": "Whitening", "date": "2026-08-26", "time": "15:00"}
	resp, err := d.Dispatch(context.Background(), testDoctor, IntentApptBook, slots, testAnchor)
	require.NoError(t, err)
	assert.Contains(t, resp.Text, "Booked Whitening")
	assert.Equal(t, 1, store.bookCalls)
}

func TestDispatchRescheduleWithoutActiveAppointment(t *testing.T) {
	d := newTestDispatcher(newFakeStore())

	slots := map[string]string{"date": "2026-08-27", "time": "16:00"}
	_, err := d.Dispatch(context.Background(), testDoctor, IntentApptReschedule, slots, testAnchor)
	var rejected *RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, "No active appointment found to reschedule.", rejected.Reason)
}

func TestDispatchUnknownIntentErrors(t *testing.T) {
	d := newTestDispatcher(newFakeStore())

	_, err := d.Dispatch(context.Background(), testDoctor, Intent("mystery"), nil, testAnchor)
	assert.Error(t, err)
}

func TestSlotDateTime(t *testing.T) {
	slots := map[string]string{"date": "2026-08-27", "time": "16:30"}
	at, err := slotDateTime(slots, testAnchor)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, time.August, 27, 16, 30, 0, 0, time.UTC), at)

	// Date defaults to the current day.
	at, err = slotDateTime(map[string]string{"time": "09:00"}, testAnchor)
	require.NoError(t, err)
	assert.Equal(t, testAnchor.Day(), at.Day())
	assert.Equal(t, 9, at.Hour())

	_, err = slotDateTime(map[string]string{"date": "2026-08-27"}, testAnchor)
	assert.Error(t, err)
}

func TestClockFromSlot(t *testing.T) {
	assert.Equal(t, "3:00 PM", clockFromSlot("15:00"))
	assert.Equal(t, "9:15 AM", clockFromSlot("09:15"))
	assert.Equal(t, "whenever", clockFromSlot("whenever"))
}

func TestTrimFloat(t *testing.T) {
	assert.Equal(t, "200", trimFloat(200))
	assert.Equal(t, "12.5", trimFloat(12.5))
}
