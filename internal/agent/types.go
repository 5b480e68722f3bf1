package agent

import (
	"context"
	"fmt"
	"time"
)

// Role identifies which side of the clinic an actor belongs to.
type Role string

const (
	RoleDoctor  Role = "doctor"
	RolePatient Role = "patient"
)

// Actor is the authenticated entity driving a conversation.
type Actor struct {
	ID   int64
	Role Role
}

// Key returns the session key for this actor. Sessions are isolated per key.
func (a Actor) Key() string {
	return fmt.Sprintf("%s:%d", a.Role, a.ID)
}

// Button is an optional action attached to a chat response.
type Button struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	Type   string `json:"type"`
}

// Response is what the engine returns for a single turn.
type Response struct {
	Text    string   `json:"text"`
	Buttons []Button `json:"buttons,omitempty"`
}

// NamedEntity is a row from one of the fuzzy-match pools.
type NamedEntity struct {
	ID   int64
	Name string
}

// InventoryLevel is a stock item with its reorder threshold and buying cost.
type InventoryLevel struct {
	ID        int64
	Name      string
	Quantity  int
	Threshold int
	UnitPrice float64
}

// AppointmentRecord is one entry from a doctor's schedule.
type AppointmentRecord struct {
	ID            int64
	Start         time.Time
	End           time.Time
	Status        string
	PatientID     int64
	PatientName   string
	TreatmentName string
}

// FinancialRecord is one invoice line used by the analytics engine.
// Amount is the canonical money column; column-name ambiguity in the
// underlying schema is resolved at the persistence boundary.
type FinancialRecord struct {
	Amount    float64
	Status    string
	CreatedAt time.Time
}

// BookingSpec carries a fully-resolved booking request.
type BookingSpec struct {
	DoctorID    int64
	PatientID   int64
	TreatmentID int64
	Start       time.Time
}

// ClinicStore is the persistence collaborator the engine dispatches against.
// Implementations enforce referential integrity; the engine only re-validates
// conversational business rules before calling in.
type ClinicStore interface {
	ListPatients(ctx context.Context, doctorID int64) ([]NamedEntity, error)
	ListDoctors(ctx context.Context) ([]NamedEntity, error)
	ListTreatments(ctx context.Context, doctorID int64) ([]NamedEntity, error)
	ListInventory(ctx context.Context, doctorID int64) ([]InventoryLevel, error)

	GetSchedule(ctx context.Context, doctorID int64, window DateWindow) ([]AppointmentRecord, error)
	WorkingHours(ctx context.Context, doctorID int64) (startHour, endHour int, err error)
	ActiveAppointment(ctx context.Context, actor Actor, patientID int64) (*AppointmentRecord, error)

	Book(ctx context.Context, spec BookingSpec) (int64, error)
	Block(ctx context.Context, doctorID int64, at time.Time) (int64, error)
	Cancel(ctx context.Context, appointmentID int64, actor Actor) error
	Reschedule(ctx context.Context, appointmentID int64, at time.Time) error
	StartVisit(ctx context.Context, doctorID, patientID int64) (int64, error)
	CompleteVisit(ctx context.Context, doctorID, patientID int64) (invoiceAmount float64, err error)

	AdjustInventory(ctx context.Context, itemID int64, delta int) (newQuantity int, err error)
	SetInventoryThreshold(ctx context.Context, itemID int64, threshold int) error
	SetInventoryPrice(ctx context.Context, itemID int64, price float64) error

	CreateTreatment(ctx context.Context, doctorID int64, name string, price float64) (int64, error)
	DeleteTreatment(ctx context.Context, treatmentID int64) error
	SetTreatmentPrice(ctx context.Context, treatmentID int64, price float64) error

	GetFinancialRecords(ctx context.Context, doctorID int64, window DateWindow) ([]FinancialRecord, error)
	CountPatients(ctx context.Context, doctorID int64, window DateWindow) (int, error)
}

// RejectedError carries a human-readable business-rule violation. The engine
// surfaces the reason verbatim and abandons the pending intent.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string {
	return e.Reason
}

// Rejected builds a RejectedError with a formatted reason.
func Rejected(format string, args ...any) *RejectedError {
	return &RejectedError{Reason: fmt.Sprintf(format, args...)}
}
