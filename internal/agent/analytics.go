package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// ErrProfileNotFound is returned by stores when an actor has no clinic
// profile; the analytics engine converts it into a user-facing message.
var ErrProfileNotFound = errors.New("agent: clinic profile not found")

// analyticsGate is a coarse recall-oriented trigger list. Precision comes
// from the topic sub-routing, not from this gate.
var analyticsGate = []string{
	"how many", "how much", "total", "average", "revenue", "report",
	"trend", "summary", "dashboard", "earnings", "profit", "income",
	"pending", "outstanding", "low stock", "stats", "overview",
}

// Analytics answers read-only reporting queries without touching dialogue
// state. It never mutates anything.
type Analytics struct {
	store  ClinicStore
	logger *logging.Logger
	now    func() time.Time
}

// NewAnalytics constructs the analytics engine.
func NewAnalytics(store ClinicStore, logger *logging.Logger) *Analytics {
	if store == nil {
		panic("agent: clinic store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Analytics{store: store, logger: logger, now: time.Now}
}

// MaybeAnswer returns a report response when the utterance is an analytics
// query, or nil to let the dialogue state machine take the turn.
func (a *Analytics) MaybeAnswer(ctx context.Context, actor Actor, text string) (*Response, error) {
	lowered := strings.ToLower(text)
	if !containsAnyPhrase(lowered, analyticsGate) {
		return nil, nil
	}
	if actor.Role != RoleDoctor {
		return nil, nil
	}

	window := ResolveDateWindow(lowered, a.now())

	var resp *Response
	var err error
	switch {
	case containsAnyPhrase(lowered, []string{"revenue", "earning", "profit", "income", "pending", "outstanding", "paid", "finance"}):
		resp, err = a.financeSummary(ctx, actor, lowered, window)
	case containsAnyPhrase(lowered, []string{"schedule", "appointment", "booking"}):
		resp, err = a.scheduleSummary(ctx, actor, window)
	case containsAnyPhrase(lowered, []string{"patient"}):
		resp, err = a.patientSummary(ctx, actor, window)
	case containsAnyPhrase(lowered, []string{"stock", "inventory", "supplies"}):
		resp, err = a.inventorySummary(ctx, actor)
	case containsAnyPhrase(lowered, []string{"dashboard", "summary", "report", "overview", "stats"}):
		resp, err = a.dashboard(ctx, actor, window)
	default:
		return nil, nil
	}

	if errors.Is(err, ErrProfileNotFound) {
		return &Response{Text: "Your clinic profile was not found. Please contact support."}, nil
	}
	return resp, err
}

func (a *Analytics) financeSummary(ctx context.Context, actor Actor, lowered string, window DateWindow) (*Response, error) {
	records, err := a.store.GetFinancialRecords(ctx, actor.ID, window)
	if err != nil {
		return nil, err
	}

	var paid, pending float64
	var paidCount, pendingCount int
	for _, r := range records {
		switch r.Status {
		case "paid", "completed":
			paid += r.Amount
			paidCount++
		case "pending":
			pending += r.Amount
			pendingCount++
		}
	}

	if containsAnyPhrase(lowered, []string{"pending", "outstanding"}) {
		return &Response{Text: fmt.Sprintf("Outstanding — %s:\n%d unpaid invoices totaling %.2f.",
			window.Label, pendingCount, pending)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Finance — %s:\n", window.Label)
	fmt.Fprintf(&b, "Revenue (paid): %.2f across %d invoices.\n", paid, paidCount)
	fmt.Fprintf(&b, "Pending: %.2f across %d invoices.", pending, pendingCount)
	return &Response{Text: b.String()}, nil
}

func (a *Analytics) scheduleSummary(ctx context.Context, actor Actor, window DateWindow) (*Response, error) {
	appts, err := a.store.GetSchedule(ctx, actor.ID, window)
	if err != nil {
		return nil, err
	}
	if len(appts) == 0 {
		return &Response{Text: fmt.Sprintf("No appointments scheduled for %s.", window.Label)}, nil
	}

	byStatus := make(map[string]int)
	var b strings.Builder
	fmt.Fprintf(&b, "Schedule — %s (%d appointments):\n", window.Label, len(appts))
	for _, appt := range appts {
		byStatus[appt.Status]++
		fmt.Fprintf(&b, "%s %s — %s (%s)\n",
			appt.Start.Format("Jan 2"), FormatClock(appt.Start.Hour(), appt.Start.Minute()),
			appt.PatientName, appt.Status)
	}
	fmt.Fprintf(&b, "Booked: %d, completed: %d, cancelled: %d.",
		byStatus["booked"], byStatus["completed"], byStatus["cancelled"])
	return &Response{Text: b.String()}, nil
}

func (a *Analytics) patientSummary(ctx context.Context, actor Actor, window DateWindow) (*Response, error) {
	count, err := a.store.CountPatients(ctx, actor.ID, window)
	if err != nil {
		return nil, err
	}
	return &Response{Text: fmt.Sprintf("You saw %d patients %s.", count, window.Label)}, nil
}

func (a *Analytics) inventorySummary(ctx context.Context, actor Actor) (*Response, error) {
	items, err := a.store.ListInventory(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var low []InventoryLevel
	for _, item := range items {
		if item.Quantity <= item.Threshold {
			low = append(low, item)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Inventory health: %d items tracked.\n", len(items))
	if len(low) == 0 {
		b.WriteString("All items above their reorder thresholds.")
	} else {
		fmt.Fprintf(&b, "%d items at or below threshold:\n", len(low))
		for _, item := range low {
			fmt.Fprintf(&b, "%s: %d left (threshold %d)\n", item.Name, item.Quantity, item.Threshold)
		}
	}
	return &Response{Text: strings.TrimRight(b.String(), "\n")}, nil
}

func (a *Analytics) dashboard(ctx context.Context, actor Actor, window DateWindow) (*Response, error) {
	appts, err := a.store.GetSchedule(ctx, actor.ID, window)
	if err != nil {
		return nil, err
	}
	records, err := a.store.GetFinancialRecords(ctx, actor.ID, window)
	if err != nil {
		return nil, err
	}
	items, err := a.store.ListInventory(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	var revenue float64
	for _, r := range records {
		if r.Status == "paid" || r.Status == "completed" {
			revenue += r.Amount
		}
	}
	lowStock := 0
	for _, item := range items {
		if item.Quantity <= item.Threshold {
			lowStock++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dashboard — %s:\n", window.Label)
	fmt.Fprintf(&b, "Appointments: %d\n", len(appts))
	fmt.Fprintf(&b, "Revenue (paid): %.2f\n", revenue)
	fmt.Fprintf(&b, "Low-stock items: %d", lowStock)
	return &Response{Text: b.String()}, nil
}

func containsAnyPhrase(text string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
