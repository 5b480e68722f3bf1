package agent

// EntityType selects which live pool a name slot resolves against.
type EntityType int

const (
	EntityNone EntityType = iota
	EntityPatient
	EntityDoctor
	EntityTreatment
	EntityInventory
)

func (e EntityType) String() string {
	switch e {
	case EntityPatient:
		return "patient"
	case EntityDoctor:
		return "doctor"
	case EntityTreatment:
		return "treatment"
	case EntityInventory:
		return "item"
	default:
		return "entity"
	}
}

// SlotKind is the extraction strategy for a slot.
type SlotKind int

const (
	KindNumber SlotKind = iota
	KindTime
	KindDate
	KindEntity
	KindText
)

// SlotSpec describes one required parameter of an intent: how to pull it out
// of an utterance and what to ask when it is missing.
type SlotSpec struct {
	Name        string
	Kind        SlotKind
	Number      NumberRule
	Entity      EntityType
	StopPhrases []string
	Prompt      string
}

// IntentSpec is the ordered slot list for an intent. Confirm marks
// destructive intents that require an explicit "yes" before dispatch.
type IntentSpec struct {
	Intent  Intent
	Slots   []SlotSpec
	Confirm bool
}

var bookingStops = []string{"book", "schedule", "appointment", "visit", "an", "a", "for", "with", "me", "please", "i want to", "can i", "get"}

// specFor returns the slot plan for an intent given the actor's role, or nil
// when the intent is not available to that role.
func specFor(intent Intent, role Role) *IntentSpec {
	switch intent {
	case IntentApptBook:
		slots := []SlotSpec{
			{Name: "treatment", Kind: KindEntity, Entity: EntityTreatment, StopPhrases: bookingStops,
				Prompt: "Which treatment would you like to book?"},
			{Name: "date", Kind: KindDate, Prompt: "Which day works for you?"},
			{Name: "time", Kind: KindTime, Prompt: "What time works for you? (e.g. 3pm or 15:00)"},
		}
		if role == RolePatient {
			slots = append([]SlotSpec{
				{Name: "doctor", Kind: KindEntity, Entity: EntityDoctor, StopPhrases: bookingStops,
					Prompt: "Which doctor would you like to see?"},
			}, slots...)
		} else {
			slots = append([]SlotSpec{
				{Name: "patient", Kind: KindEntity, Entity: EntityPatient, StopPhrases: bookingStops,
					Prompt: "Which patient is this booking for?"},
			}, slots...)
		}
		return &IntentSpec{Intent: intent, Slots: slots}

	case IntentApptBlock:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "time", Kind: KindTime, Prompt: "What time should I block? (e.g. 3pm)"},
			{Name: "date", Kind: KindDate, Prompt: "Which day?"},
		}}

	case IntentApptCancel:
		spec := &IntentSpec{Intent: intent, Confirm: true}
		if role == RoleDoctor {
			spec.Slots = []SlotSpec{
				{Name: "patient", Kind: KindEntity, Entity: EntityPatient,
					StopPhrases: []string{"cancel", "appointment", "the", "for", "my"},
					Prompt:      "Whose appointment should I cancel?"},
			}
		}
		return spec

	case IntentApptReschedule:
		slots := []SlotSpec{
			{Name: "date", Kind: KindDate, Prompt: "Which day should I move it to?"},
			{Name: "time", Kind: KindTime, Prompt: "What new time? (e.g. 4pm)"},
		}
		if role == RoleDoctor {
			slots = append([]SlotSpec{
				{Name: "patient", Kind: KindEntity, Entity: EntityPatient,
					StopPhrases: []string{"reschedule", "move", "appointment", "the", "for", "my", "to"},
					Prompt:      "Whose appointment should I move?"},
			}, slots...)
		}
		return &IntentSpec{Intent: intent, Slots: slots}

	case IntentClinicalStart:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "patient", Kind: KindEntity, Entity: EntityPatient,
				StopPhrases: []string{"start", "begin", "visit", "treatment", "for", "the", "patient"},
				Prompt:      "Which patient is starting their visit?"},
		}}

	case IntentClinicalComplete:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "patient", Kind: KindEntity, Entity: EntityPatient,
				StopPhrases: []string{"complete", "completed", "finish", "finished", "done", "visit", "with", "the", "patient", "mark", "as"},
				Prompt:      "Which patient is finished?"},
		}}

	case IntentInvAdjust:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "item", Kind: KindEntity, Entity: EntityInventory,
				StopPhrases: []string{"add", "restock", "received", "stock", "inventory", "to", "of", "boxes", "box", "units"},
				Prompt:      "Which inventory item?"},
			// Quantity leads the phrase ("add 50 gloves"), so take the first number.
			{Name: "quantity", Kind: KindNumber, Number: FirstNumber,
				Prompt: "How many units?"},
		}}

	case IntentInvThreshold:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "item", Kind: KindEntity, Entity: EntityInventory,
				StopPhrases: []string{"alert", "warn", "me", "when", "if", "set", "the", "reorder", "threshold", "for", "drop", "drops", "below", "stock", "runs", "low"},
				Prompt:      "Which inventory item?"},
			// The number follows "drops below X", so take the last number.
			{Name: "threshold", Kind: KindNumber, Number: LastNumber,
				Prompt: "Alert when quantity drops below what number?"},
		}}

	case IntentInvPrice:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "item", Kind: KindEntity, Entity: EntityInventory,
				StopPhrases: []string{"set", "update", "buying", "purchase", "cost", "price", "of", "for", "the", "to"},
				Prompt:      "Which inventory item?"},
			// "set buying cost of gloves to 200" — the price trails the phrase.
			{Name: "price", Kind: KindNumber, Number: LastNumber,
				Prompt: "What is the new buying cost?"},
		}}

	case IntentTreatmentCreate:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "name", Kind: KindText,
				StopPhrases: []string{"add", "create", "new", "treatment", "called", "named", "a", "for"},
				Prompt:      "What is the new treatment called?"},
			{Name: "price", Kind: KindNumber, Number: LastNumber,
				Prompt: "What price should it have?"},
		}}

	case IntentTreatmentDelete:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Confirm: true, Slots: []SlotSpec{
			{Name: "treatment", Kind: KindEntity, Entity: EntityTreatment,
				StopPhrases: []string{"delete", "remove", "treatment", "the"},
				Prompt:      "Which treatment should I delete?"},
		}}

	case IntentTreatmentPrice:
		if role != RoleDoctor {
			return nil
		}
		return &IntentSpec{Intent: intent, Slots: []SlotSpec{
			{Name: "treatment", Kind: KindEntity, Entity: EntityTreatment,
				StopPhrases: []string{"change", "set", "update", "the", "price", "of", "for", "treatment", "to"},
				Prompt:      "Which treatment?"},
			{Name: "price", Kind: KindNumber, Number: LastNumber,
				Prompt: "What is the new price?"},
		}}
	}
	return nil
}
