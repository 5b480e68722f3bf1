package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/morelandlabs/dentalagent/internal/observability/metrics"
	"github.com/morelandlabs/dentalagent/pkg/logging"
)

// Engine is the dialogue state machine: per-actor sessions, one slot
// resolved per turn, dispatch when the intent is fully specified.
type Engine struct {
	store      ClinicStore
	sessions   SessionStore
	classifier *Classifier
	matcher    *Matcher
	analytics  *Analytics
	dispatcher *Dispatcher
	thresholds map[EntityType]int
	logger     *logging.Logger
	metrics    *metrics.AgentMetrics
	now        func() time.Time

	mu         sync.Mutex
	actorLocks map[string]*sync.Mutex
}

// EngineConfig wires the engine's collaborators.
type EngineConfig struct {
	Store      ClinicStore
	Sessions   SessionStore
	Classifier *Classifier
	Matcher    *Matcher
	Analytics  *Analytics
	Dispatcher *Dispatcher
	Thresholds map[EntityType]int
	Logger     *logging.Logger
	Metrics    *metrics.AgentMetrics
}

// NewEngine constructs the engine.
func NewEngine(cfg EngineConfig) *Engine {
	if cfg.Store == nil {
		panic("agent: clinic store required")
	}
	if cfg.Sessions == nil {
		cfg.Sessions = NewMemorySessionStore(30 * time.Minute)
	}
	if cfg.Classifier == nil {
		cfg.Classifier = NewClassifier(TrainingCorpus(), 0.38)
	}
	if cfg.Matcher == nil {
		cfg.Matcher = NewMatcher(5, cfg.Logger)
	}
	if cfg.Analytics == nil {
		cfg.Analytics = NewAnalytics(cfg.Store, cfg.Logger)
	}
	if cfg.Dispatcher == nil {
		cfg.Dispatcher = NewDispatcher(cfg.Store, cfg.Logger, cfg.Metrics)
	}
	if cfg.Thresholds == nil {
		cfg.Thresholds = map[EntityType]int{
			EntityPatient:   60,
			EntityDoctor:    70,
			EntityTreatment: 65,
			EntityInventory: 50,
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	return &Engine{
		store:      cfg.Store,
		sessions:   cfg.Sessions,
		classifier: cfg.Classifier,
		matcher:    cfg.Matcher,
		analytics:  cfg.Analytics,
		dispatcher: cfg.Dispatcher,
		thresholds: cfg.Thresholds,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		now:        time.Now,
		actorLocks: make(map[string]*sync.Mutex),
	}
}

// lockActor serializes turns per actor; turns from different actors proceed
// in parallel.
func (e *Engine) lockActor(key string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.actorLocks[key]
	if !ok {
		l = &sync.Mutex{}
		e.actorLocks[key] = l
	}
	return l
}

// ProcessTurn handles a single utterance for an actor. It never returns an
// error: every failure path produces a Response, and an unexpected panic
// resets the session so the dialogue cannot deadlock mid-flow.
func (e *Engine) ProcessTurn(ctx context.Context, actor Actor, message string) (resp *Response) {
	key := actor.Key()
	lock := e.lockActor(key)
	lock.Lock()
	defer lock.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("turn processing panicked", "actor", key, "panic", r)
			_ = e.sessions.Delete(ctx, key)
			e.metrics.ObserveTurn(string(actor.Role), "error")
			resp = &Response{Text: fmt.Sprintf("System error: %v", r)}
		}
	}()

	message = strings.TrimSpace(message)
	if message == "" {
		return e.help(actor)
	}

	session, err := e.sessions.Get(ctx, key)
	if err != nil {
		e.logger.Error("session load failed", "actor", key, "error", err)
		session = nil
	}

	// Analytics never starts or interrupts a pending form-fill.
	if session == nil {
		if answer, err := e.analytics.MaybeAnswer(ctx, actor, message); err != nil {
			e.logger.Error("analytics query failed", "actor", key, "error", err)
			e.metrics.ObserveTurn(string(actor.Role), "error")
			return &Response{Text: "System error: the report could not be generated. Please try again."}
		} else if answer != nil {
			e.metrics.ObserveTurn(string(actor.Role), "answered")
			return answer
		}
	}

	isNewIntent := false
	if session == nil {
		intent, confidence, source := e.classifier.Classify(message)
		if intent == IntentUnknown {
			e.metrics.ObserveTurn(string(actor.Role), "unknown")
			return e.help(actor)
		}
		if specFor(intent, actor.Role) == nil {
			e.metrics.ObserveTurn(string(actor.Role), "unknown")
			return e.help(actor)
		}
		e.metrics.ObserveIntent(string(intent), source)
		e.logger.Debug("intent resolved", "actor", key, "intent", intent,
			"confidence", confidence, "source", source)
		session = NewSession(intent)
		isNewIntent = true
	}

	spec := specFor(session.Intent, actor.Role)
	if spec == nil {
		// Session carries an intent this role cannot run; drop it.
		_ = e.sessions.Delete(ctx, key)
		e.metrics.ObserveTurn(string(actor.Role), "unknown")
		return e.help(actor)
	}

	// Backing out mid-flow: an explicit denial on any resumed turn abandons
	// the pending intent instead of re-prompting until the session expires.
	if !isNewIntent && containsDenial(message) && !containsConfirmation(message) {
		_ = e.sessions.Delete(ctx, key)
		e.metrics.ObserveTurn(string(actor.Role), "cancelled")
		return &Response{Text: "Cancelled. Nothing was changed."}
	}

	// A tapped disambiguation button arrives as its action string. Consume it
	// so the id digits never leak into number or name extraction.
	if !isNewIntent && e.applySelection(ctx, actor, spec, session, message) {
		message = ""
	}

	_, prompt, reset := e.fillSlots(ctx, actor, spec, session, message, isNewIntent)
	if prompt != nil {
		if reset {
			_ = e.sessions.Delete(ctx, key)
			e.metrics.ObserveTurn(string(actor.Role), "rejected")
			return prompt
		}
		if err := e.sessions.Put(ctx, key, session); err != nil {
			e.logger.Error("session save failed", "actor", key, "error", err)
		}
		e.metrics.ObserveTurn(string(actor.Role), "prompted")
		return prompt
	}

	if spec.Confirm && session.Slots["_confirmed"] != "yes" {
		// Denials never reach here: the resumed-turn check above already
		// cancelled, and an initiating utterance cannot deny its own flow.
		if containsConfirmation(message) {
			session.Slots["_confirmed"] = "yes"
		} else {
			if err := e.sessions.Put(ctx, key, session); err != nil {
				e.logger.Error("session save failed", "actor", key, "error", err)
			}
			e.metrics.ObserveTurn(string(actor.Role), "prompted")
			return &Response{Text: "Are you sure? Reply yes to confirm or no to cancel."}
		}
	}

	// Dispatch resets state unconditionally: a failed operation must not
	// leave the actor stuck mid-flow.
	result, err := e.dispatcher.Dispatch(ctx, actor, session.Intent, session.Slots, e.now())
	_ = e.sessions.Delete(ctx, key)
	if err != nil {
		var rejected *RejectedError
		if errors.As(err, &rejected) {
			e.metrics.ObserveTurn(string(actor.Role), "rejected")
			return &Response{Text: rejected.Reason}
		}
		e.logger.Error("dispatch failed", "actor", key, "intent", session.Intent, "error", err)
		e.metrics.ObserveTurn(string(actor.Role), "error")
		return &Response{Text: "System error: the operation could not be completed. Please try again."}
	}
	e.metrics.ObserveTurn(string(actor.Role), "dispatched")
	return result
}

// fillSlots walks the spec's slot order and fills missing slots from the
// utterance. At most one free-text (name) slot consumes the utterance per
// turn; number/time/date slots may fill alongside it. Returns the number of
// slots filled, a prompt when a slot is still missing, and whether the flow
// should be abandoned instead of re-prompted.
func (e *Engine) fillSlots(ctx context.Context, actor Actor, spec *IntentSpec, session *Session, message string, isNewIntent bool) (int, *Response, bool) {
	filled := 0
	nameUsed := false
	for _, slot := range spec.Slots {
		if _, ok := session.Slots[slot.Name]; ok {
			continue
		}

		switch slot.Kind {
		case KindNumber:
			v, ok := ExtractNumber(message, slot.Number)
			if !ok {
				return filled, &Response{Text: slot.Prompt}, false
			}
			session.Slots[slot.Name] = trimFloat(v)
			filled++

		case KindTime:
			hour, minute, ok := ExtractTimeOfDay(message)
			if !ok {
				return filled, &Response{Text: slot.Prompt}, false
			}
			session.Slots[slot.Name] = fmt.Sprintf("%02d:%02d", hour, minute)
			filled++

		case KindDate:
			// The intent-initiating turn may leave the day implicit ("block
			// 3pm" means today); a resumed turn must name one or be asked.
			if !isNewIntent && !hasDatePhrase(message) {
				return filled, &Response{Text: slot.Prompt}, false
			}
			window := ResolveDateWindow(message, e.now())
			session.Slots[slot.Name] = window.Start.Format("2006-01-02")
			filled++

		case KindText:
			if nameUsed {
				return filled, &Response{Text: slot.Prompt}, false
			}
			candidate := ExtractName(message, slot.StopPhrases)
			if candidate == "" {
				return filled, &Response{Text: slot.Prompt}, false
			}
			session.Slots[slot.Name] = candidate
			nameUsed = true
			filled++

		case KindEntity:
			if nameUsed {
				return filled, &Response{Text: slot.Prompt}, false
			}
			candidate := ExtractName(message, slot.StopPhrases)
			if candidate == "" {
				return filled, &Response{Text: slot.Prompt}, false
			}
			nameUsed = true
			resp, ok, reset := e.resolveEntitySlot(ctx, actor, spec, session, slot, candidate)
			if !ok {
				return filled, resp, reset
			}
			filled++
		}
	}
	return filled, nil, false
}

var selectAction = regexp.MustCompile(`^select:([a-z_]+):(\d+)$`)

// applySelection fills an entity slot from a disambiguation button action.
// The id must still exist in the slot's live pool.
func (e *Engine) applySelection(ctx context.Context, actor Actor, spec *IntentSpec, session *Session, message string) bool {
	m := selectAction.FindStringSubmatch(message)
	if m == nil {
		return false
	}
	for _, slot := range spec.Slots {
		if slot.Name != m[1] || slot.Kind != KindEntity {
			continue
		}
		if _, ok := session.Slots[slot.Name]; ok {
			return false
		}
		pool, err := e.fetchPool(ctx, actor, session, slot.Entity)
		if err != nil {
			e.logger.Error("entity pool fetch failed", "entity", slot.Entity.String(), "error", err)
			return false
		}
		id, _ := strconv.ParseInt(m[2], 10, 64)
		for _, ent := range pool {
			if ent.ID == id {
				session.Slots[slot.Name] = ent.Name
				session.Slots[slot.Name+"_id"] = m[2]
				return true
			}
		}
		return false
	}
	return false
}

// resolveEntitySlot fuzzy-matches the candidate against the slot's live pool.
// The trailing bool asks the caller to abandon the flow rather than re-prompt.
func (e *Engine) resolveEntitySlot(ctx context.Context, actor Actor, spec *IntentSpec, session *Session, slot SlotSpec, candidate string) (*Response, bool, bool) {
	pool, err := e.fetchPool(ctx, actor, session, slot.Entity)
	if err != nil {
		e.logger.Error("entity pool fetch failed", "entity", slot.Entity.String(), "error", err)
		return &Response{Text: "System error: records are unavailable right now. Please try again."}, false, false
	}

	best, ties := e.matcher.Resolve(candidate, pool, e.thresholds[slot.Entity])
	if best != nil {
		session.Slots[slot.Name] = best.Name
		session.Slots[slot.Name+"_id"] = strconv.FormatInt(best.ID, 10)
		return nil, true, false
	}
	if len(ties) > 0 {
		buttons := make([]Button, 0, len(ties))
		for _, t := range ties {
			buttons = append(buttons, Button{
				Label:  t.Name,
				Action: fmt.Sprintf("select:%s:%d", slot.Name, t.ID),
				Type:   "choice",
			})
		}
		return &Response{
			Text:    fmt.Sprintf("I found several matches for %q. Which one did you mean?", candidate),
			Buttons: buttons,
		}, false, false
	}

	// Completing a visit for an unmatched patient abandons the flow outright:
	// there is nothing useful to re-prompt for.
	if spec.Intent == IntentClinicalComplete {
		return &Response{Text: "No in-progress visit found for that patient."}, false, true
	}
	return &Response{Text: fmt.Sprintf("No %s found matching %q.", slot.Entity.String(), candidate)}, false, false
}

// fetchPool snapshots the live names for an entity type. For patient-facing
// booking the treatment pool is scoped to the doctor already chosen.
func (e *Engine) fetchPool(ctx context.Context, actor Actor, session *Session, entity EntityType) ([]NamedEntity, error) {
	doctorID := actor.ID
	if actor.Role == RolePatient {
		doctorID, _ = strconv.ParseInt(session.Slots["doctor_id"], 10, 64)
	}

	switch entity {
	case EntityPatient:
		return e.store.ListPatients(ctx, doctorID)
	case EntityDoctor:
		return e.store.ListDoctors(ctx)
	case EntityTreatment:
		return e.store.ListTreatments(ctx, doctorID)
	case EntityInventory:
		items, err := e.store.ListInventory(ctx, doctorID)
		if err != nil {
			return nil, err
		}
		pool := make([]NamedEntity, 0, len(items))
		for _, item := range items {
			pool = append(pool, NamedEntity{ID: item.ID, Name: item.Name})
		}
		return pool, nil
	}
	return nil, nil
}

func (e *Engine) help(actor Actor) *Response {
	if actor.Role == RoleDoctor {
		return &Response{Text: "I didn't catch that. Try:\n" +
			"\"block 3pm today\"\n" +
			"\"start visit for John\"\n" +
			"\"complete\"\n" +
			"\"add 50 gloves to inventory\"\n" +
			"\"alert me when gloves drop below 10\"\n" +
			"\"how much revenue this week\""}
	}
	return &Response{Text: "I didn't catch that. Try:\n" +
		"\"book an appointment\"\n" +
		"\"reschedule my appointment to 4pm tomorrow\"\n" +
		"\"cancel my appointment\""}
}

func trimFloat(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

