package agent

import "strings"

// Intent is a classified user goal mapped to one dispatchable operation.
type Intent string

const (
	IntentUnknown          Intent = ""
	IntentApptBook         Intent = "appt_book"
	IntentApptBlock        Intent = "appt_block"
	IntentApptCancel       Intent = "appt_cancel"
	IntentApptReschedule   Intent = "appt_reschedule"
	IntentClinicalStart    Intent = "clinical_start"
	IntentClinicalComplete Intent = "clinical_complete"
	IntentInvAdjust        Intent = "inv_adjust"
	IntentInvThreshold     Intent = "inv_threshold"
	IntentInvPrice         Intent = "inv_price"
	IntentTreatmentCreate  Intent = "treatment_create"
	IntentTreatmentDelete  Intent = "treatment_delete"
	IntentTreatmentPrice   Intent = "treatment_price"
)

// keywordRule maps trigger phrases to an intent via substring containment.
type keywordRule struct {
	Intent  Intent
	Phrases []string
}

// overrideRules are checked before the statistical classifier and win
// outright when triggered. Order matters: earlier rules shadow later ones,
// so the more specific phrases come first.
var overrideRules = []keywordRule{
	{IntentTreatmentDelete, []string{"delete treatment", "remove treatment"}},
	{IntentTreatmentCreate, []string{"new treatment", "add treatment", "create treatment"}},
	{IntentInvPrice, []string{"buying cost", "purchase cost"}},
	{IntentInvThreshold, []string{"drop below", "drops below", "threshold", "alert me when"}},
	{IntentInvAdjust, []string{"restock", "add stock", "received stock"}},
	{IntentApptReschedule, []string{"reschedule", "move my appointment"}},
	{IntentApptCancel, []string{"cancel appointment", "cancel my appointment"}},
	{IntentApptBlock, []string{"block"}},
}

// fallbackRules run only when the classifier's best similarity sits below
// the confidence floor. Every phrase in a rule must appear for it to fire.
var fallbackRules = []struct {
	Intent Intent
	All    []string
}{
	{IntentClinicalStart, []string{"start", "visit"}},
	{IntentClinicalComplete, []string{"complete"}},
	{IntentClinicalComplete, []string{"finished"}},
	{IntentApptBook, []string{"book"}},
	{IntentApptBook, []string{"appointment"}},
}

// matchOverride returns the first override rule triggered by the utterance.
func matchOverride(text string) Intent {
	for _, rule := range overrideRules {
		for _, phrase := range rule.Phrases {
			if strings.Contains(text, phrase) {
				return rule.Intent
			}
		}
	}
	return IntentUnknown
}

// matchFallback returns the first fallback rule whose phrases all appear.
func matchFallback(text string) Intent {
	for _, rule := range fallbackRules {
		hit := true
		for _, phrase := range rule.All {
			if !strings.Contains(text, phrase) {
				hit = false
				break
			}
		}
		if hit {
			return rule.Intent
		}
	}
	return IntentUnknown
}

// TrainingCorpus is the labeled example set the classifier is fitted over at
// startup. Phrases are kept short and colloquial; the character n-gram
// vectorizer tolerates inflection and minor misspellings.
func TrainingCorpus() map[Intent][]string {
	return map[Intent][]string{
		IntentApptBook: {
			"book an appointment",
			"i want to book a visit",
			"schedule me for a cleaning",
			"can i get an appointment tomorrow",
			"make a booking for root canal",
		},
		IntentApptBlock: {
			"block 3pm today",
			"block out my afternoon",
			"mark 2pm as unavailable",
		},
		IntentApptCancel: {
			"cancel my appointment",
			"i need to cancel the booking",
			"drop my visit tomorrow",
		},
		IntentApptReschedule: {
			"reschedule my appointment",
			"move my booking to 4pm",
			"change my appointment time",
		},
		IntentClinicalStart: {
			"start visit for john",
			"begin treatment for my next patient",
			"patient is in the chair start the visit",
		},
		IntentClinicalComplete: {
			"complete the visit",
			"finished with this patient",
			"mark the treatment as done and bill it",
		},
		IntentInvAdjust: {
			"add 50 gloves to inventory",
			"restock anesthetic cartridges",
			"received 20 boxes of masks",
		},
		IntentInvThreshold: {
			"alert me when gloves drop below 10",
			"set the reorder threshold for masks",
			"warn me if stock runs low",
		},
		IntentInvPrice: {
			"set buying cost of gloves to 200",
			"update the purchase cost for cement",
		},
		IntentTreatmentCreate: {
			"add a new treatment called whitening",
			"create treatment teeth cleaning for 80",
		},
		IntentTreatmentDelete: {
			"delete treatment root canal",
			"remove the whitening treatment",
		},
		IntentTreatmentPrice: {
			"change the price of root canal to 300",
			"set treatment price for cleaning",
		},
	}
}
