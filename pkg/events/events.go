package events

// Topic identifies a class of domain events emitted by the wizard core.
type Topic string

const (
	TopicStepActivated      Topic = "step.activated"
	TopicDisclosureChanged  Topic = "disclosure.changed"
	TopicEligibilityChanged Topic = "eligibility.changed"
	TopicEntityChanged      Topic = "entity.changed"
	TopicRecordSaved        Topic = "record.saved"
	TopicRecordCleared      Topic = "record.cleared"
	TopicStoreTeardown      Topic = "store.teardown"
)

// Event is implemented by every payload published on the bus.
type Event interface {
	Topic() Topic
}

// StepActivated fires after the navigator marks a new step active. Previous
// is -1 when no step was active before.
type StepActivated struct {
	Index    int
	Previous int
}

func (StepActivated) Topic() Topic { return TopicStepActivated }

// DisclosureChanged reports the element ids touched by a single cascade.
type DisclosureChanged struct {
	Control  string
	Hidden   []string
	Revealed []string
	Cleared  []string
}

func (DisclosureChanged) Topic() Topic { return TopicDisclosureChanged }

// EligibilityChanged fires when the terminal "ineligible" evaluation flips.
type EligibilityChanged struct {
	Ineligible bool
	Step       int
}

func (EligibilityChanged) Topic() Topic { return TopicEligibilityChanged }

// EntityOp names the mutation applied to an entity collection.
type EntityOp string

const (
	EntityAdded   EntityOp = "add"
	EntityUpdated EntityOp = "update"
	EntityRemoved EntityOp = "remove"
)

// EntityChanged fires after a collection mutation. Ref is the textual form of
// the affected reference ("legalRep" or a numeric index) and Count the
// resulting sequence length.
type EntityChanged struct {
	Collection string
	Op         EntityOp
	Ref        string
	Count      int
}

func (EntityChanged) Topic() Topic { return TopicEntityChanged }

// RecordSaved fires after a store write.
type RecordSaved struct {
	Key   string
	Owner string
}

func (RecordSaved) Topic() Topic { return TopicRecordSaved }

// RecordCleared fires after a key is removed from the store.
type RecordCleared struct {
	Key   string
	Owner string
}

func (RecordCleared) Topic() Topic { return TopicRecordCleared }

// StoreTeardown fires when the session store is torn down. Suppressed is true
// when the forwarding flag kept the records alive.
type StoreTeardown struct {
	Keys       []string
	Suppressed bool
}

func (StoreTeardown) Topic() Topic { return TopicStoreTeardown }
