package intake

import (
	"errors"

	"github.com/goliatone/go-formwizard/pkg/entity"
	"github.com/goliatone/go-formwizard/pkg/render"
	"github.com/goliatone/go-formwizard/pkg/store"
)

// ErrNoTask is returned by Bootstrap when no task was selected before the
// wizard was opened.
var ErrNoTask = errors.New("intake: no task selected")

// Store owners. Each owns a disjoint set of keys.
const (
	OwnerNavigator       = "navigator"
	OwnerRepresentatives = "representatives"
	OwnerDocuments       = "documents"
	OwnerSession         = "session"
	OwnerChooser         = "chooser"
)

// Session records seeded from the selected task.
var (
	SelectedTaskKey = store.NewKey[Task]("selectedTask")
	DeceasedInfoKey = store.NewKey[DeceasedInfo]("deceasedInfo")
	UserLevelKey    = store.NewKey[int]("userLevel")
	RACUserNameKey  = store.NewKey[string]("racUserName")
)

const (
	// DefaultUserLevel applies when the task carries no usable level.
	DefaultUserLevel = 2
	// DefaultRepName is shown when the task has no account user name.
	DefaultRepName = "REPRESENTATIVE NAME"
)

// ForwardedKeys are handed to the confirmation page on submission.
var ForwardedKeys = []string{DeceasedInfoKey.Name, entity.LegalRepKey.Name, RACUserNameKey.Name}

// DeceasedLabels label the deceased information panel.
var DeceasedLabels = []string{"Name of deceased", "Social insurance number (SIN)", "Date of death"}

// DeceasedInfo is the record of the deceased individual kept on file.
type DeceasedInfo struct {
	Name        string `json:"name,omitempty" yaml:"name,omitempty"`
	SIN         string `json:"sin,omitempty" yaml:"sin,omitempty"`
	DateOfDeath string `json:"dateOfDeath,omitempty" yaml:"dateOfDeath,omitempty"`
}

// Entries lists the fields in panel order.
func (d DeceasedInfo) Entries() []render.Entry {
	return []render.Entry{
		{Key: "name", Value: d.Name},
		{Key: "sin", Value: d.SIN},
		{Key: "dateOfDeath", Value: d.DateOfDeath},
	}
}

// Task is the work item picked on the chooser page.
type Task struct {
	DeceasedInfo        *DeceasedInfo          `json:"deceasedInfo,omitempty" yaml:"deceasedInfo,omitempty"`
	UserLevel           int                    `json:"userLevel,omitempty" yaml:"userLevel,omitempty"`
	LegalRepresentative *entity.Representative `json:"legalRepresentative,omitempty" yaml:"legalRepresentative,omitempty"`
	RACUserName         string                 `json:"racUserName,omitempty" yaml:"racUserName,omitempty"`
}
