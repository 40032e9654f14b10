package notify

import (
	"fmt"
	"time"

	"github.com/bwise1/civic_dispatch/internal/model"
	"github.com/google/uuid"
)

// TargetKind groups channels that share one delivery queue.
type TargetKind int

const (
	TargetOwner TargetKind = iota
	TargetAuthority
	TargetAdmin
)

func (k TargetKind) String() string {
	switch k {
	case TargetOwner:
		return "owner"
	case TargetAuthority:
		return "authority"
	case TargetAdmin:
		return "admin"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

const AdminChannel = "admin_dashboard"

const (
	EventReportStatusChanged = "reportStatusChanged"
	EventWorkUpdate          = "workUpdate"
	EventReportUpdated       = "reportUpdated"
	EventReportAssigned      = "reportAssigned"
)

func UserChannel(id uuid.UUID) string {
	return "user_" + id.String()
}

func AuthorityChannel(id uuid.UUID) string {
	return "authority_" + id.String()
}

// Message is one delivery to one channel.
type Message struct {
	Channel string `json:"channel"`
	Event   string `json:"event"`
	Payload any    `json:"data"`
}

type Target struct {
	Kind    TargetKind
	Message Message
}

// Event describes a committed change and everyone who should hear about it.
type Event struct {
	ReportID  uuid.UUID
	NewStatus model.Status
	Targets   []Target
}

type StatusChangedPayload struct {
	ReportID  uuid.UUID    `json:"report_id"`
	NewStatus model.Status `json:"new_status"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type WorkUpdatePayload struct {
	ReportID  uuid.UUID    `json:"report_id"`
	NewStatus model.Status `json:"new_status"`
	Priority  int          `json:"priority"`
}

type ReportUpdatedPayload struct {
	ReportID  uuid.UUID      `json:"report_id"`
	Category  model.Category `json:"category"`
	NewStatus model.Status   `json:"new_status"`
	Location  model.Location `json:"location"`
}

type ReportAssignedPayload struct {
	ReportID uuid.UUID      `json:"report_id"`
	Title    string         `json:"title"`
	Category model.Category `json:"category"`
	Priority int            `json:"priority"`
	Location model.Location `json:"location"`
}

// StatusChanged builds the fan-out for a status transition. The owner and
// authority targets are omitted when the report has none; the admin feed
// always receives it.
func StatusChanged(r model.Report) Event {
	ev := Event{ReportID: r.ID, NewStatus: r.Status}
	if r.OwnerID != uuid.Nil {
		ev.Targets = append(ev.Targets, Target{
			Kind: TargetOwner,
			Message: Message{
				Channel: UserChannel(r.OwnerID),
				Event:   EventReportStatusChanged,
				Payload: StatusChangedPayload{ReportID: r.ID, NewStatus: r.Status, UpdatedAt: r.UpdatedAt},
			},
		})
	}
	if r.AssignedAuthority != nil {
		ev.Targets = append(ev.Targets, Target{
			Kind: TargetAuthority,
			Message: Message{
				Channel: AuthorityChannel(*r.AssignedAuthority),
				Event:   EventWorkUpdate,
				Payload: WorkUpdatePayload{ReportID: r.ID, NewStatus: r.Status, Priority: r.PriorityScore},
			},
		})
	}
	ev.Targets = append(ev.Targets, Target{
		Kind: TargetAdmin,
		Message: Message{
			Channel: AdminChannel,
			Event:   EventReportUpdated,
			Payload: ReportUpdatedPayload{ReportID: r.ID, Category: r.Category, NewStatus: r.Status, Location: r.Location},
		},
	})
	return ev
}

// Assigned tells the routed authority about a new report. Unassigned reports
// produce an event with no targets.
func Assigned(r model.Report) Event {
	ev := Event{ReportID: r.ID, NewStatus: r.Status}
	if r.AssignedAuthority == nil {
		return ev
	}
	ev.Targets = append(ev.Targets, Target{
		Kind: TargetAuthority,
		Message: Message{
			Channel: AuthorityChannel(*r.AssignedAuthority),
			Event:   EventReportAssigned,
			Payload: ReportAssignedPayload{
				ReportID: r.ID,
				Title:    r.Title,
				Category: r.Category,
				Priority: r.PriorityScore,
				Location: r.Location,
			},
		},
	})
	return ev
}
