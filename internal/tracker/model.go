// File: internal/tracker/model.go
package tracker

import (
	"time"

	"github.com/AryanBhardwaj123/placement-tracker/internal/store"
)

// ApplicationStatus is the pipeline stage of a tracked application.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "Applied"
	StatusInterview ApplicationStatus = "Interview"
	StatusOffer     ApplicationStatus = "Offer"
	StatusSelected  ApplicationStatus = "Selected"
	StatusRejected  ApplicationStatus = "Rejected"
	StatusWithdrawn ApplicationStatus = "Withdrawn"
)

// Priority ranks how much the user cares about an application.
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Application is one tracked job application. CreatedAt is assigned by
// the store on creation and drives the newest-first ordering.
type Application struct {
	ID        string
	Name      string
	Role      string
	Status    ApplicationStatus
	Deadline  *time.Time
	Link      string
	Notes     string
	Industry  string
	Priority  Priority
	Dream     bool
	CreatedAt time.Time
}

// ApplicationUpdate is a partial Application mutation; nil fields are
// left untouched.
type ApplicationUpdate struct {
	Name     *string
	Role     *string
	Status   *ApplicationStatus
	Deadline *time.Time
	Link     *string
	Notes    *string
	Industry *string
	Priority *Priority
	Dream    *bool
}

// InterviewMode is how an interview round is conducted.
type InterviewMode string

const (
	ModeOnline  InterviewMode = "Online"
	ModeOffline InterviewMode = "Offline"
)

// InterviewStatus tracks whether a round has happened yet.
type InterviewStatus string

const (
	InterviewScheduled InterviewStatus = "Scheduled"
	InterviewCompleted InterviewStatus = "Completed"
)

// Interview is one scheduled interview round. Date is a calendar day in
// "2006-01-02" form so its lexicographic order matches chronological
// order; Time is a free-form clock string.
type Interview struct {
	ID        string
	Company   string
	Role      string
	Date      string
	Time      string
	Round     string
	Mode      InterviewMode
	Notes     string
	Status    InterviewStatus
	CreatedAt time.Time
}

// InterviewUpdate is a partial Interview mutation; nil fields are left
// untouched.
type InterviewUpdate struct {
	Company *string
	Role    *string
	Date    *string
	Time    *string
	Round   *string
	Mode    *InterviewMode
	Notes   *string
	Status  *InterviewStatus
}

// --- document adapters ---
// Field names match the original web client's documents.

func (a Application) createFields() store.Fields {
	f := store.Fields{
		"name":      a.Name,
		"role":      a.Role,
		"status":    string(a.Status),
		"link":      a.Link,
		"notes":     a.Notes,
		"industry":  a.Industry,
		"priority":  string(a.Priority),
		"dream":     a.Dream,
		"createdAt": store.ServerTimestamp,
	}
	if a.Deadline != nil {
		f["deadline"] = *a.Deadline
	}
	return f
}

func applicationFromDoc(doc store.Document) Application {
	a := Application{
		ID:        doc.ID,
		Name:      docString(doc.Fields, "name"),
		Role:      docString(doc.Fields, "role"),
		Status:    ApplicationStatus(docString(doc.Fields, "status")),
		Link:      docString(doc.Fields, "link"),
		Notes:     docString(doc.Fields, "notes"),
		Industry:  docString(doc.Fields, "industry"),
		Priority:  Priority(docString(doc.Fields, "priority")),
		Dream:     docBool(doc.Fields, "dream"),
		CreatedAt: docTime(doc.Fields, "createdAt"),
	}
	if d, ok := doc.Fields["deadline"].(time.Time); ok {
		a.Deadline = &d
	}
	return a
}

func (u ApplicationUpdate) fields() store.Fields {
	out := store.Fields{}
	if u.Name != nil {
		out["name"] = *u.Name
	}
	if u.Role != nil {
		out["role"] = *u.Role
	}
	if u.Status != nil {
		out["status"] = string(*u.Status)
	}
	if u.Deadline != nil {
		out["deadline"] = *u.Deadline
	}
	if u.Link != nil {
		out["link"] = *u.Link
	}
	if u.Notes != nil {
		out["notes"] = *u.Notes
	}
	if u.Industry != nil {
		out["industry"] = *u.Industry
	}
	if u.Priority != nil {
		out["priority"] = string(*u.Priority)
	}
	if u.Dream != nil {
		out["dream"] = *u.Dream
	}
	return out
}

func (i Interview) createFields() store.Fields {
	return store.Fields{
		"company":   i.Company,
		"role":      i.Role,
		"date":      i.Date,
		"time":      i.Time,
		"round":     i.Round,
		"mode":      string(i.Mode),
		"notes":     i.Notes,
		"status":    string(i.Status),
		"createdAt": store.ServerTimestamp,
	}
}

func interviewFromDoc(doc store.Document) Interview {
	return Interview{
		ID:        doc.ID,
		Company:   docString(doc.Fields, "company"),
		Role:      docString(doc.Fields, "role"),
		Date:      docString(doc.Fields, "date"),
		Time:      docString(doc.Fields, "time"),
		Round:     docString(doc.Fields, "round"),
		Mode:      InterviewMode(docString(doc.Fields, "mode")),
		Notes:     docString(doc.Fields, "notes"),
		Status:    InterviewStatus(docString(doc.Fields, "status")),
		CreatedAt: docTime(doc.Fields, "createdAt"),
	}
}

func (u InterviewUpdate) fields() store.Fields {
	out := store.Fields{}
	if u.Company != nil {
		out["company"] = *u.Company
	}
	if u.Role != nil {
		out["role"] = *u.Role
	}
	if u.Date != nil {
		out["date"] = *u.Date
	}
	if u.Time != nil {
		out["time"] = *u.Time
	}
	if u.Round != nil {
		out["round"] = *u.Round
	}
	if u.Mode != nil {
		out["mode"] = string(*u.Mode)
	}
	if u.Notes != nil {
		out["notes"] = *u.Notes
	}
	if u.Status != nil {
		out["status"] = string(*u.Status)
	}
	return out
}

func docString(f store.Fields, key string) string {
	s, _ := f[key].(string)
	return s
}

func docBool(f store.Fields, key string) bool {
	b, _ := f[key].(bool)
	return b
}

func docTime(f store.Fields, key string) time.Time {
	t, _ := f[key].(time.Time)
	return t
}
