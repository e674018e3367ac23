package appointments

import (
	"fmt"
	"time"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusArrived     Status = "arrived"
	StatusInProgress  Status = "in_progress"
	StatusCompleted   Status = "completed"
	StatusCancelled   Status = "cancelled"
	StatusNoShow      Status = "no_show"
)

// transitions is the intended forward workflow. cancelled and no_show are
// reachable from any non-terminal state.
var transitions = map[Status]map[Status]bool{
	StatusUnconfirmed: {StatusConfirmed: true, StatusCancelled: true, StatusNoShow: true},
	StatusConfirmed:   {StatusArrived: true, StatusCancelled: true, StatusNoShow: true},
	StatusArrived:     {StatusInProgress: true, StatusCancelled: true, StatusNoShow: true},
	StatusInProgress:  {StatusCompleted: true, StatusCancelled: true},
	StatusCompleted:   {},
	StatusCancelled:   {},
	StatusNoShow:      {},
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether the forward workflow allows from -> to.
func CanTransition(from, to Status) bool {
	next, ok := transitions[from]
	if !ok {
		return false
	}
	return next[to]
}

// Active reports whether the status occupies its calendar slot. Only
// cancelled and no_show release a slot.
func Active(s Status) bool {
	return s != StatusCancelled && s != StatusNoShow
}

// Appointment is a booked entry on a doctor's calendar. Date and ClockTime
// are kept as the wire-format strings ("2025-09-10", "10:00") since the slot
// key is their exact pairing, not a timezone-resolved instant.
type Appointment struct {
	ID        string    `json:"id" dynamodbav:"id"`
	PatientID string    `json:"patient_id" dynamodbav:"patient_id"`
	DoctorID  string    `json:"doctor_id" dynamodbav:"doctor_id"`
	Date      string    `json:"appointment_date" dynamodbav:"appointment_date"`
	ClockTime string    `json:"appointment_time" dynamodbav:"appointment_time"`
	Status    Status    `json:"status" dynamodbav:"status"`
	Notes     string    `json:"notes,omitempty" dynamodbav:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Active reports whether the appointment occupies its slot.
func (a *Appointment) Active() bool {
	return Active(a.Status)
}

// SlotKey identifies one doctor calendar slot.
func SlotKey(doctorID, date, clockTime string) string {
	return fmt.Sprintf("%s#%s#%s", doctorID, date, clockTime)
}
