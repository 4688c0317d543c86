// Package filter derives the displayed subsets of synchronized collections.
// Every function is pure: input order is preserved and nothing is mutated.
package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rakhazzan/SINTESIS/internal/domain/entities"
	apperrors "github.com/Rakhazzan/SINTESIS/pkg/errors"
)

// Mode selects the appointment time window
type Mode string

const (
	ModeAll       Mode = "all"
	ModeToday     Mode = "today"
	ModeTomorrow  Mode = "tomorrow"
	ModeThisWeek  Mode = "this_week"
	ModeMorning   Mode = "morning"
	ModeAfternoon Mode = "afternoon"
	ModeEvening   Mode = "evening"
)

// Modes lists the appointment filters in display order
var Modes = []Mode{ModeAll, ModeToday, ModeTomorrow, ModeThisWeek, ModeMorning, ModeAfternoon, ModeEvening}

// ParseMode parses a filter name. The empty string means ModeAll.
func ParseMode(s string) (Mode, error) {
	if s == "" {
		return ModeAll, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown appointment filter %q", s))
}

// Appointments returns the appointments matching both mode and search.
// Calendar comparisons use now's location.
func Appointments(items []*entities.AppointmentView, mode Mode, search string, now time.Time) []*entities.AppointmentView {
	today := entities.DateOf(now)
	term := normalize(search)

	out := make([]*entities.AppointmentView, 0, len(items))
	for _, a := range items {
		if matchesMode(&a.Appointment, mode, today) && matchesAppointmentSearch(a, term) {
			out = append(out, a)
		}
	}
	return out
}

func matchesMode(a *entities.Appointment, mode Mode, today entities.Date) bool {
	switch mode {
	case ModeToday:
		return a.Date == today
	case ModeTomorrow:
		return a.Date == today.AddDays(1)
	case ModeThisWeek:
		// Sunday-start weeks: Sunday is day 0, so the window ends next Sunday.
		end := today.AddDays(7 - int(today.Weekday()))
		return !a.Date.Before(today) && !a.Date.After(end)
	case ModeMorning:
		h, ok := a.Hour()
		return ok && h >= 6 && h < 12
	case ModeAfternoon:
		h, ok := a.Hour()
		return ok && h >= 12 && h < 18
	case ModeEvening:
		h, ok := a.Hour()
		return ok && (h >= 18 || h < 6)
	default:
		return true
	}
}

func matchesAppointmentSearch(a *entities.AppointmentView, term string) bool {
	if term == "" {
		return true
	}
	var name, phone string
	if a.Patient != nil {
		name, phone = a.Patient.Name, a.Patient.Phone
	}
	return contains(a.Title, term) ||
		contains(a.Description, term) ||
		contains(name, term) ||
		contains(phone, term)
}

// Patients returns the patients whose name or phone contains search
func Patients(items []*entities.Patient, search string) []*entities.Patient {
	term := normalize(search)
	if term == "" {
		return items
	}
	out := make([]*entities.Patient, 0, len(items))
	for _, p := range items {
		if contains(p.Name, term) || contains(p.Phone, term) {
			out = append(out, p)
		}
	}
	return out
}

// Unread returns the messages addressed to self that are still unread
func Unread(msgs []*entities.Message, self string) []*entities.Message {
	unread, _ := PartitionByRead(msgs, self)
	return unread
}

// PartitionByRead splits msgs into the unread messages addressed to self and
// everything else, keeping order within both
func PartitionByRead(msgs []*entities.Message, self string) (unread, rest []*entities.Message) {
	for _, m := range msgs {
		if m.ReceiverID == self && !m.IsRead {
			unread = append(unread, m)
		} else {
			rest = append(rest, m)
		}
	}
	return unread, rest
}

func normalize(s string) string {
	return strings.ToLower(s)
}

func contains(field, term string) bool {
	return strings.Contains(strings.ToLower(field), term)
}
