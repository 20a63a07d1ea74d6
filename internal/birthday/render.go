package birthday

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ent0n29/birthdaybot/internal/store"
)

const (
	listHeader = "Your list of birthdays:\n"
	// EmptyListMessage is sent when the owner tracks no birthdays yet.
	EmptyListMessage = "Your list is empty for now\nAdd some birthdays to your list with /add_birthday command"
)

var listBorder = strings.Repeat("=", 30)

// RenderList formats an owner's birthday list. Records must already be
// ordered by (month, day). A synthetic "today" marker is inserted at the
// current date's chronological slot; a birthday falling on today replaces
// its normal line with a highlighted block.
func RenderList(records []store.Record, today time.Time) string {
	if len(records) == 0 {
		return EmptyListMessage
	}

	todayCivil := civil(today.Year(), int(today.Month()), today.Day(), today.Location())
	var b strings.Builder
	b.WriteString(listHeader)
	todayAdded := false

	for _, r := range records {
		occurrence := civil(today.Year(), r.Month, r.Day, today.Location())
		monthName := time.Month(r.Month).String()

		if occurrence.Equal(todayCivil) {
			fmt.Fprintf(&b, "%s\n%d %s --- today is %s's birthday!\n%s\n", listBorder, r.Day, monthName, r.Name, listBorder)
			todayAdded = true
			continue
		}
		if occurrence.After(todayCivil) && !todayAdded {
			b.WriteString(todayMarker(today))
			todayAdded = true
		}

		fmt.Fprintf(&b, "%d %s", r.Day, monthName)
		if r.Year != 0 {
			fmt.Fprintf(&b, ", %d", r.Year)
		}
		fmt.Fprintf(&b, "  %s  %s", namePadding(r.Name), r.Name)
		if r.Note != "" {
			fmt.Fprintf(&b, " (%s)", r.Note)
		}
		b.WriteString("\n")
	}

	if !todayAdded {
		b.WriteString(todayMarker(today))
	}
	return b.String()
}

func todayMarker(today time.Time) string {
	return fmt.Sprintf("%s\n%d %s --- today\n%s\n", listBorder, today.Day(), today.Month(), listBorder)
}

// namePadding right-aligns short names with a run of dashes.
func namePadding(name string) string {
	if n := utf8.RuneCountInString(name); n < 9 {
		return strings.Repeat("-", 10-n)
	}
	return "-"
}
