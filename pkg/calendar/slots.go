package calendar

import (
	"fmt"
	"regexp"
	"strconv"
)

const (
	Slot8To12  = "8-12"
	Slot12To4  = "12-4"
	Slot4To8   = "4-8"
	Slot20To00 = "20-00"

	MinutesPerDay = 24 * 60
)

var clockRegex = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// Window is a half-open range of minutes since midnight.
type Window struct {
	Start int
	End   int
}

func (w Window) Overlaps(other Window) bool {
	return Overlaps(w.Start, w.End, other.Start, other.End)
}

func (w Window) Covers(other Window) bool {
	return w.Start <= other.Start && other.End <= w.End
}

func (w Window) String() string {
	return FormatClock(w.Start) + "-" + FormatClock(w.End)
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
// Ranges that only touch at a boundary do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && bStart < aEnd
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(value string) (int, error) {
	m := clockRegex.FindStringSubmatch(value)
	if m == nil {
		return 0, fmt.Errorf("invalid clock time %q, expected HH:MM", value)
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])
	return hours*60 + minutes, nil
}

// ParseEndClock is ParseClock that also accepts "24:00" as the end of day.
func ParseEndClock(value string) (int, error) {
	if value == "24:00" {
		return MinutesPerDay, nil
	}
	return ParseClock(value)
}

func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseRange parses a start/end clock pair and requires start < end.
func ParseRange(start, end string) (Window, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Window{}, err
	}
	e, err := ParseEndClock(end)
	if err != nil {
		return Window{}, err
	}
	if s >= e {
		return Window{}, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	return Window{Start: s, End: e}, nil
}

// SlotCatalog maps the coarse booking labels to clock windows.
type SlotCatalog struct {
	order   []string
	windows map[string]Window
}

type SlotDefinition struct {
	Label string
	Start string
	End   string
}

func NewSlotCatalog(defs []SlotDefinition) (*SlotCatalog, error) {
	c := &SlotCatalog{windows: make(map[string]Window, len(defs))}
	for _, d := range defs {
		if d.Label == "" {
			return nil, fmt.Errorf("slot label cannot be empty")
		}
		if _, dup := c.windows[d.Label]; dup {
			return nil, fmt.Errorf("duplicate slot label %q", d.Label)
		}
		w, err := ParseRange(d.Start, d.End)
		if err != nil {
			return nil, fmt.Errorf("slot %q: %w", d.Label, err)
		}
		c.windows[d.Label] = w
		c.order = append(c.order, d.Label)
	}
	return c, nil
}

func DefaultSlotDefinitions() []SlotDefinition {
	return []SlotDefinition{
		{Label: Slot8To12, Start: "08:00", End: "12:00"},
		{Label: Slot12To4, Start: "12:00", End: "16:00"},
		{Label: Slot4To8, Start: "16:00", End: "20:00"},
		{Label: Slot20To00, Start: "20:00", End: "24:00"},
	}
}

func DefaultSlotCatalog() *SlotCatalog {
	c, err := NewSlotCatalog(DefaultSlotDefinitions())
	if err != nil {
		panic(err)
	}
	return c
}

func (c *SlotCatalog) Window(label string) (Window, bool) {
	w, ok := c.windows[label]
	return w, ok
}

func (c *SlotCatalog) Has(label string) bool {
	_, ok := c.windows[label]
	return ok
}

func (c *SlotCatalog) Labels() []string {
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}
