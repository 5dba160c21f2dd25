package harness

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/roach88/travelog/internal/entry"
)

// AssertionError is returned when an assertion fails.
// It carries the trace so the failure can be read in context.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Trace    []TraceEvent
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	fmt.Fprintf(&buf, "\nFull trace:\n")
	for _, event := range e.Trace {
		fmt.Fprintf(&buf, "  [%d] %s %s -> %s\n", event.Seq, event.Op, event.ID, event.Outcome)
	}

	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var failures []string
	for _, a := range assertions {
		if err := evaluate(result, a); err != nil {
			failures = append(failures, err.Error())
		}
	}
	return failures
}

func evaluate(result *Result, a Assertion) error {
	switch a.Type {
	case AssertFinalCount:
		return assertFinalCount(result, a)
	case AssertFinalOrder:
		return assertFinalOrder(result, a)
	case AssertEntry:
		return assertEntry(result, a)
	case AssertTraceCount:
		return assertTraceCount(result.Trace, a)
	case AssertTraceOrder:
		return assertTraceOrder(result.Trace, a)
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
}

func assertFinalCount(result *Result, a Assertion) error {
	if len(result.Final) == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalCount,
		Expected: fmt.Sprintf("%d entries", a.Count),
		Actual:   fmt.Sprintf("%d entries", len(result.Final)),
		Trace:    result.Trace,
	}
}

func assertFinalOrder(result *Result, a Assertion) error {
	got := make([]string, len(result.Final))
	for i, e := range result.Final {
		got[i] = e.ID
	}
	if slices.Equal(got, a.IDs) {
		return nil
	}
	return &AssertionError{
		Type:     AssertFinalOrder,
		Expected: fmt.Sprintf("%v", a.IDs),
		Actual:   fmt.Sprintf("%v", got),
		Trace:    result.Trace,
	}
}

// assertEntry compares the named wire fields of one entry. A field
// expected as null must be absent.
func assertEntry(result *Result, a Assertion) error {
	var found *entry.Entry
	for i := range result.Final {
		if result.Final[i].ID == a.ID {
			found = &result.Final[i]
			break
		}
	}
	if found == nil {
		return &AssertionError{
			Type:     AssertEntry,
			Expected: fmt.Sprintf("entry %s", a.ID),
			Actual:   "not in final collection",
			Trace:    result.Trace,
		}
	}

	fields, err := wireFields(*found)
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(a.Expect))
	for k := range a.Expect {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		want, err := json.Marshal(a.Expect[k])
		if err != nil {
			return fmt.Errorf("entry %s: expect.%s: %w", a.ID, k, err)
		}
		got, ok := fields[k]
		if !ok {
			got = json.RawMessage("null")
		}
		if !bytes.Equal(want, got) {
			return &AssertionError{
				Type:     AssertEntry,
				Expected: fmt.Sprintf("%s.%s = %s", a.ID, k, want),
				Actual:   fmt.Sprintf("%s.%s = %s", a.ID, k, got),
				Trace:    result.Trace,
			}
		}
	}
	return nil
}

// wireFields returns the entry's serialized fields by name.
func wireFields(e entry.Entry) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func assertTraceCount(trace []TraceEvent, a Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Op == a.Op {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertTraceCount,
		Expected: fmt.Sprintf("%s %d time(s)", a.Op, a.Count),
		Actual:   fmt.Sprintf("%s %d time(s)", a.Op, count),
		Trace:    trace,
	}
}

// assertTraceOrder checks ops first appear in the given order. Other steps
// may run in between.
func assertTraceOrder(trace []TraceEvent, a Assertion) error {
	positions := make(map[string]int)
	for _, event := range trace {
		if _, seen := positions[event.Op]; !seen {
			positions[event.Op] = event.Seq
		}
	}

	for _, op := range a.Ops {
		if _, ok := positions[op]; !ok {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all ops present: %v", a.Ops),
				Actual:   fmt.Sprintf("missing op: %s", op),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(a.Ops); i++ {
		prev, curr := a.Ops[i-1], a.Ops[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("ops in order: %v", a.Ops),
				Actual: fmt.Sprintf("%s (step %d) should be before %s (step %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}
