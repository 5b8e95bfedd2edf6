package nexus

// Status is the result of writing one field.
type Status int

const (
	StatusWritten Status = iota
	StatusSkipped
)

func (s Status) String() string {
	if s == StatusSkipped {
		return "skipped"
	}
	return "written"
}

// Outcome records what happened to one declared field. A written field may
// still carry a Reason, e.g. when its timestamps were missing.
type Outcome struct {
	Stream string
	Field  string
	Status Status
	Reason string
}

// LinkRecord is one link created in the tree, by absolute path.
type LinkRecord struct {
	Name   string
	Target string
}

// Report describes a finished conversion.
type Report struct {
	UID      string
	Streams  []string
	Outcomes []Outcome
	Links    []LinkRecord
}

// Skipped returns the outcomes of fields that were not written.
func (r *Report) Skipped() []Outcome {
	return r.filter(StatusSkipped)
}

// Written returns the outcomes of fields that were written.
func (r *Report) Written() []Outcome {
	return r.filter(StatusWritten)
}

func (r *Report) filter(s Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == s {
			out = append(out, o)
		}
	}
	return out
}
