package harness

// CallRecord is what one scripted call produced.
type CallRecord struct {
	Method string   `json:"method"`
	CallID string   `json:"call_id"`
	Seq    int64    `json:"seq"`
	States []string `json:"states"`

	// Reply is the formatted reply tuple of a completed call.
	Reply string `json:"reply,omitempty"`

	// Trap is set for a trapped call.
	Trap *TrapRecord `json:"trap,omitempty"`

	DroppedJobs int `json:"dropped_jobs,omitempty"`
}

// TrapRecord is the classification and host message of a trap.
type TrapRecord struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation and assertion held.
	Pass bool `json:"pass"`

	// Calls holds one record per call step, in order.
	Calls []CallRecord `json:"calls"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Calls:  []CallRecord{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
