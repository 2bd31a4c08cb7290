package runner

import "encoding/json"

// Outcome is the terminal record for one target: either a response (any HTTP
// status counts as success) or the last transport error once retries are
// exhausted.
type Outcome struct {
	Name      string
	Status    int
	ElapsedMs float64
	Headers   map[string]string
	Err       string

	// Body is carried for the sink's save-body handling and never serialized.
	Body []byte
}

// Failed reports whether the target exhausted its retries without a response.
func (o Outcome) Failed() bool {
	return o.Err != ""
}

type successRecord struct {
	Name      string            `json:"name"`
	Status    int               `json:"status"`
	ElapsedMs float64           `json:"elapsed_ms"`
	Headers   map[string]string `json:"response_headers"`
}

type failureRecord struct {
	Name  string `json:"name"`
	Error string `json:"error"`
}

// MarshalJSON emits exactly one of the two wire shapes:
// {"name","status","elapsed_ms","response_headers"} or {"name","error"}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Failed() {
		return json.Marshal(failureRecord{Name: o.Name, Error: o.Err})
	}
	headers := o.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return json.Marshal(successRecord{
		Name:      o.Name,
		Status:    o.Status,
		ElapsedMs: o.ElapsedMs,
		Headers:   headers,
	})
}

// UnmarshalJSON accepts either wire shape.
func (o *Outcome) UnmarshalJSON(data []byte) error {
	var failure failureRecord
	if err := json.Unmarshal(data, &failure); err != nil {
		return err
	}
	if failure.Error != "" {
		*o = Outcome{Name: failure.Name, Err: failure.Error}
		return nil
	}
	var success successRecord
	if err := json.Unmarshal(data, &success); err != nil {
		return err
	}
	*o = Outcome{
		Name:      success.Name,
		Status:    success.Status,
		ElapsedMs: success.ElapsedMs,
		Headers:   success.Headers,
	}
	return nil
}
