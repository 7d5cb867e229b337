package apierr

// Envelope is the JSON body of every relay response.
type Envelope struct {
	Data   any     `json:"data"`
	Errors []Entry `json:"errors,omitempty"`
}

// Data wraps a successful payload.
func Data(data any) Envelope {
	return Envelope{Data: data}
}

// Errors wraps a request-level failure. Data is an empty object so callers
// can always index into it.
func Errors(entries ...Entry) Envelope {
	return Envelope{Data: map[string]any{}, Errors: entries}
}
