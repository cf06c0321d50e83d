// Package responses shapes raw Overseerr payloads into the tagged results
// returned to voice assistants, LLM tools and dashboards. Every result carries
// an "action" discriminator and a human-readable "message".
package responses

import "reflect"

// UserContext identifies the front-end user a result was produced for.
type UserContext struct {
	UserID   string `json:"user_id,omitempty"`
	Username string `json:"username"`
	IsAdmin  bool   `json:"is_admin"`
}

// Envelope is embedded in every result; its fields are flattened into the
// result's JSON object.
type Envelope struct {
	Action      string       `json:"action"`
	Message     string       `json:"message"`
	UserContext *UserContext `json:"user_context,omitempty"`
}

func (e *Envelope) envelope() *Envelope { return e }

// Response is implemented only by the result types of this package.
type Response interface {
	envelope() *Envelope
}

// ActionOf returns the discriminator of r, or "" for nil.
func ActionOf(r Response) string {
	if r == nil {
		return ""
	}
	return r.envelope().Action
}

// MessageOf returns the message of r, or "" for nil.
func MessageOf(r Response) string {
	if r == nil {
		return ""
	}
	return r.envelope().Message
}

// WithUser attaches uc to r and returns r.
func WithUser(r Response, uc UserContext) Response {
	r.envelope().UserContext = &uc
	return r
}

// Copy returns a shallow copy of r so its envelope can be changed without
// touching the original.
func Copy(r Response) Response {
	v := reflect.ValueOf(r)
	if r == nil || v.Kind() != reflect.Ptr || v.IsNil() {
		return r
	}
	cp := reflect.New(v.Elem().Type())
	cp.Elem().Set(v.Elem())
	return cp.Interface().(Response)
}

// UserOf returns the user context attached to r, if any.
func UserOf(r Response) *UserContext {
	if r == nil {
		return nil
	}
	return r.envelope().UserContext
}

func env(action, message string) Envelope {
	return Envelope{Action: action, Message: message}
}

// NextSteps is the follow-up hint attached to many results.
type NextSteps struct {
	Suggestion        string   `json:"suggestion"`
	Note              string   `json:"note,omitempty"`
	ActionPrompt      string   `json:"action_prompt,omitempty"`
	TypicalWorkflow   []string `json:"typical_workflow,omitempty"`
	AdminInstructions []string `json:"admin_instructions,omitempty"`
}

// Error is the generic fallback result for an unexpected failure.
type Error struct {
	Envelope
}

// NewError builds an "error" result.
func NewError(message string) *Error {
	return &Error{Envelope: env("error", message)}
}

// MissingInput is returned when a required argument is empty.
type MissingInput struct {
	Envelope
	Error string `json:"error"`
}

// ConnectionError is returned when Overseerr could not be reached or answered
// with an error.
type ConnectionError struct {
	Envelope
	Error           string     `json:"error,omitempty"`
	ErrorDetails    string     `json:"error_details"`
	SearchedTitle   string     `json:"searched_title,omitempty"`
	SearchedQuery   string     `json:"searched_query,omitempty"`
	MediaID         int64      `json:"media_id,omitempty"`
	JobID           string     `json:"job_id,omitempty"`
	Troubleshooting []string   `json:"troubleshooting"`
	NextSteps       *NextSteps `json:"next_steps,omitempty"`
}

var serverTroubleshooting = []string{
	"Verify Overseerr server is running",
	"Check URL and API key configuration",
	"Confirm network connectivity",
	"Check Hassarr logs for details",
}

var serviceTroubleshooting = []string{
	"Check Overseerr server connectivity",
	"Verify API key and URL configuration",
	"Ensure Overseerr service is running",
}

func serverConnectionError(details string) *ConnectionError {
	return &ConnectionError{
		Envelope:        env("connection_error", "Connection error - check Overseerr configuration and server status"),
		Error:           "Failed to connect to Overseerr server",
		ErrorDetails:    details,
		Troubleshooting: serverTroubleshooting,
	}
}

// NotFound is returned when a search produced no usable match.
type NotFound struct {
	Envelope
	SearchedTitle string `json:"searched_title"`
}

// UserNotMapped is returned when the caller has no Overseerr account mapping.
type UserNotMapped struct {
	Envelope
	Error           string    `json:"error"`
	ErrorDetails    string    `json:"error_details"`
	SearchedTitle   string    `json:"searched_title,omitempty"`
	JobID           string    `json:"job_id,omitempty"`
	Explanation     string    `json:"explanation"`
	NextSteps       NextSteps `json:"next_steps"`
	LLMInstructions string    `json:"llm_instructions"`
}

var adminInstructions = []string{
	"Open the Hassarr settings page",
	"Go to the user mapping section",
	"Add your Home Assistant user to the user mapping list",
	"Map your account to the appropriate Overseerr user",
}

// userNotMapped builds the shared refusal. what completes "not registered
// to ...", goal completes "mapped ... to ...".
func userNotMapped(what, purpose, goal, details string) *UserNotMapped {
	return &UserNotMapped{
		Envelope:     env("user_not_mapped", "Sorry, you're not registered to "+what+" through this system."),
		Error:        "User not registered for " + purpose,
		ErrorDetails: details,
		Explanation:  "Your Home Assistant user account needs to be mapped to an Overseerr user account to " + goal + ".",
		NextSteps: NextSteps{
			Suggestion:        "Contact your system administrator to add your account to the media request system",
			AdminInstructions: adminInstructions,
		},
		LLMInstructions: "Be polite but firm. Explain they need admin help to get access. Don't offer to help them bypass this restriction.",
	}
}
