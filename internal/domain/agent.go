// Package domain holds the records exchanged with the agents REST API.
// They are owned by the platform; the dashboard never mutates or persists them.
package domain

import (
	"errors"
	"fmt"
)

// ErrMissingField is matched by every MissingFieldError.
var ErrMissingField = errors.New("missing field")

// MissingFieldError reports a required field absent from a platform record.
type MissingFieldError struct {
	Field string // dotted path, e.g. "profile.display_name"
	Agent string // fully qualified agent name, if known
}

func (e *MissingFieldError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("missing field %s", e.Field)
	}
	return fmt.Sprintf("agent %s: missing field %s", e.Agent, e.Field)
}

// Is lets errors.Is(err, ErrMissingField) match.
func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

// Profile is the display sub-object of an agent record.
type Profile struct {
	DisplayName string `json:"display_name,omitempty"`
}

// Agent is one entry of the agents listing.
type Agent struct {
	Name         string   `json:"name"`
	Profile      *Profile `json:"profile,omitempty"`
	Comment      string   `json:"comment,omitempty"`
	DatabaseName string   `json:"database_name,omitempty"`
	SchemaName   string   `json:"schema_name,omitempty"`
	Owner        string   `json:"owner,omitempty"`
	CreatedOn    string   `json:"created_on,omitempty"`
}

// DisplayName returns profile.display_name, or a MissingFieldError when the
// profile or the name is absent.
func (a Agent) DisplayName() (string, error) {
	if a.Profile == nil || a.Profile.DisplayName == "" {
		return "", &MissingFieldError{Field: "profile.display_name", Agent: a.Name}
	}
	return a.Profile.DisplayName, nil
}

// QualifiedName returns DATABASE.SCHEMA.NAME when the namespace is known.
func (a Agent) QualifiedName() string {
	if a.DatabaseName == "" || a.SchemaName == "" {
		return a.Name
	}
	return a.DatabaseName + "." + a.SchemaName + "." + a.Name
}
