package models

import "time"

// Project is the root of ownership; every other entity transitively belongs
// to one Project.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Application scopes TestCases and Environments and drives environment
// binding (§4.11).
type Application struct {
	ID        string     `json:"id"`
	ProjectID string     `json:"project_id"`
	Code      string     `json:"code"`
	Platform  *string    `json:"platform,omitempty"`
	TestTypes []TestType `json:"test_types"`
	CreatedAt time.Time  `json:"created_at"`
}

// HasTestType reports whether the application is scoped to the given test type.
func (a *Application) HasTestType(t TestType) bool {
	for _, tt := range a.TestTypes {
		if tt == t {
			return true
		}
	}
	return false
}
