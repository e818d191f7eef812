package servicepoint

import "time"

const (
	OrgBank       = "bank"
	OrgGovernment = "government"
	OrgHospital   = "hospital"
	OrgGeneric    = "generic"
)

type ServicePoint struct {
	ID                   int64         `json:"id"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	Location             string        `json:"location"`
	Latitude             *float64      `json:"latitude,omitempty"`
	Longitude            *float64      `json:"longitude,omitempty"`
	MapURL               *string       `json:"map_url,omitempty"`
	OrganizationType     string        `json:"organization_type"`
	IsActive             bool          `json:"is_active"`
	IsPaused             bool          `json:"is_paused"`
	MaxQueueLength       int           `json:"max_queue_length"`
	SupportsPriority     bool          `json:"supports_priority"`
	SupportsAppointments bool          `json:"supports_appointments"`
	CreatedAt            time.Time     `json:"created_at"`
	QueueLength          int           `json:"queue_length"` // derived, never stored
	ServiceTypes         []ServiceType `json:"service_types"`
}

type ServiceType struct {
	ID                int64  `json:"id"`
	ServicePointID    int64  `json:"service_point_id"`
	Name              string `json:"name"`
	Description       string `json:"description"`
	EstimatedDuration int    `json:"estimated_duration"` // minutes
	IsActive          bool   `json:"is_active"`
}

func ValidOrgType(t string) bool {
	switch t {
	case OrgBank, OrgGovernment, OrgHospital, OrgGeneric:
		return true
	}
	return false
}
