package visualping

import (
	"encoding/json"
	"time"
)

// User is the account described by /describe-user.
type User struct {
	ID           string      `json:"id"`
	EmailAddress string      `json:"emailAddress"`
	FirstName    string      `json:"firstName,omitempty"`
	LastName     string      `json:"lastName,omitempty"`
	Timezone     string      `json:"timezone,omitempty"`
	Workspaces   []Workspace `json:"workspaces,omitempty"`
	CreatedAt    *time.Time  `json:"createdAt,omitempty"`
}

// Workspace is a team or personal workspace the user belongs to.
type Workspace struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role,omitempty"`
	Personal bool   `json:"personal,omitempty"`
}

// DefaultWorkspaceID returns the user's personal workspace, falling back to
// the first one listed. It returns 0 when the user has none.
func (u *User) DefaultWorkspaceID() int64 {
	if u == nil || len(u.Workspaces) == 0 {
		return 0
	}
	for _, ws := range u.Workspaces {
		if ws.Personal {
			return ws.ID
		}
	}
	return u.Workspaces[0].ID
}

// Job is a monitoring job.
type Job struct {
	ID           int64           `json:"id"`
	WorkspaceID  int64           `json:"workspaceId,omitempty"`
	URL          string          `json:"url"`
	Description  string          `json:"description,omitempty"`
	Mode         string          `json:"mode,omitempty"`
	Interval     string          `json:"interval,omitempty"`
	Active       bool            `json:"active"`
	Trigger      string          `json:"trigger,omitempty"`
	Notification json.RawMessage `json:"notification,omitempty"`
	LastRun      *time.Time      `json:"lastRun,omitempty"`
	CreatedAt    *time.Time      `json:"created,omitempty"`
}

// JobInput is the writable part of a Job, used to create and update jobs.
type JobInput struct {
	WorkspaceID  int64           `json:"workspaceId"`
	URL          string          `json:"url,omitempty"`
	Description  string          `json:"description,omitempty"`
	Mode         string          `json:"mode,omitempty"`
	Interval     string          `json:"interval,omitempty"`
	Active       *bool           `json:"active,omitempty"`
	Trigger      string          `json:"trigger,omitempty"`
	Notification json.RawMessage `json:"notification,omitempty"`
}

// JobPage is one page of a job listing.
type JobPage struct {
	Jobs      []Job `json:"jobs"`
	Total     int   `json:"total"`
	PageIndex int   `json:"pageIndex"`
	PageSize  int   `json:"pageSize"`
}

// JobListOptions configures job listing requests.
type JobListOptions struct {
	WorkspaceID int64
	PageIndex   int
	// PageSize defaults to DefaultPageSize.
	PageSize int
	Search   string
	// Active filters on the job's active flag when non-nil.
	Active *bool
}
