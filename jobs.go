package visualping

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// DefaultPageSize is used when JobListOptions.PageSize is unset.
const DefaultPageSize = 100

func (c *Client) jobsURL(id int64) string {
	if id == 0 {
		return c.jobsBaseURL + "/v2/jobs"
	}
	return c.jobsBaseURL + "/v2/jobs/" + strconv.FormatInt(id, 10)
}

func workspaceQuery(workspaceID int64) url.Values {
	values := url.Values{}
	if workspaceID > 0 {
		values.Set("workspaceId", strconv.FormatInt(workspaceID, 10))
	}
	return values
}

func (o JobListOptions) values() url.Values {
	values := workspaceQuery(o.WorkspaceID)
	pageSize := o.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	values.Set("pageIndex", strconv.Itoa(o.PageIndex))
	values.Set("pageSize", strconv.Itoa(pageSize))
	if search := strings.TrimSpace(o.Search); search != "" {
		values.Set("search", search)
	}
	if o.Active != nil {
		values.Set("active", strconv.FormatBool(*o.Active))
	}
	return values
}

// ListJobs fetches one page of jobs.
func (c *Client) ListJobs(ctx context.Context, opts JobListOptions) (*JobPage, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	var page JobPage
	req := RequestOptions{Method: http.MethodGet, Query: opts.values()}
	if err := c.AuthenticatedRequest(ctx, c.jobsURL(0), req, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// ListAllJobs walks pages starting at opts.PageIndex until the reported
// total is collected or an empty page is returned.
func (c *Client) ListAllJobs(ctx context.Context, opts JobListOptions) ([]Job, error) {
	var jobs []Job
	for {
		page, err := c.ListJobs(ctx, opts)
		if err != nil {
			return nil, fmt.Errorf("list jobs page %d: %w", opts.PageIndex, err)
		}
		jobs = append(jobs, page.Jobs...)
		if len(page.Jobs) == 0 || len(jobs) >= page.Total {
			return jobs, nil
		}
		opts.PageIndex++
	}
}

// GetJob fetches a single job.
func (c *Client) GetJob(ctx context.Context, id, workspaceID int64) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return nil, fmt.Errorf("job id must be positive, got %d", id)
	}
	var job Job
	req := RequestOptions{Method: http.MethodGet, Query: workspaceQuery(workspaceID)}
	if err := c.AuthenticatedRequest(ctx, c.jobsURL(id), req, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob creates a job and returns it as stored by the server.
func (c *Client) CreateJob(ctx context.Context, input JobInput) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if strings.TrimSpace(input.URL) == "" {
		return nil, fmt.Errorf("job url is required")
	}
	var job Job
	if err := c.AuthenticatedRequest(ctx, c.jobsURL(0), RequestOptions{Method: http.MethodPost, Body: input}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// UpdateJob replaces the writable fields of a job.
func (c *Client) UpdateJob(ctx context.Context, id int64, input JobInput) (*Job, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return nil, fmt.Errorf("job id must be positive, got %d", id)
	}
	var job Job
	if err := c.AuthenticatedRequest(ctx, c.jobsURL(id), RequestOptions{Method: http.MethodPut, Body: input}, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// DeleteJob deletes a job.
func (c *Client) DeleteJob(ctx context.Context, id, workspaceID int64) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	if id <= 0 {
		return fmt.Errorf("job id must be positive, got %d", id)
	}
	req := RequestOptions{Method: http.MethodDelete, Query: workspaceQuery(workspaceID)}
	return c.AuthenticatedRequest(ctx, c.jobsURL(id), req, nil)
}
