package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/ambiyansyah-risyal/visualping"
)

func newJobsCmd(a *app) *cobra.Command {
	var workspaceID int64

	jobs := &cobra.Command{
		Use:   "jobs",
		Short: "List, inspect and delete monitoring jobs",
	}
	jobs.PersistentFlags().Int64Var(&workspaceID, "workspace", 0, "workspace id (default: the account's personal workspace)")

	resolveWorkspace := func(cmd *cobra.Command) (int64, error) {
		if workspaceID > 0 {
			return workspaceID, nil
		}
		user, err := a.client.DescribeUser(cmd.Context())
		if err != nil {
			return 0, err
		}
		return user.DefaultWorkspaceID(), nil
	}

	jobs.AddCommand(newJobsListCmd(a, resolveWorkspace), newJobsGetCmd(a, resolveWorkspace), newJobsDeleteCmd(a, resolveWorkspace))
	return jobs
}

type workspaceResolver func(cmd *cobra.Command) (int64, error)

func newJobsListCmd(a *app, workspace workspaceResolver) *cobra.Command {
	var (
		all      bool
		page     int
		pageSize int
		search   string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs in a workspace",
		Args:  cobra.NoArgs,
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			wsID, err := workspace(cmd)
			if err != nil {
				return err
			}
			opts := visualping.JobListOptions{
				WorkspaceID: wsID,
				PageIndex:   page,
				PageSize:    pageSize,
				Search:      search,
			}
			if all {
				jobs, err := a.client.ListAllJobs(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return a.printJSON(jobs)
			}
			result, err := a.client.ListJobs(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.printJSON(result)
		}),
	}
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&page, "page", 0, "page index")
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "page size (default 100)")
	cmd.Flags().StringVar(&search, "search", "", "filter by url or description")
	return cmd
}

func newJobsGetCmd(a *app, workspace workspaceResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			wsID, err := workspace(cmd)
			if err != nil {
				return err
			}
			job, err := a.client.GetJob(cmd.Context(), id, wsID)
			if err != nil {
				return err
			}
			return a.printJSON(job)
		}),
	}
}

func newJobsDeleteCmd(a *app, workspace workspaceResolver) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete one job",
		Args:  cobra.ExactArgs(1),
		RunE: a.withClient(func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			wsID, err := workspace(cmd)
			if err != nil {
				return err
			}
			if err := a.client.DeleteJob(cmd.Context(), id, wsID); err != nil {
				return err
			}
			return a.printJSON(map[string]any{"deleted": id})
		}),
	}
}

func parseJobID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", arg)
	}
	return id, nil
}
