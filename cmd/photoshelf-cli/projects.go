package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/photoshelf"
	"github.com/sagarc03/photoshelf/client"
)

var (
	listLimit   int
	listOffset  int
	listAll     bool
	projectDesc string
	projectName string
	projectYes  bool
)

var projectsCmd = &cobra.Command{
	Use:     "projects",
	Aliases: []string{"project"},
	Short:   "Manage projects",
}

var projectsListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List your projects, newest first",
	Args:    cobra.NoArgs,
	RunE:    runProjectsList,
}

var projectsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a project",
	Long: `Create a project. Prints the new project; with --quiet only its id.

Examples:
  photoshelf-cli projects create "Wedding 2025" --description "June, Lisbon"
  PROJECT=$(photoshelf-cli projects create Holiday -q)`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectsCreate,
}

var projectsShowCmd = &cobra.Command{
	Use:   "show <project-id>",
	Short: "Show a project",
	Args:  cobra.ExactArgs(1),
	RunE:  runProjectsShow,
}

var projectsUpdateCmd = &cobra.Command{
	Use:   "update <project-id>",
	Short: "Rename a project or change its description",
	Long: `Update a project. Only the flags you pass are changed.

Examples:
  photoshelf-cli projects update 3f0c... --name "Wedding (final)"
  photoshelf-cli projects update 3f0c... --description ""`,
	Args: cobra.ExactArgs(1),
	RunE: runProjectsUpdate,
}

var projectsDeleteCmd = &cobra.Command{
	Use:     "delete <project-id>",
	Aliases: []string{"rm"},
	Short:   "Delete a project and all of its photos",
	Args:    cobra.ExactArgs(1),
	RunE:    runProjectsDelete,
}

func init() {
	addListFlags(projectsListCmd)

	projectsCreateCmd.Flags().StringVarP(&projectDesc, "description", "d", "", "project description")

	projectsUpdateCmd.Flags().StringVarP(&projectName, "name", "n", "", "new name")
	projectsUpdateCmd.Flags().StringVarP(&projectDesc, "description", "d", "", "new description")

	projectsDeleteCmd.Flags().BoolVarP(&projectYes, "yes", "y", false, "skip the confirmation prompt")

	projectsCmd.AddCommand(projectsListCmd, projectsCreateCmd, projectsShowCmd, projectsUpdateCmd, projectsDeleteCmd)
}

func addListFlags(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&listLimit, "limit", "l", 0, "page size (server default if 0)")
	cmd.Flags().IntVar(&listOffset, "offset", 0, "number of items to skip")
	cmd.Flags().BoolVarP(&listAll, "all", "A", false, "fetch every page")
}

func listOptions() client.ListOptions {
	return client.ListOptions{Limit: listLimit, Offset: listOffset, All: listAll}
}

func runProjectsList(cmd *cobra.Command, _ []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	projects, err := c.ListProjects(cmd.Context(), listOptions())
	if err != nil {
		return err
	}

	return getFormatter().FormatProjects(os.Stdout, projects)
}

func runProjectsCreate(cmd *cobra.Command, args []string) error {
	c, err := getClient()
	if err != nil {
		return err
	}

	var description *string
	if cmd.Flags().Changed("description") {
		description = &projectDesc
	}

	project, err := c.CreateProject(cmd.Context(), args[0], description)
	if err != nil {
		return err
	}

	return getFormatter().FormatProject(os.Stdout, project)
}

func runProjectsShow(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	project, err := c.GetProject(cmd.Context(), projectID)
	if err != nil {
		return err
	}

	return getFormatter().FormatProject(os.Stdout, project)
}

func runProjectsUpdate(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	var update photoshelf.ProjectUpdate
	if cmd.Flags().Changed("name") {
		update.Name = &projectName
	}
	if cmd.Flags().Changed("description") {
		update.Description = &projectDesc
	}
	if update.IsEmpty() {
		return fmt.Errorf("nothing to update: pass --name or --description")
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	project, err := c.UpdateProject(cmd.Context(), projectID, update)
	if err != nil {
		return err
	}

	return getFormatter().FormatProject(os.Stdout, project)
}

func runProjectsDelete(cmd *cobra.Command, args []string) error {
	projectID, err := parseID("project", args[0])
	if err != nil {
		return err
	}

	c, err := getClient()
	if err != nil {
		return err
	}

	project, err := c.GetProject(cmd.Context(), projectID)
	if err != nil {
		return err
	}

	if !projectYes {
		ok, err := confirm(fmt.Sprintf("Delete project '%s' and all of its photos", project.Name))
		if err != nil || !ok {
			fmt.Println("Cancelled.")
			return err
		}
	}

	report, err := c.DeleteProject(cmd.Context(), projectID)
	if err != nil {
		return err
	}

	return getFormatter().FormatCleanup(os.Stdout, "project "+project.Name, report)
}
