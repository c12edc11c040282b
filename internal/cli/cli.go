package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dozin22/teamflow/internal/log"
	internal_storage "github.com/dozin22/teamflow/internal/storage"
	"github.com/dozin22/teamflow/pkg/service"
)

// SetupCLI registers the admin commands. Template mutations through the CLI
// run under a team id given explicitly; there is no session identity here.
func SetupCLI(rootCmd *cobra.Command) {
	createCmd := &cobra.Command{
		Use:   "create-template [name]",
		Short: "Create a workflow template for a team",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := templateService(cmd)
			defer closeStore()
			teamID := mustTeamID(cmd)
			description, _ := cmd.Flags().GetString("description")
			tpl, err := svc.CreateTemplate(teamID, args[0], description)
			if err != nil {
				log.GetLogger().Errorf("Failed to create workflow template: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to create workflow template: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Created workflow template '%s' with ID %d\n", tpl.Name, tpl.ID)
		},
	}
	createCmd.Flags().String("description", "", "Template description")

	listCmd := &cobra.Command{
		Use:   "list-templates",
		Short: "List a team's workflow templates",
		Run: func(cmd *cobra.Command, args []string) {
			svc, closeStore := templateService(cmd)
			defer closeStore()
			teamID := mustTeamID(cmd)
			templates, err := svc.ListTemplates(teamID)
			if err != nil {
				log.GetLogger().Errorf("Failed to list workflow templates: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to list workflow templates: %v\n", err)
				os.Exit(1)
			}
			if len(templates) == 0 {
				fmt.Fprintf(os.Stdout, "No workflow templates found.\n")
				return
			}
			fmt.Fprintf(os.Stdout, "Workflow templates:\n")
			for _, tpl := range templates {
				fmt.Fprintf(os.Stdout, "- ID: %d, Name: %s, Definitions: %d\n", tpl.ID, tpl.Name, len(tpl.Definitions))
			}
		},
	}

	duplicateCmd := &cobra.Command{
		Use:   "duplicate-template [id]",
		Short: "Duplicate a workflow template with its dependency graph",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			templateID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error parsing id as number: %v\n", err)
				os.Exit(1)
			}
			svc, closeStore := templateService(cmd)
			defer closeStore()
			teamID := mustTeamID(cmd)
			dup, err := svc.DuplicateTemplate(teamID, templateID)
			if err != nil {
				log.GetLogger().Errorf("Failed to duplicate workflow template: %v", err)
				fmt.Fprintf(os.Stderr, "Error: failed to duplicate workflow template: %v\n", err)
				os.Exit(1)
			}
			fmt.Fprintf(os.Stdout, "Duplicated template %d into '%s' (ID %d, %d definitions)\n",
				templateID, dup.Name, dup.ID, len(dup.Definitions))
		},
	}

	for _, cmd := range []*cobra.Command{createCmd, listCmd, duplicateCmd} {
		cmd.Flags().Int64("team", 0, "Team ID the operation is scoped to (required)")
	}
	rootCmd.AddCommand(createCmd, listCmd, duplicateCmd)
}

func templateService(cmd *cobra.Command) (*service.TemplateService, func()) {
	dbConnStr, err := cmd.Flags().GetString("db")
	if err != nil {
		log.GetLogger().Errorf("Error retrieving db flag: %v", err)
		os.Exit(1)
	}
	store, err := internal_storage.InitStore(dbConnStr)
	if err != nil {
		log.GetLogger().Errorf("Failed to initialize store: %v", err)
		os.Exit(1)
	}
	return service.NewTemplateService(store, log.GetLogger()), func() { store.Close() }
}

func mustTeamID(cmd *cobra.Command) int64 {
	teamID, err := cmd.Flags().GetInt64("team")
	if err != nil || teamID <= 0 {
		fmt.Fprintln(os.Stderr, "Error: --team is required and must be positive")
		os.Exit(1)
	}
	return teamID
}
