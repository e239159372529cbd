package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/loom-gateway/internal/core/domain"
)

var coursesJSON bool

var coursesCmd = &cobra.Command{
	Use:   "courses",
	Short: "Manage courses",
	Long:  `List courses, show their documents and set their name or guardrails.`,
	RunE:  runCoursesList,
}

var coursesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all courses",
	Args:  cobra.NoArgs,
	RunE:  runCoursesList,
}

var coursesShowCmd = &cobra.Command{
	Use:   "show [course-id]",
	Short: "Show a course and its documents",
	Args:  cobra.ExactArgs(1),
	RunE:  runCoursesShow,
}

var coursesSetCmd = &cobra.Command{
	Use:   "set [course-id]",
	Short: "Set a course's name or guardrails",
	Long: `Set a course's display name or guardrails. Guardrails are appended to
the tutor instructions of every chat in the course. The course is created
if it does not exist.`,
	Args: cobra.ExactArgs(1),
	RunE: runCoursesSet,
}

func init() {
	coursesCmd.PersistentFlags().BoolVar(&coursesJSON, "json", false, "output as JSON")
	coursesSetCmd.Flags().String("name", "", "display name")
	coursesSetCmd.Flags().String("guardrails", "", "extra instructions for the tutor")

	coursesCmd.AddCommand(coursesListCmd)
	coursesCmd.AddCommand(coursesShowCmd)
	coursesCmd.AddCommand(coursesSetCmd)
	rootCmd.AddCommand(coursesCmd)
}

func runCoursesList(cmd *cobra.Command, _ []string) error {
	if catalogService == nil {
		return errServicesNotConfigured
	}

	courses, err := catalogService.ListCourses(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list courses: %w", err)
	}

	if coursesJSON {
		return printJSON(cmd, courses)
	}
	if len(courses) == 0 {
		cmd.Println("No courses yet. Ingest a document with: loom ingest --course ID FILE")
		return nil
	}
	for i := range courses {
		cmd.Printf("  %-16s %s\n", courses[i].ID, courses[i].Name)
	}
	return nil
}

func runCoursesShow(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errServicesNotConfigured
	}

	course, err := catalogService.GetCourse(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get course: %w", err)
	}
	docs, err := catalogService.ListDocuments(cmd.Context(), course.ID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if coursesJSON {
		return printJSON(cmd, struct {
			Course    *domain.Course
			Documents []domain.Document
		}{course, docs})
	}

	printCourse(cmd, course)
	cmd.Printf("Documents:  %d\n", len(docs))
	for i := range docs {
		cmd.Printf("  %s  %s (%d bytes)\n", shortID(docs[i].ID), docs[i].Filename, docs[i].Bytes)
	}
	return nil
}

func runCoursesSet(cmd *cobra.Command, args []string) error {
	if catalogService == nil {
		return errServicesNotConfigured
	}

	var update domain.CourseUpdate
	if cmd.Flags().Changed("name") {
		name, _ := cmd.Flags().GetString("name")
		update.Name = &name
	}
	if cmd.Flags().Changed("guardrails") {
		guardrails, _ := cmd.Flags().GetString("guardrails")
		update.Guardrails = &guardrails
	}
	if update.Name == nil && update.Guardrails == nil {
		return fmt.Errorf("nothing to set: use --name or --guardrails")
	}

	course, err := catalogService.UpdateCourse(cmd.Context(), args[0], update)
	if err != nil {
		return fmt.Errorf("failed to update course: %w", err)
	}

	if coursesJSON {
		return printJSON(cmd, course)
	}
	printCourse(cmd, course)
	return nil
}

func printCourse(cmd *cobra.Command, c *domain.Course) {
	cmd.Printf("ID:         %s\n", c.ID)
	cmd.Printf("Name:       %s\n", c.Name)
	if c.Guardrails != "" {
		cmd.Printf("Guardrails: %s\n", c.Guardrails)
	} else {
		cmd.Printf("Guardrails: (none)\n")
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
