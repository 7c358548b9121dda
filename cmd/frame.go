package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/framerhq/framer/models"
)

var frameCmd = &cobra.Command{
	Use:   "frame",
	Short: "Manage frames and their review lifecycle",
	Long: `Create, edit, and walk frames through their lifecycle:
draft -> in_review -> ready -> feedback -> archived.`,
}

var frameCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new draft frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		frameType, _ := cmd.Flags().GetString("type")
		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = GetConfig().Project.Owner
		}
		if owner == "" {
			return fmt.Errorf("an owner is required (--owner or project.owner in config)")
		}
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			frame, err := app.Lifecycle.CreateFrame(ctx, models.FrameType(frameType), owner, GetConfig().Project.ProjectID)
			if err != nil {
				return err
			}
			fmt.Printf("Created %s frame %s (status: %s)\n", frame.Type, frame.ID, frame.Status)
			return nil
		})
	},
}

var frameListCmd = &cobra.Command{
	Use:   "list",
	Short: "List frames",
	RunE: func(cmd *cobra.Command, args []string) error {
		archived, _ := cmd.Flags().GetBool("archived")
		return withApp(func(app *App) error {
			frames := app.Lifecycle.WorkingFrames()
			if archived {
				frames = app.Lifecycle.ArchivedFrames()
			}
			if len(frames) == 0 {
				fmt.Println("No frames found.")
				return nil
			}
			for _, f := range frames {
				score := "-"
				if f.Evaluation != nil {
					score = fmt.Sprintf("%d", f.Evaluation.Score)
				}
				fmt.Printf("%-24s %-12s %-10s score=%-4s %s\n", f.ID, f.Type, f.Status, score, f.Owner)
			}
			return nil
		})
	},
}

var frameShowCmd = &cobra.Command{
	Use:   "show <frame-id>",
	Short: "Show a frame's sections and metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			frame, ok := app.Lifecycle.GetFrame(args[0])
			if !ok {
				return fmt.Errorf("frame not found: %s", args[0])
			}
			printFrame(frame)
			return nil
		})
	},
}

var frameUpdateCmd = &cobra.Command{
	Use:   "update <frame-id>",
	Short: "Update a frame's sections",
	Long: `Update one or more sections of a frame. The edit is applied locally
right away and persisted to the backend; if persistence fails the local
edit is kept and the error reported so you can retry.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		updates := models.FrameContent{}
		updates.ProblemStatement, _ = cmd.Flags().GetString("problem")
		updates.RootCause, _ = cmd.Flags().GetString("root-cause")
		updates.UserPerspective, _ = cmd.Flags().GetString("user")
		updates.EngineeringFraming, _ = cmd.Flags().GetString("engineering")
		updates.ValidationThinking, _ = cmd.Flags().GetString("validation")
		if updates.IsEmpty() {
			return fmt.Errorf("nothing to update: pass at least one section flag")
		}
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.UpdateFrame(ctx, args[0], updates); err != nil {
				return fmt.Errorf("edit kept locally but not persisted: %w", err)
			}
			fmt.Printf("Updated %s\n", args[0])
			return nil
		})
	},
}

var frameSubmitCmd = &cobra.Command{
	Use:   "submit <frame-id>",
	Short: "Submit a draft frame for review",
	Long: `Persist the frame's content, move it to in_review, and run AI
evaluation. The evaluation score and issues are merged into the frame; if
evaluation fails, the frame stays in review and the error is reported.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewer, _ := cmd.Flags().GetString("reviewer")
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.SubmitForReview(ctx, args[0], reviewer); err != nil {
				return err
			}
			frame, _ := app.Lifecycle.GetFrame(args[0])
			fmt.Printf("Frame %s is now %s", frame.ID, frame.Status)
			if frame.Evaluation != nil {
				fmt.Printf(" (AI score: %d)", frame.Evaluation.Score)
			}
			fmt.Println()
			return nil
		})
	},
}

var frameReadyCmd = &cobra.Command{
	Use:   "ready <frame-id>",
	Short: "Mark a reviewed frame as ready",
	Args:  cobra.ExactArgs(1),
	RunE:  statusRunE(func(app *App) statusOp { return app.Lifecycle.MarkAsReady }),
}

var frameStartFeedbackCmd = &cobra.Command{
	Use:   "start-feedback <frame-id>",
	Short: "Open the feedback stage on a ready frame",
	Args:  cobra.ExactArgs(1),
	RunE:  statusRunE(func(app *App) statusOp { return app.Lifecycle.StartFeedback }),
}

var frameArchiveCmd = &cobra.Command{
	Use:   "archive <frame-id>",
	Short: "Attach a feedback retrospective and archive the frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		outcome, _ := cmd.Flags().GetString("outcome")
		summary, _ := cmd.Flags().GetString("summary")
		lessons, _ := cmd.Flags().GetStringArray("lesson")
		if outcome == "" {
			return fmt.Errorf("--outcome is required")
		}
		record := models.FeedbackRecord{
			Outcome:        outcome,
			Summary:        summary,
			LessonsLearned: lessons,
		}
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.SubmitFeedback(ctx, args[0], record); err != nil {
				return err
			}
			fmt.Printf("Frame %s archived\n", args[0])
			return nil
		})
	},
}

var frameEvaluateCmd = &cobra.Command{
	Use:   "evaluate <frame-id>",
	Short: "Re-run AI evaluation on a frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.EvaluateFrame(ctx, args[0]); err != nil {
				return err
			}
			frame, _ := app.Lifecycle.GetFrame(args[0])
			if frame.Evaluation != nil {
				fmt.Printf("Score: %d\n", frame.Evaluation.Score)
				for _, issue := range frame.Evaluation.Issues {
					fmt.Printf("  - %s\n", issue)
				}
			}
			return nil
		})
	},
}

var frameSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replace the local frame set with the backend's",
	RunE: func(cmd *cobra.Command, args []string) error {
		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = GetConfig().Project.Owner
		}
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.Sync(ctx, owner); err != nil {
				return err
			}
			fmt.Printf("Synced %d frames\n", len(app.Lifecycle.Frames()))
			return nil
		})
	},
}

var frameDeleteCmd = &cobra.Command{
	Use:   "delete <frame-id>",
	Short: "Delete a frame",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Lifecycle.DeleteFrame(ctx, args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		})
	},
}

type statusOp func(ctx context.Context, id string) error

func statusRunE(pick func(app *App) statusOp) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := pick(app)(ctx, args[0]); err != nil {
				return err
			}
			frame, _ := app.Lifecycle.GetFrame(args[0])
			fmt.Printf("Frame %s is now %s\n", frame.ID, frame.Status)
			return nil
		})
	}
}

func printFrame(f models.Frame) {
	fmt.Printf("%s  [%s]  %s\n", f.ID, f.Type, f.Status)
	fmt.Printf("Owner: %s", f.Owner)
	if f.Reviewer != "" {
		fmt.Printf("  Reviewer: %s", f.Reviewer)
	}
	if f.Approver != "" {
		fmt.Printf("  Approver: %s", f.Approver)
	}
	fmt.Println()
	printSection("Problem Statement", f.Content.ProblemStatement)
	if f.Type == models.TypeBug {
		printSection("Root Cause", f.Content.RootCause)
	}
	printSection("User Perspective", f.Content.UserPerspective)
	printSection("Engineering Framing", f.Content.EngineeringFraming)
	printSection("Validation Thinking", f.Content.ValidationThinking)
	if f.Evaluation != nil {
		fmt.Printf("\nAI score: %d\n", f.Evaluation.Score)
		if f.Evaluation.Feedback != "" {
			fmt.Printf("Feedback: %s\n", f.Evaluation.Feedback)
		}
	}
	if f.Feedback != nil {
		fmt.Printf("\nOutcome: %s\n", f.Feedback.Outcome)
		for _, lesson := range f.Feedback.LessonsLearned {
			fmt.Printf("  - %s\n", lesson)
		}
	}
}

func printSection(title, body string) {
	fmt.Printf("\n## %s\n", title)
	if strings.TrimSpace(body) == "" {
		fmt.Println("(empty)")
		return
	}
	fmt.Println(body)
}

func init() {
	rootCmd.AddCommand(frameCmd)
	frameCmd.AddCommand(frameCreateCmd, frameListCmd, frameShowCmd, frameUpdateCmd,
		frameSubmitCmd, frameReadyCmd, frameStartFeedbackCmd, frameArchiveCmd,
		frameEvaluateCmd, frameSyncCmd, frameDeleteCmd)

	frameCreateCmd.Flags().String("type", "feature", "frame type: bug, feature, or exploration")
	frameCreateCmd.Flags().String("owner", "", "owner id (defaults to project.owner)")

	frameListCmd.Flags().Bool("archived", false, "list archived frames instead of the working set")

	frameUpdateCmd.Flags().String("problem", "", "problem statement")
	frameUpdateCmd.Flags().String("root-cause", "", "root cause (bug frames)")
	frameUpdateCmd.Flags().String("user", "", "user perspective")
	frameUpdateCmd.Flags().String("engineering", "", "engineering framing")
	frameUpdateCmd.Flags().String("validation", "", "validation thinking")

	frameSubmitCmd.Flags().String("reviewer", "", "reviewer id to assign")

	frameSyncCmd.Flags().String("owner", "", "only sync frames owned by this id")

	frameArchiveCmd.Flags().String("outcome", "", "outcome of the work (shipped, dropped, ...)")
	frameArchiveCmd.Flags().String("summary", "", "short retrospective summary")
	frameArchiveCmd.Flags().StringArray("lesson", nil, "a lesson learned (repeatable)")
}
