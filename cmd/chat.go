package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/framerhq/framer/internal/engine"
	"github.com/framerhq/framer/internal/syncx"
	"github.com/framerhq/framer/models"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Author a frame through a guided conversation",
	Long: `Start a conversation with the AI coach, send messages, and once the
coach has covered enough ground, synthesize the discussion into a frame.`,
}

var chatStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start a new conversation (replaces the current one)",
	RunE: func(cmd *cobra.Command, args []string) error {
		purpose, _ := cmd.Flags().GetString("purpose")
		frameID, _ := cmd.Flags().GetString("frame")
		owner, _ := cmd.Flags().GetString("owner")
		if owner == "" {
			owner = GetConfig().Project.Owner
		}
		if owner == "" {
			return fmt.Errorf("an owner is required (--owner or project.owner in config)")
		}
		if purpose == string(models.PurposeReview) && frameID == "" {
			return fmt.Errorf("a review conversation needs --frame")
		}
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			err := app.Engine.Start(ctx, owner, engineStartOptions(purpose, frameID))
			if err != nil {
				return err
			}
			conv, _ := app.Engine.Conversation()
			fmt.Printf("Started %s conversation %s\n", conv.Purpose, conv.ID)
			return nil
		})
	},
}

var chatSendCmd = &cobra.Command{
	Use:   "send <message>",
	Short: "Send a message to the coach",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		senderName, _ := cmd.Flags().GetString("name")
		content := strings.Join(args, " ")
		return withApp(func(app *App) error {
			if _, ok := app.Engine.Conversation(); !ok {
				return fmt.Errorf("no active conversation; run 'framer chat start' first")
			}
			ctx, cancel := opContext()
			defer cancel()
			err := app.Engine.SendMessage(ctx, content, senderName)
			if errors.Is(err, syncx.ErrInFlight) {
				return fmt.Errorf("a message is already being sent")
			}
			if err != nil {
				// The message stays in the log flagged failed; point the
				// user at retry instead of losing their input.
				conv, _ := app.Engine.Conversation()
				for i := len(conv.Messages) - 1; i >= 0; i-- {
					if conv.Messages[i].Status == models.MessageFailed {
						return fmt.Errorf("send failed (%s); retry with 'framer chat retry %s'",
							app.Engine.LastError(), conv.Messages[i].ID)
					}
				}
				return err
			}
			printLatestExchange(app)
			return nil
		})
	},
}

var chatRetryCmd = &cobra.Command{
	Use:   "retry <message-id>",
	Short: "Retry a failed message",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			if err := app.Engine.RetryMessage(ctx, args[0]); err != nil {
				return err
			}
			printLatestExchange(app)
			return nil
		})
	},
}

var chatLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Show the conversation log and section coverage",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			conv, ok := app.Engine.Conversation()
			if !ok {
				fmt.Println("No active conversation.")
				return nil
			}
			fmt.Printf("Conversation %s (%s, %s)\n\n", conv.ID, conv.Purpose, conv.Status)
			for _, m := range conv.Messages {
				marker := ""
				if m.Status == models.MessageFailed {
					marker = "  [send failed: " + m.ID + "]"
				}
				fmt.Printf("%s: %s%s\n", m.Role, m.Content, marker)
			}
			fmt.Println()
			printCoverage(conv.State)
			return nil
		})
	},
}

var chatPreviewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Preview the frame the conversation would produce",
	Long: `Generates a non-persisted synthesis of the conversation so far. The
result is cached; previewing again without new messages does not call the
backend.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			if _, ok := app.Engine.Conversation(); !ok {
				return fmt.Errorf("no active conversation")
			}
			ctx, cancel := opContext()
			defer cancel()
			content, err := app.Engine.PreviewFrame(ctx)
			if err != nil {
				return err
			}
			printSection("Problem Statement", content.ProblemStatement)
			if content.RootCause != "" {
				printSection("Root Cause", content.RootCause)
			}
			printSection("User Perspective", content.UserPerspective)
			printSection("Engineering Framing", content.EngineeringFraming)
			printSection("Validation Thinking", content.ValidationThinking)
			return nil
		})
	},
}

var chatSynthesizeCmd = &cobra.Command{
	Use:   "synthesize",
	Short: "Commit the conversation into a frame",
	Long: `Synthesizes the conversation into a persisted draft frame. If a
preview is still current its content is reused so the backend does not
regenerate.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			if _, ok := app.Engine.Conversation(); !ok {
				return fmt.Errorf("no active conversation")
			}
			ctx, cancel := opContext()
			defer cancel()
			frameID, err := app.Engine.SynthesizeFrame(ctx)
			if err != nil {
				return err
			}
			if _, err := app.Lifecycle.Refresh(ctx, frameID); err != nil {
				fmt.Printf("Synthesized frame %s (could not fetch it: %v)\n", frameID, err)
				return nil
			}
			fmt.Printf("Synthesized frame %s\n", frameID)
			return nil
		})
	},
}

var chatSummarizeCmd = &cobra.Command{
	Use:   "summarize",
	Short: "Summarize a review conversation onto its frame",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			ctx, cancel := opContext()
			defer cancel()
			summary, frameID, err := app.Engine.SummarizeReview(ctx)
			if err != nil {
				return err
			}
			if frameID != "" {
				review := models.Review{
					Summary:        summary.Summary,
					Comments:       summary.Comments,
					Recommendation: summary.Recommendation,
				}
				if err := app.Lifecycle.SaveReviewSummary(frameID, review); err == nil {
					fmt.Printf("Review summary saved to %s\n", frameID)
				}
			}
			fmt.Printf("\n%s\n", summary.Summary)
			if summary.Recommendation != "" {
				fmt.Printf("Recommendation: %s\n", summary.Recommendation)
			}
			return nil
		})
	},
}

var chatClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Abandon the current conversation",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(app *App) error {
			app.Engine.ClearConversation()
			fmt.Println("Conversation discarded.")
			return nil
		})
	},
}

func engineStartOptions(purpose, frameID string) engine.StartOptions {
	return engine.StartOptions{
		Purpose:   models.ConversationPurpose(purpose),
		FrameID:   frameID,
		ProjectID: GetConfig().Project.ProjectID,
	}
}

func printLatestExchange(app *App) {
	conv, ok := app.Engine.Conversation()
	if !ok || len(conv.Messages) == 0 {
		return
	}
	last := conv.Messages[len(conv.Messages)-1]
	if last.Role == models.RoleAssistant {
		fmt.Printf("coach: %s\n\n", last.Content)
	}
	printCoverage(conv.State)
	if hits := app.Engine.RelevantKnowledge(); len(hits) > 0 {
		fmt.Println("\nRelated knowledge:")
		for _, hit := range hits {
			fmt.Printf("  - %s\n", hit.Content)
		}
	}
}

func printCoverage(state models.ConversationState) {
	fmt.Println("Coverage:")
	for _, section := range []string{
		models.SectionProblemStatement,
		models.SectionRootCause,
		models.SectionUserPerspective,
		models.SectionEngineeringFraming,
		models.SectionValidationThinking,
	} {
		if ratio, ok := state.SectionsCovered[section]; ok {
			fmt.Printf("  %-22s %3.0f%%\n", section, ratio*100)
		}
	}
	if len(state.Gaps) > 0 {
		fmt.Println("Gaps:")
		for _, gap := range state.Gaps {
			fmt.Printf("  - %s\n", gap)
		}
	}
	if state.ReadyToSynthesize {
		fmt.Println("Ready to synthesize. Run 'framer chat synthesize'.")
	}
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.AddCommand(chatStartCmd, chatSendCmd, chatRetryCmd, chatLogCmd,
		chatPreviewCmd, chatSynthesizeCmd, chatSummarizeCmd, chatClearCmd)

	chatStartCmd.Flags().String("purpose", string(models.PurposeAuthoring), "conversation purpose: authoring or review")
	chatStartCmd.Flags().String("frame", "", "frame id to discuss (review conversations)")
	chatStartCmd.Flags().String("owner", "", "owner id (defaults to project.owner)")

	chatSendCmd.Flags().String("name", "", "sender display name")
}
