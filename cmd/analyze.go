package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/spigell/resume-analyzer/internal/ai"
	"github.com/spigell/resume-analyzer/internal/analysis"
	"github.com/spigell/resume-analyzer/internal/jobboard"
	"github.com/spigell/resume-analyzer/internal/logger"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const PromptExit = "Exit"

var errExit = errors.New("exit requested")

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Evaluate a resume interactively in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		analyze(cmd)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringP("resume", "r", "", "path to the resume PDF (asked interactively when empty)")
	analyzeCmd.Flags().String("job-description", "", "job description text")
	analyzeCmd.Flags().String("job-file", "", "file with the job description")
	analyzeCmd.Flags().String("vacancy", "", "hh.ru vacancy id or url to take the job description from")
	analyzeCmd.Flags().StringP("action", "a", "", "run a single action without the menu: tell-me-about-resume, improve-skills or percentage-match")
}

// analyze is the terminal variant of the form.
func analyze(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config := loadConfig(logger)

	pipeline, err := newPipeline(ctx, config, logger)
	if err != nil {
		logger.Fatal("refusing to start", setupErrorFields(err)...)
	}

	jobDescription, err := resolveJobDescription(ctx, cmd, config, logger)
	if err != nil {
		logger.Fatal("getting the job description", zap.Error(err))
	}

	resumePath := flagValue(cmd, "resume")
	if resumePath == "" {
		resumePath, err = (&promptui.Prompt{Label: "Upload Your Resume (PDF path)"}).Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	doc, err := readResume(resumePath)
	if err != nil {
		logger.Fatal("reading the resume", zap.Error(err))
	}

	if single := flagValue(cmd, "action"); single != "" {
		action, err := ai.ParseAction(single)
		if err != nil {
			logger.Fatal("parsing action", zap.Error(err))
		}
		if err := runAction(ctx, os.Stdout, pipeline, action, doc, jobDescription); err != nil {
			os.Exit(1)
		}
		return
	}

	items := make([]string, 0, len(ai.Actions())+1)
	for _, a := range ai.Actions() {
		items = append(items, a.Label())
	}
	menu := promptui.Select{
		Label: "Choose an action",
		Items: append(items, PromptExit),
	}

	for {
		_, selected, err := menu.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		action, err := selectAction(selected)
		if errors.Is(err, errExit) {
			return
		}
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		// Each action is an independent attempt; a failure does not end the session.
		_ = runAction(ctx, os.Stdout, pipeline, action, doc, jobDescription)
	}
}

func selectAction(selected string) (ai.Action, error) {
	if selected == PromptExit {
		return 0, errExit
	}
	return ai.ParseAction(selected)
}

type interactionRunner interface {
	Run(ctx context.Context, in analysis.Input) (*analysis.Result, error)
}

// runAction prints either the result or the user-facing message for the failure.
func runAction(ctx context.Context, w io.Writer, r interactionRunner, action ai.Action, doc []byte, jobDescription string) error {
	res, err := r.Run(ctx, analysis.Input{Document: doc, JobDescription: jobDescription, Action: action})
	if err != nil {
		fmt.Fprintln(w, analysis.Message(err))
		return err
	}

	fmt.Fprintf(w, "\n%s\n\n%s\n\n", res.Heading, strings.TrimSpace(res.Text))
	return nil
}

// readResume returns nil for an empty path so the pipeline reports the missing upload.
func readResume(path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, nil
	}
	return os.ReadFile(path)
}

func resolveJobDescription(ctx context.Context, cmd *cobra.Command, config *Config, logger *zap.Logger) (string, error) {
	if text := flagValue(cmd, "job-description"); text != "" {
		return text, nil
	}

	if file := flagValue(cmd, "job-file"); file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("reading job description file: %w", err)
		}
		return string(data), nil
	}

	if ref := flagValue(cmd, "vacancy"); ref != "" {
		return vacancyDescription(ctx, config, logger, ref)
	}

	// Empty is a legal job description.
	return (&promptui.Prompt{Label: "Paste the job description here"}).Run()
}

func vacancyDescription(ctx context.Context, config *Config, logger *zap.Logger, ref string) (string, error) {
	board := config.JobBoard
	if board == nil {
		board = &JobBoardConfig{}
	}

	client := jobboard.New(ctx, logger.Named("jobboard"), strings.TrimSpace(board.Token))
	if ua := strings.TrimSpace(board.UserAgent); ua != "" {
		client.UserAgent = ua
	}

	vacancy, err := client.GetVacancy(ref)
	if err != nil {
		return "", err
	}

	logger.Info("using vacancy as job description",
		zap.String("vacancy_id", vacancy.ID),
		zap.String("vacancy_name", vacancy.Name),
	)

	return vacancy.JobDescription(), nil
}

func flagValue(cmd *cobra.Command, name string) string {
	if cmd == nil {
		return ""
	}
	flag := cmd.Flag(name)
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(flag.Value.String())
}
