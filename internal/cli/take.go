package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"diagnostic-quiz-service/internal/client"
	"diagnostic-quiz-service/internal/config"
	"diagnostic-quiz-service/internal/domain"
	"diagnostic-quiz-service/internal/infra/sqlite"
	"diagnostic-quiz-service/internal/quiz"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewTakeCmd runs the questionnaire in the terminal against a running server.
func NewTakeCmd(configPath *string) *cobra.Command {
	var (
		baseURL string
		stateDB string
	)
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take the questionnaire in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(*configPath)
			if err != nil {
				return err
			}
			if baseURL == "" {
				baseURL = cfg.Client.BaseURL
			}
			if baseURL == "" {
				baseURL = "http://localhost:" + port
			}
			if stateDB == "" {
				stateDB = cfg.Client.StateDB
			}
			if stateDB == "" {
				if stateDB, err = sqlite.DefaultPath(); err != nil {
					return err
				}
			}

			// the console belongs to the questionnaire
			cfg.Log.Level = "error"
			log := newLogger(cfg)
			defer log.Sync()

			store, err := sqlite.Open(stateDB)
			if err != nil {
				return err
			}
			defer store.Close()

			api := client.New(baseURL, config.TTLDuration(cfg.Client.Timeout, 0))
			controller := quiz.NewController(quiz.Deps{
				Source:         api,
				Checker:        api,
				Submitter:      api,
				Storage:        store,
				Fallback:       cfg.FallbackEnabled(),
				SnapshotMaxAge: config.TTLDuration(cfg.Quiz.SnapshotMaxAge, quiz.DefaultSnapshotMaxAge),
				Log:            log,
			})
			t := &terminal{in: bufio.NewScanner(cmd.InOrStdin()), out: cmd.OutOrStdout(), controller: controller, uploader: api, log: log}
			return t.run(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&baseURL, "server", "", "quiz service base URL")
	cmd.Flags().StringVar(&stateDB, "state", "", "path to the local snapshot database")
	return cmd
}

type uploader interface {
	Upload(ctx context.Context, filename, contentType string, r io.Reader, previousURL string) (domain.UploadResult, error)
}

// terminal renders controller views as plain text prompts.
type terminal struct {
	in         *bufio.Scanner
	out        io.Writer
	controller *quiz.Controller
	uploader   uploader
	log        *zap.Logger
}

var errInputClosed = errors.New("input closed")

func (t *terminal) run(ctx context.Context) error {
	if err := t.controller.Start(ctx); err != nil {
		fmt.Fprintln(t.out, "Could not load the questionnaire:", err)
		return err
	}
	for {
		view := t.controller.View()
		var err error
		switch view.State {
		case quiz.StateResumePrompt:
			err = t.choose(ctx, "You have an unfinished questionnaire. [c]ontinue or [r]estart?", map[string]func(context.Context) error{
				"c": t.controller.ContinueResume,
				"r": t.controller.RestartResume,
			})
		case quiz.StateAlreadyCompleted:
			err = t.choose(ctx, "You have already completed this questionnaire. [r]etake or [q]uit?", map[string]func(context.Context) error{
				"r": t.controller.RetakeAfterCompleted,
				"q": func(context.Context) error { return errInputClosed },
			})
		case quiz.StateComplete:
			t.renderComplete(view)
			return nil
		case quiz.StateError:
			fmt.Fprintln(t.out, "Something went wrong:", view.Err)
			return view.Err
		default:
			err = t.ask(ctx, view)
		}
		if errors.Is(err, errInputClosed) {
			return nil
		}
		if err != nil {
			fmt.Fprintln(t.out, "!", err)
		}
	}
}

func (t *terminal) readLine() (string, error) {
	if !t.in.Scan() {
		if err := t.in.Err(); err != nil {
			return "", err
		}
		return "", errInputClosed
	}
	return strings.TrimSpace(t.in.Text()), nil
}

func (t *terminal) choose(ctx context.Context, prompt string, actions map[string]func(context.Context) error) error {
	fmt.Fprintln(t.out, prompt)
	line, err := t.readLine()
	if err != nil {
		return err
	}
	action, ok := actions[strings.ToLower(line)]
	if !ok {
		return fmt.Errorf("unknown choice %q", line)
	}
	return action(ctx)
}

func (t *terminal) ask(ctx context.Context, view quiz.View) error {
	q := view.Question
	if q == nil {
		return errInputClosed
	}
	if view.Category != nil {
		fmt.Fprintf(t.out, "\n[%s %s] %d%%\n", view.Category.Title, view.Category.Subtitle, view.Progress)
	}
	fmt.Fprintf(t.out, "%d/%d %s\n", view.Index+1, view.Total, q.Prompt)
	for i, opt := range q.Options {
		fmt.Fprintf(t.out, "  %d) %s\n", i+1, opt.Label)
	}
	if view.Answer != nil {
		fmt.Fprintf(t.out, "  current: %s\n", view.Answer)
	}
	fmt.Fprintln(t.out, "  (:back, :exit, empty keeps the current answer)")

	line, err := t.readLine()
	if err != nil {
		return err
	}
	switch line {
	case ":back":
		return t.controller.Previous(ctx)
	case ":exit":
		if err := t.controller.Exit(ctx); err != nil {
			return err
		}
		return errInputClosed
	case "":
	default:
		raw, err := t.parse(ctx, *q, view.Answer, line)
		if err != nil {
			return err
		}
		if err := t.controller.Answer(ctx, raw); err != nil {
			return err
		}
	}
	return t.controller.Next(ctx)
}

// parse turns a typed line into the raw answer the controller expects.
func (t *terminal) parse(ctx context.Context, q domain.Question, current *domain.AnswerValue, line string) (any, error) {
	switch q.Type {
	case domain.QuestionSingle, domain.QuestionGender, domain.QuestionImage:
		return optionValue(q, line), nil
	case domain.QuestionMultiple:
		var values []string
		for _, part := range strings.Split(line, ",") {
			if part = strings.TrimSpace(part); part != "" {
				values = append(values, optionValue(q, part))
			}
		}
		return values, nil
	case domain.QuestionUpload:
		previous := ""
		if current != nil {
			previous = current.Text()
		}
		return t.upload(ctx, line, previous)
	}
	return line, nil
}

// optionValue accepts a 1-based option number or the value itself.
func optionValue(q domain.Question, input string) string {
	if n, err := strconv.Atoi(input); err == nil && n >= 1 && n <= len(q.Options) {
		return q.Options[n-1].Value
	}
	return input
}

func (t *terminal) upload(ctx context.Context, path, previous string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(path)))
	res, err := t.uploader.Upload(ctx, path, contentType, f, previous)
	if err != nil {
		return "", err
	}
	return res.URL, nil
}

func (t *terminal) renderComplete(view quiz.View) {
	fmt.Fprintln(t.out, "\nThank you! Your answers are in.")
	if view.SubmitErr != nil {
		fmt.Fprintln(t.out, "We could not send them yet; run take again to retry:", view.SubmitErr)
		t.log.Warn("submission failed", zap.Error(view.SubmitErr))
		return
	}
	if view.Result != nil {
		fmt.Fprintf(t.out, "Your hair coach will reach out on %s.\n", view.Result.Phone)
	}
}
