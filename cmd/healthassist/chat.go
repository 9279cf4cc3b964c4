package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/comigor/healthassist-go/internal/config"
	"github.com/comigor/healthassist-go/internal/logger"
	"github.com/comigor/healthassist-go/internal/models"
	"github.com/comigor/healthassist-go/internal/session"
)

const chatHelp = `Commands:
  /list                  list conversations
  /new                   start a new conversation
  /switch <id>           switch conversation
  /rename <title>        rename the current conversation
  /delete [id]           delete a conversation (default: current)
  /history               show the current conversation
  /signin <id-token>     sign in with a Google ID token
  /signout               sign out
  /plan <carrier>[|plan] save your insurance plan on this device ("/plan -" clears it)
  /flush                 retry unsent messages
  /sync                  reconcile with the stored conversation list
  /quit                  exit
Anything else is sent to the assistant.`

func newChatCommand(loadConfig func() *config.Config) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the assistant in the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if err := redirectLogs(logFile); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()

			warn := color.New(color.FgYellow)
			a, err := newApp(loadConfig(), func(ev session.Event) {
				switch ev.Kind {
				case session.EventHydrationFailed, session.EventReplacementFailed:
					warn.Fprintf(out, "! %s (%s): %v\n", ev.Kind, ev.ConversationID, ev.Err)
				}
			})
			if err != nil {
				return err
			}
			defer a.Close()
			a.restore(ctx)

			r := &repl{app: a, out: out}
			return r.run(ctx, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file instead of discarding them")
	return cmd
}

func redirectLogs(path string) error {
	if path == "" {
		logger.SetOutput(io.Discard)
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	return nil
}

type repl struct {
	app *app
	out io.Writer
}

func (r *repl) run(ctx context.Context, in io.Reader) error {
	cyan := color.New(color.FgCyan, color.Bold)
	cyan.Fprintln(r.out, "HealthAssist AI")
	fmt.Fprintln(r.out, "Ask about Medicare, Medicaid, insurance plans, or finding a doctor. Type /help for commands.")
	r.status()

	scanner := bufio.NewScanner(in)
	for {
		color.New(color.FgGreen).Fprint(r.out, "you> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		if err := r.handle(ctx, line); err != nil {
			color.New(color.FgRed).Fprintf(r.out, "error: %v\n", err)
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) error {
	sessions := r.app.sessions
	if !strings.HasPrefix(line, "/") {
		return r.send(ctx, line)
	}

	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)
	switch name {
	case "/help":
		fmt.Fprintln(r.out, chatHelp)
	case "/list":
		r.list()
	case "/new":
		conv, err := sessions.NewConversation(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(r.out, "started %s\n", conv.ID)
	case "/switch":
		if _, ok := sessions.Conversation(arg); !ok {
			return fmt.Errorf("%w: %s", session.ErrUnknownConversation, arg)
		}
		sessions.Select(arg)
		sessions.Wait()
		r.history()
	case "/rename":
		return sessions.Rename(ctx, sessions.ActiveID(), arg)
	case "/delete":
		id := arg
		if id == "" {
			id = sessions.ActiveID()
		}
		if err := sessions.Delete(ctx, id); err != nil {
			return err
		}
		sessions.Wait()
		r.status()
	case "/history":
		sessions.Select(sessions.ActiveID())
		sessions.Wait()
		r.history()
	case "/signin":
		if err := r.app.signIn(ctx, arg); err != nil {
			return err
		}
		r.status()
	case "/signout":
		if err := r.app.signOut(); err != nil {
			return err
		}
		r.status()
	case "/plan":
		return r.plan(arg)
	case "/flush":
		return sessions.Flush(ctx, sessions.ActiveID())
	case "/sync":
		if err := sessions.Reconcile(ctx); err != nil {
			return err
		}
		sessions.Wait()
		r.list()
	default:
		return fmt.Errorf("unknown command %s (try /help)", name)
	}
	return nil
}

func (r *repl) send(ctx context.Context, text string) error {
	reply, err := r.app.sender.Send(ctx, r.app.sessions.ActiveID(), text)
	var perr *session.PersistError
	if err != nil && !errors.As(err, &perr) {
		return err
	}
	r.printMessage(reply)
	if perr != nil {
		color.New(color.FgYellow).Fprintf(r.out, "! %d message(s) not saved yet; /flush to retry\n", len(perr.FailedMessageIDs))
	}
	return nil
}

func (r *repl) plan(arg string) error {
	if arg == "" {
		if plan, ok := r.app.local.InsurancePlan(); ok {
			fmt.Fprintf(r.out, "insurance plan: %s\n", plan.Label())
		} else {
			fmt.Fprintln(r.out, "no insurance plan saved")
		}
		return nil
	}
	var plan models.InsurancePlan
	if arg != "-" {
		carrier, name, _ := strings.Cut(arg, "|")
		plan = models.InsurancePlan{Carrier: strings.TrimSpace(carrier), PlanName: strings.TrimSpace(name)}
	}
	return r.app.local.SetInsurancePlan(plan)
}

func (r *repl) status() {
	who := "guest"
	if user, ok := r.app.identity.User(); ok {
		who = user.Email
	}
	fmt.Fprintf(r.out, "[%s] signed in as %s, conversation %s\n", r.app.sessions.Mode(), who, r.app.sessions.ActiveID())
}

func (r *repl) list() {
	active := r.app.sessions.ActiveID()
	for _, c := range r.app.sessions.Conversations() {
		marker := " "
		if c.ID == active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %-40s %s (%d)\n", marker, c.ID, c.Title, c.MessageCount)
	}
}

func (r *repl) history() {
	conv, ok := r.app.sessions.Active()
	if !ok {
		return
	}
	color.New(color.Bold).Fprintf(r.out, "— %s —\n", conv.Title)
	for _, m := range conv.Messages {
		r.printMessage(m)
	}
}

func (r *repl) printMessage(m models.Message) {
	switch {
	case m.Role == models.RoleUser:
		color.New(color.FgGreen).Fprintf(r.out, "you> %s\n", m.Content)
	case m.ContentType == models.ContentError:
		color.New(color.FgRed).Fprintf(r.out, "assistant> %s\n", m.Content)
	default:
		color.New(color.FgCyan).Fprintf(r.out, "assistant> %s\n", m.Content)
		if res := m.DoctorSearchResult; res != nil {
			for _, d := range res.Doctors {
				line := d.FullName() + ", " + d.Specialty
				if d.Address != nil {
					line += " (" + d.Address.City + ", " + d.Address.State + ")"
				}
				fmt.Fprintf(r.out, "    • %s\n", line)
			}
		}
	}
}
