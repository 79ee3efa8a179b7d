package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/samber/lo"

	"github.com/edgeee/activityfeed/feed"
)

// session is the part of feed.Feed the terminal client drives.
type session interface {
	Activities(ctx context.Context) ([]feed.Activity, error)
	CreateActivity(ctx context.Context, in feed.NewActivity, files []feed.Attachment) (feed.Activity, error)
	UpdateActivity(ctx context.Context, in feed.ActivityEdit) error
	DeleteActivity(ctx context.Context, activityID string) error

	View(ctx context.Context, viewerID, activityID string) feed.CardView
	Refresh(ctx context.Context, viewerID, activityID string) (feed.CardView, error)
	Panel(ctx context.Context, viewerID, activityID string, p feed.Panel, action feed.PanelAction) (feed.CardView, error)
	SubmitComment(ctx context.Context, viewerID, activityID, content string) (feed.Comment, error)
	SubmitReaction(ctx context.Context, viewerID, activityID string, t feed.ReactionType) (feed.ReactionOutcome, error)
	Share(ctx context.Context, viewerID, activityID string) (feed.ShareResult, error)
}

var errQuit = errors.New("quit")

var (
	bold   = color.New(color.Bold)
	faint  = color.New(color.FgHiBlack)
	accent = color.New(color.FgHiYellow)
	good   = color.New(color.FgGreen)
	bad    = color.New(color.FgRed)
)

const helpText = `Commands:
  ls                          list activities
  open <id>                   open the card for an activity
  show                        print the open card
  comments | form | list      toggle a panel
  hover                       open the reaction picker
  leave <panel>               close a panel (comments, reaction-form, reaction-list)
  comment <text>              post a comment
  react <type>                react with LIKE, LOVE, WOW or ANGRY
  share                       copy a link to the activity
  refresh                     refetch what the visible panel shows
  new <title> | <description> create an activity
  edit <title> | <description>
  delete                      delete the open activity
  quit`

type repl struct {
	feed session
	user string
	in   io.Reader
	out  io.Writer

	// activity is the id of the open card, if any.
	activity string
}

// run reads commands until EOF, quit or ctx is done.
func (r *repl) run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		sc := bufio.NewScanner(r.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		scanErr <- sc.Err()
		close(lines)
	}()

	accent.Fprintf(r.out, "Signed in as %s. Type help for commands.\n", r.user)
	for {
		fmt.Fprint(r.out, r.prompt())
		select {
		case <-ctx.Done():
			fmt.Fprintln(r.out)
			return nil
		case line, ok := <-lines:
			if !ok {
				fmt.Fprintln(r.out)
				return <-scanErr
			}
			err := r.exec(ctx, line)
			if errors.Is(err, errQuit) {
				return nil
			}
			if err != nil {
				bad.Fprintf(r.out, "Error: %v\n", err)
			}
		}
	}
}

func (r *repl) prompt() string {
	if r.activity == "" {
		return "feed> "
	}
	return fmt.Sprintf("feed:%s> ", r.activity)
}

// exec runs one command line.
func (r *repl) exec(ctx context.Context, line string) error {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "":
		return nil
	case "help", "?":
		fmt.Fprintln(r.out, helpText)
		return nil
	case "quit", "exit", "q":
		return errQuit
	case "ls":
		return r.list(ctx)
	case "open":
		if arg == "" {
			return errors.New("usage: open <id>")
		}
		r.activity = arg
		r.render(r.feed.View(ctx, r.user, r.activity))
		return nil
	case "new":
		title, desc, err := splitFields(arg)
		if err != nil {
			return err
		}
		a, err := r.feed.CreateActivity(ctx, feed.NewActivity{Title: title, Description: desc, UserID: r.user}, nil)
		if err != nil {
			return err
		}
		good.Fprintf(r.out, "Created activity %s\n", a.ID)
		return nil
	}

	if r.activity == "" {
		return errors.New("no card open, use open <id>")
	}

	switch cmd {
	case "show":
		r.render(r.feed.View(ctx, r.user, r.activity))
	case "comments":
		return r.panel(ctx, feed.PanelComments, feed.ActionToggle)
	case "form":
		return r.panel(ctx, feed.PanelReactionForm, feed.ActionToggle)
	case "list":
		return r.panel(ctx, feed.PanelReactionList, feed.ActionToggle)
	case "hover":
		return r.panel(ctx, feed.PanelReactionForm, feed.ActionOpen)
	case "leave":
		p, err := feed.ParsePanel(arg)
		if err != nil {
			return err
		}
		return r.panel(ctx, p, feed.ActionClose)
	case "comment":
		if _, err := r.feed.SubmitComment(ctx, r.user, r.activity, arg); err != nil {
			return err
		}
		r.render(r.feed.View(ctx, r.user, r.activity))
	case "react":
		t, err := feed.ParseReactionType(arg)
		if err != nil {
			return err
		}
		outcome, err := r.feed.SubmitReaction(ctx, r.user, r.activity, t)
		if err != nil {
			return err
		}
		good.Fprintf(r.out, "Reaction %s\n", outcome)
		r.render(r.feed.View(ctx, r.user, r.activity))
	case "share":
		res, err := r.feed.Share(ctx, r.user, r.activity)
		if err != nil {
			return err
		}
		fmt.Fprintln(r.out, res.URL)
		if res.Notice != nil {
			good.Fprintln(r.out, res.Notice.Message)
		}
	case "refresh":
		v, err := r.feed.Refresh(ctx, r.user, r.activity)
		r.render(v)
		return err
	case "edit":
		title, desc, err := splitFields(arg)
		if err != nil {
			return err
		}
		if err := r.feed.UpdateActivity(ctx, feed.ActivityEdit{ID: r.activity, Title: title, Description: desc}); err != nil {
			return err
		}
		r.render(r.feed.View(ctx, r.user, r.activity))
	case "delete":
		if err := r.feed.DeleteActivity(ctx, r.activity); err != nil {
			return err
		}
		good.Fprintf(r.out, "Deleted activity %s\n", r.activity)
		r.activity = ""
	default:
		return fmt.Errorf("unknown command %q, type help for commands", cmd)
	}
	return nil
}

func splitFields(arg string) (string, string, error) {
	title, desc, ok := strings.Cut(arg, "|")
	if !ok {
		return "", "", errors.New("usage: <title> | <description>")
	}
	return strings.TrimSpace(title), strings.TrimSpace(desc), nil
}

func (r *repl) list(ctx context.Context) error {
	acts, err := r.feed.Activities(ctx)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		faint.Fprintln(r.out, "No activities")
		return nil
	}
	for _, a := range acts {
		fmt.Fprintf(r.out, "%s  %s %s\n", accent.Sprint(a.ID), bold.Sprint(a.Title), faint.Sprintf("by %s", a.UserID))
	}
	return nil
}

func (r *repl) panel(ctx context.Context, p feed.Panel, action feed.PanelAction) error {
	v, err := r.feed.Panel(ctx, r.user, r.activity, p, action)
	if err != nil {
		return err
	}
	r.render(v)
	return nil
}

// render prints a card view.
func (r *repl) render(v feed.CardView) {
	w := r.out
	switch st := v.Status.Activity; st.State {
	case feed.StateLoading:
		faint.Fprintln(w, "Loading...")
		return
	case feed.StateError:
		bad.Fprintf(w, "Error: %s\n", st.Error)
		return
	}

	a := v.Activity
	if a == nil {
		return
	}
	bold.Fprintln(w, a.Title)
	faint.Fprintf(w, "by %s on %s\n", a.UserID, a.CreatedAt.Format("Jan 2, 2006 15:04"))
	fmt.Fprintln(w, a.Description)
	for _, u := range append(append([]string{}, a.ImgURLs...), a.Files...) {
		faint.Fprintf(w, "  %s\n", u)
	}

	reacted := ""
	if v.ViewerReaction != "" {
		reacted = good.Sprintf(" (you: %s)", v.ViewerReaction)
	}
	fmt.Fprintf(w, "%d comments  %d reactions%s  %d shares\n",
		v.Counters.Comments, v.Counters.Reactions, reacted, v.Counters.Shares)

	switch v.Panel {
	case feed.PanelComments:
		r.renderList(v.Status.Comments, "No comments yet", lo.Map(v.Comments, func(c feed.Comment, _ int) string {
			return fmt.Sprintf("%s %s", accent.Sprint(c.UserID+":"), c.Content)
		}))
	case feed.PanelReactionForm:
		fmt.Fprintf(w, "React with: %s\n", strings.Join(lo.Map(feed.ReactionTypes, func(t feed.ReactionType, _ int) string {
			if t == v.ViewerReaction {
				return good.Sprint(string(t))
			}
			return string(t)
		}), " "))
	case feed.PanelReactionList:
		summary := lo.Map(v.ReactionSummary, func(c feed.ReactionCount, _ int) string {
			return fmt.Sprintf("%s %d", c.Type, c.Count)
		})
		if len(summary) > 0 {
			fmt.Fprintln(w, strings.Join(summary, "  "))
		}
		r.renderList(v.Status.Reactions, "No reactions yet", lo.Map(v.Reactions, func(rc feed.Reaction, _ int) string {
			return fmt.Sprintf("%s %s", accent.Sprint(rc.UserID+":"), rc.Type)
		}))
	}

	if v.Notice != nil {
		good.Fprintln(w, v.Notice.Message)
	}
}

func (r *repl) renderList(q feed.Query, empty string, lines []string) {
	switch {
	case q.State == feed.StateLoading:
		faint.Fprintln(r.out, "  Loading...")
	case q.State == feed.StateError:
		bad.Fprintf(r.out, "  Error: %s\n", q.Error)
	case len(lines) == 0:
		faint.Fprintf(r.out, "  %s\n", empty)
	default:
		for _, l := range lines {
			fmt.Fprintf(r.out, "  %s\n", l)
		}
	}
}
