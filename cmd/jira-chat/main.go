package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/fang"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/petr-muller/jira-chat/internal/auth"
	"github.com/petr-muller/jira-chat/internal/chat"
	"github.com/petr-muller/jira-chat/internal/chat/ui"
	"github.com/petr-muller/jira-chat/internal/jira"
)

const tokenEnvVar = "JIRA_API_TOKEN"

var (
	loginDomain    string
	loginEmail     string
	loginToken     string
	loginTokenFile string
	chatProject    string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "jira-chat",
		Short: "A conversational view of a Jira project",
		Long: `jira-chat turns a Jira project's issues, comments and attachments into one
chronologically ordered conversational feed, and lets you reply to any
message as an issue comment.

Log in once with an API token; the session is stored locally and reused.`,
	}

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newProjectsCmd(),
		newChatCmd(),
	)

	if err := fang.Execute(context.Background(), rootCmd); err != nil {
		logrus.WithError(err).Fatal("command failed")
	}
}

func addLoginFlags(fs *pflag.FlagSet) {
	fs.StringVar(&loginDomain, "domain", "", "Tracker domain, e.g. example.atlassian.net")
	fs.StringVar(&loginEmail, "email", "", "Account email")
	fs.StringVar(&loginToken, "token", "", "API token (falls back to the "+tokenEnvVar+" environment variable)")
	fs.StringVar(&loginTokenFile, "token-file", "", "Path to a file containing the API token")
}

func newLoginCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the tracker and store the session",
		Long: `Validate the given credentials against the tracker and store the resulting
session locally. The credentials are checked by fetching the authenticated
user's identity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context())
		},
	}

	addLoginFlags(cmd.Flags())

	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Destroy the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogout()
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the stored identity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWhoami()
		},
	}
}

func newProjectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects visible to the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProjects(cmd.Context())
		},
	}
}

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the chat feed",
		Long: `Open the conversational feed for one project. The feed refreshes
periodically while the screen is open; replies are posted as issue comments.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat()
		},
	}

	cmd.Flags().StringVarP(&chatProject, "project", "p", chat.DefaultProject, "Project key to build the feed from")

	return cmd
}

func resolveToken() (string, error) {
	if loginToken != "" {
		return loginToken, nil
	}

	if loginTokenFile != "" {
		data, err := os.ReadFile(loginTokenFile)
		if err != nil {
			return "", fmt.Errorf("cannot read token file: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}

	if token := os.Getenv(tokenEnvVar); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("no API token given: use --token, --token-file or %s", tokenEnvVar)
}

func runLogin(ctx context.Context) error {
	if loginDomain == "" {
		return fmt.Errorf("--domain must be specified and nonempty")
	}
	if loginEmail == "" {
		return fmt.Errorf("--email must be specified and nonempty")
	}

	token, err := resolveToken()
	if err != nil {
		return err
	}

	creds := auth.Credentials{
		Domain:   loginDomain,
		Email:    loginEmail,
		APIToken: token,
	}

	client, err := jira.NewClient(auth.Session{Domain: creds.Domain, Email: creds.Email, APIToken: creds.APIToken})
	if err != nil {
		return fmt.Errorf("cannot create tracker client: %w", err)
	}

	me, err := client.Myself(ctx)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}

	session := auth.SessionFromMyself(creds, me)
	if err := auth.DefaultStore().Save(session); err != nil {
		return fmt.Errorf("cannot store session: %w", err)
	}

	fmt.Printf("Logged in as %s (%s)\n", session.DisplayName, session.AccountEmail)
	return nil
}

func runLogout() error {
	if err := auth.DefaultStore().Clear(); err != nil {
		return fmt.Errorf("cannot clear session: %w", err)
	}

	fmt.Println("Logged out")
	return nil
}

func readSession() (*auth.Session, error) {
	session, err := auth.DefaultStore().Read()
	if err != nil {
		return nil, fmt.Errorf("cannot read session: %w", err)
	}
	if session == nil {
		return nil, fmt.Errorf("not logged in: run 'jira-chat login' first")
	}

	return session, nil
}

func runWhoami() error {
	session, err := readSession()
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", session.DisplayName, session.AccountEmail)
	fmt.Printf("  domain:  %s\n", jira.NormalizeDomain(session.Domain))
	if session.AccountRef != "" {
		fmt.Printf("  account: %s\n", session.AccountRef)
	}

	return nil
}

func runProjects(ctx context.Context) error {
	session, err := readSession()
	if err != nil {
		return err
	}

	client, err := jira.NewClient(*session)
	if err != nil {
		return fmt.Errorf("cannot create tracker client: %w", err)
	}

	projects, err := client.ListProjects(ctx, 100)
	if err != nil {
		return fmt.Errorf("cannot list projects: %w", err)
	}

	if len(projects) == 0 {
		fmt.Println("No projects visible")
		return nil
	}

	for _, project := range projects {
		fmt.Printf("  %s - %s", project.Key, project.Name)
		if project.TypeKey != "" {
			fmt.Printf(" (%s)", project.TypeKey)
		}
		fmt.Println()
	}

	return nil
}

func runChat() error {
	session, err := readSession()
	if err != nil {
		return err
	}

	client, err := jira.NewClient(*session)
	if err != nil {
		return fmt.Errorf("cannot create tracker client: %w", err)
	}

	engine := chat.NewEngine(
		chat.NewFeed(client, chatProject),
		chat.NewSubmitter(client),
		chat.WithLogger(logrus.WithField("component", "engine")),
	)
	defer engine.Close()

	model := ui.NewModel(engine, chatProject)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("cannot run TUI: %w", err)
	}

	return nil
}
