package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/SeanMdegy2025/gotzwebapp-sub000/pkg/client"
)

const defaultURL = "http://localhost:8080"

// MsgSessionExpired is printed when the server rejects the stored token.
const MsgSessionExpired = "session expired, run safarictl login"

// app carries the flags and streams shared by every command.
type app struct {
	in     *bufio.Reader
	out    io.Writer
	errOut io.Writer

	baseURL   string
	tokenFile string
	yes       bool
	email     string

	// tokens is set by tests; otherwise a FileStore on tokenFile.
	tokens client.TokenStore
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{in: bufio.NewReader(in), out: out, errOut: errOut}
}

func (a *app) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "safarictl",
		Short:         "Manage safari site content from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.baseURL, "url", "", "API base URL")
	root.PersistentFlags().StringVar(&a.tokenFile, "token-file", "", "where the admin token is kept")

	login := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the token",
		Args:  cobra.NoArgs,
		RunE:  a.login,
	}
	login.Flags().StringVar(&a.email, "email", "", "account email")
	_ = login.MarkFlagRequired("email")

	del := &cobra.Command{
		Use:   "delete <entity> <id>",
		Short: "Delete a record, then show the remaining list",
		Args:  cobra.ExactArgs(2),
		RunE:  a.remove,
	}
	del.Flags().BoolVarP(&a.yes, "yes", "y", false, "skip the confirmation prompt")

	root.AddCommand(
		login,
		&cobra.Command{Use: "logout", Short: "Revoke the stored token", Args: cobra.NoArgs, RunE: a.logout},
		&cobra.Command{Use: "whoami", Short: "Show the signed-in user", Args: cobra.NoArgs, RunE: a.whoami},
		&cobra.Command{Use: "list <entity>", Short: "List records", Args: cobra.ExactArgs(1), RunE: a.list},
		&cobra.Command{Use: "get <entity> <id>", Short: "Show one record", Args: cobra.ExactArgs(2), RunE: a.get},
		&cobra.Command{
			Use:   "create <entity> key=value...",
			Short: "Create a record",
			Args:  cobra.MinimumNArgs(2),
			RunE:  a.create,
		},
		&cobra.Command{
			Use:   "edit <entity> <id> key=value...",
			Short: "Change fields of a record",
			Args:  cobra.MinimumNArgs(3),
			RunE:  a.edit,
		},
		del,
	)
	return root
}

/*──────────────────────────── plumbing ────────────────────────────────────*/

func (a *app) admin() (*client.Admin, error) {
	tokens := a.tokens
	if tokens == nil {
		path := a.tokenFile
		if path == "" {
			p, err := client.DefaultTokenPath()
			if err != nil {
				return nil, err
			}
			path = p
		}
		tokens = client.NewFileStore(path)
	}
	adm := client.NewAdmin(resolveURL(a.baseURL, os.Getenv), tokens)
	adm.OnUnauthorized = func() { fmt.Fprintln(a.errOut, MsgSessionExpired) }
	return adm, nil
}

// resolveURL picks the API base URL.
func resolveURL(flag string, getenv func(string) string) string {
	if flag != "" {
		return flag
	}
	for _, k := range []string{"SAFARI_API_URL", "NEXT_PUBLIC_APP_URL"} {
		if v := getenv(k); v != "" {
			return v
		}
	}
	if v := getenv("VERCEL_URL"); v != "" {
		return "https://" + strings.TrimPrefix(v, "https://")
	}
	return defaultURL
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func (a *app) status(msg string) { fmt.Fprintln(a.errOut, msg) }

/*──────────────────────────── commands ────────────────────────────────────*/

func (a *app) login(cmd *cobra.Command, _ []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	password := os.Getenv("SAFARI_PASSWORD")
	if password == "" {
		fmt.Fprint(a.errOut, "Password: ")
		line, err := a.in.ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return err
		}
		password = strings.TrimRight(line, "\r\n")
	}

	s, err := adm.Login(cmd.Context(), a.email, password)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Signed in as %s (%s).\n", s.User.Email, s.User.Role)
	return nil
}

func (a *app) logout(cmd *cobra.Command, _ []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	if err := adm.Logout(cmd.Context()); err != nil && !errors.Is(err, client.ErrUnauthorized) {
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

func (a *app) whoami(cmd *cobra.Command, _ []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	u, err := adm.Me(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> %s\n", u.Name, u.Email, u.Role)
	return nil
}

func (a *app) list(cmd *cobra.Command, args []string) error {
	adm, err := a.admin()
	if err != nil {
		return err
	}
	return a.printList(cmd.Context(), adm, args[0])
}

// printList is the list page: loading, then loaded or empty.
func (a *app) printList(ctx context.Context, adm *client.Admin, entity string) error {
	a.status("Loading...")
	recs, err := adm.List(ctx, entity)
	if err != nil {
		return err
	}
	if len(recs) == 0 {
		fmt.Fprintln(a.out, "No records.")
		return nil
	}

	tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tORDER\tVISIBLE")
	for _, r := range recs {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", r.ID(), summary(r), cell(r["display_order"]), visible(r))
	}
	return tw.Flush()
}

func (a *app) get(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	adm, err := a.admin()
	if err != nil {
		return err
	}
	rec, err := adm.Get(cmd.Context(), args[0], id)
	if err != nil {
		return notFound(err)
	}
	return a.printRecord(rec)
}

func (a *app) create(cmd *cobra.Command, args []string) error {
	fields, err := parseFields(args[1:], os.ReadFile)
	if err != nil {
		return err
	}
	adm, err := a.admin()
	if err != nil {
		return err
	}

	a.status("Saving...")
	rec, err := adm.Create(cmd.Context(), args[0], fields)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Created.")
	return a.printRecord(rec)
}

// edit loads the record, overlays the changes, and submits the whole
// object back.
func (a *app) edit(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	changes, err := parseFields(args[2:], os.ReadFile)
	if err != nil {
		return err
	}
	adm, err := a.admin()
	if err != nil {
		return err
	}

	a.status("Loading...")
	rec, err := adm.Get(cmd.Context(), args[0], id)
	if err != nil {
		return notFound(err)
	}
	for k, v := range changes {
		rec[k] = v
	}

	a.status("Saving...")
	saved, err := adm.Update(cmd.Context(), args[0], id, rec)
	if err != nil {
		return notFound(err)
	}
	fmt.Fprintln(a.out, "Saved.")
	return a.printRecord(saved)
}

func (a *app) remove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[1])
	if err != nil {
		return err
	}
	adm, err := a.admin()
	if err != nil {
		return err
	}

	if !a.yes {
		fmt.Fprintf(a.errOut, "Delete %s #%d? [y/N] ", args[0], id)
		line, _ := a.in.ReadString('\n')
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "y", "yes":
		default:
			fmt.Fprintln(a.out, "Cancelled.")
			return nil
		}
	}

	msg, err := adm.Delete(cmd.Context(), args[0], id)
	if err != nil {
		return notFound(err)
	}
	fmt.Fprintln(a.out, msg)
	return a.printList(cmd.Context(), adm, args[0])
}

/*──────────────────────────── output ──────────────────────────────────────*/

// summaryKeys are tried in order for the NAME column.
var summaryKeys = []string{"title", "name", "full_name", "label", "value", "subject", "email"}

func summary(r client.Record) string {
	for _, k := range summaryKeys {
		if s, ok := r[k].(string); ok && s != "" {
			if rs := []rune(s); len(rs) > 48 {
				s = string(rs[:45]) + "..."
			}
			return s
		}
	}
	return "-"
}

func visible(r client.Record) string {
	if v, ok := r["is_active"].(bool); ok {
		return strconv.FormatBool(v)
	}
	if _, ok := r["published_at"]; ok {
		return strconv.FormatBool(r["published_at"] != nil)
	}
	return "-"
}

func cell(v any) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprint(v)
}

// printRecord writes rec as YAML with long image payloads shortened.
func (a *app) printRecord(rec client.Record) error {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if s, ok := v.(string); ok && strings.HasPrefix(s, "data:") && len(s) > 64 {
			head, _, _ := strings.Cut(s, ",")
			v = fmt.Sprintf("%s,... (%d chars)", head, len(s))
		}
		out[k] = v
	}
	enc := yaml.NewEncoder(a.out)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return err
	}
	return enc.Close()
}

func notFound(err error) error {
	var se *client.StatusError
	if errors.As(err, &se) && se.Status == http.StatusNotFound {
		return errors.New("Not found.")
	}
	return err
}
