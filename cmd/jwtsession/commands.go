package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jrsteele09/go-jwt-session/app"
	"github.com/jrsteele09/go-jwt-session/forms"
	"github.com/jrsteele09/go-jwt-session/token"
	"github.com/jrsteele09/go-jwt-session/tokenstore"
)

// maxBody caps how much of a response fetch prints.
const maxBody = 1 << 20

type cli struct {
	app      *app.App
	prompter *terminalPrompter
	out      io.Writer
	errOut   io.Writer
}

func (c *cli) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.errOut)
	return fs
}

func (c *cli) login(ctx context.Context, args []string) error {
	fs := c.flagSet("login")
	remember := fs.Bool("remember", false, "keep the session in the durable store")
	username := fs.String("username", "", "username (prompted when empty)")
	merchant := fs.String("merchant", "", "merchant ID (configured default when empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c.prompter.username = *username
	c.prompter.merchant = *merchant
	creds, err := c.prompter.ask()
	if err != nil {
		return err
	}

	result := c.app.Session.Login(ctx, creds.Username, creds.Password, creds.MerchantID, *remember)
	if !result.Success {
		return fmt.Errorf("login failed: %s", result.Message)
	}

	fmt.Fprintf(c.out, "Logged in as %s (%s storage)\n", creds.Username, tokenstore.TierFor(*remember))
	if !*remember {
		fmt.Fprintln(c.out, "Session ends when this process exits; use -remember to keep it.")
	}
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if !c.app.Session.IsAuthenticated() {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}
	if err := c.app.Session.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Logged out.")
	return nil
}

func (c *cli) status(ctx context.Context) error {
	m := c.app.Session
	if !m.IsAuthenticated() {
		fmt.Fprintln(c.out, "Not logged in.")
		return nil
	}

	fmt.Fprintln(c.out, "Authenticated: yes")
	fmt.Fprintf(c.out, "Storage:       %s\n", m.Tier())
	if exp, err := token.DecodeExpiry(m.AccessToken()); err == nil {
		fmt.Fprintf(c.out, "Expires:       %s (%s)\n", exp.Local().Format(time.RFC1123), time.Until(exp).Round(time.Second))
	} else {
		fmt.Fprintf(c.out, "Expires:       unknown (%v)\n", err)
	}
	fmt.Fprintf(c.out, "Refresh token: %t\n", m.StoredRefreshToken(ctx) != "")
	fmt.Fprintf(c.out, "Refresh:       %s", m.RefreshState())
	if next := m.NextRefresh(); !next.IsZero() {
		fmt.Fprintf(c.out, " at %s", next.Local().Format(time.Kitchen))
	}
	fmt.Fprintln(c.out)
	return nil
}

func (c *cli) fetch(ctx context.Context, args []string) error {
	fs := c.flagSet("fetch")
	method := fs.String("method", http.MethodGet, "HTTP method")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("fetch needs exactly one path or URL")
	}
	target := fs.Arg(0)

	status, body, err := c.doFetch(ctx, *method, target)
	if err != nil {
		return err
	}

	// A protected page that refused us: prompt, then retry once.
	if u, err := c.app.Client.Resolve(target); err == nil && c.app.Session.ShouldPromptLogin(u.Path, body) {
		c.app.Session.RequireAuth(ctx)
		if c.app.Session.IsAuthenticated() {
			status, body, err = c.doFetch(ctx, *method, target)
			if err != nil {
				return err
			}
		}
	}

	fmt.Fprintf(c.out, "%d %s\n%s\n", status, http.StatusText(status), body)
	return nil
}

func (c *cli) doFetch(ctx context.Context, method, target string) (int, string, error) {
	resp, err := c.app.Client.Fetch(ctx, method, target, nil)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, string(body), nil
}

func (c *cli) forms(ctx context.Context, args []string) error {
	fs := c.flagSet("forms")
	submit := fs.String("submit", "", "id of a form to submit through the session")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("forms needs exactly one HTML file")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	doc, err := forms.Parse(f)
	if err != nil {
		return err
	}
	syncer := c.app.AttachDocument(doc)

	if *submit == "" {
		fmt.Fprintf(c.errOut, "Wired %d form(s)\n", syncer.Tracked())
		return doc.Render(c.out)
	}

	form := doc.FindForm(*submit)
	if form == nil {
		return fmt.Errorf("no form with id %q", *submit)
	}
	values, err := syncer.Submit(form)
	if err != nil {
		return err
	}

	action := forms.Action(form)
	resp, err := c.app.Client.PostForm(ctx, action, values)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%d %s\n%s\n", resp.StatusCode, http.StatusText(resp.StatusCode), body)
	return nil
}
