package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-jwt-session/session"
	"golang.org/x/term"
)

// credentials is what the prompter collects.
type credentials struct {
	Username   string
	Password   string
	MerchantID string
}

// terminalPrompter asks for credentials on the terminal. Passwords are read
// without echo when in is a terminal.
type terminalPrompter struct {
	in       *bufio.Reader
	out      io.Writer
	file     *os.File
	remember bool
	username string
	merchant string
}

func newTerminalPrompter(in io.Reader, out io.Writer) *terminalPrompter {
	p := &terminalPrompter{in: bufio.NewReader(in), out: out}
	if f, ok := in.(*os.File); ok {
		p.file = f
	}
	return p
}

func (p *terminalPrompter) ask() (credentials, error) {
	c := credentials{Username: p.username, MerchantID: p.merchant}

	if c.Username == "" {
		fmt.Fprint(p.out, "Username: ")
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return c, fmt.Errorf("read username: %w", err)
		}
		c.Username = strings.TrimSpace(line)
	}

	fmt.Fprint(p.out, "Password: ")
	if p.file != nil && term.IsTerminal(int(p.file.Fd())) {
		raw, err := term.ReadPassword(int(p.file.Fd()))
		fmt.Fprintln(p.out)
		if err != nil {
			return c, fmt.Errorf("read password: %w", err)
		}
		c.Password = string(raw)
	} else {
		line, err := p.in.ReadString('\n')
		if err != nil && line == "" {
			return c, fmt.Errorf("read password: %w", err)
		}
		c.Password = strings.TrimRight(line, "\r\n")
	}
	return c, nil
}

// PromptLogin implements session.Prompter.
func (p *terminalPrompter) PromptLogin(ctx context.Context, m *session.Manager) {
	fmt.Fprintln(p.out, "Login required.")
	c, err := p.ask()
	if err != nil {
		fmt.Fprintln(p.out, err)
		return
	}
	result := m.Login(ctx, c.Username, c.Password, c.MerchantID, p.remember)
	if !result.Success {
		fmt.Fprintf(p.out, "Login failed: %s\n", result.Message)
		return
	}
	fmt.Fprintln(p.out, "Logged in.")
}
