package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/inventory-mgmt/invctl/resources"
	"github.com/spf13/pflag"
)

type command struct {
	name    string
	usage   string
	summary string
	run     func(ctx context.Context, a *app, args []string) error
}

var commands = []command{
	{"login", "login --username NAME [--password PASS]", "exchange credentials for a session", runLogin},
	{"logout", "logout", "clear the stored session", runLogout},
	{"status", "status", "show the stored session", runStatus},
	{"list", "list RESOURCE [--search TEXT]", "list a collection", runList},
	{"get", "get RESOURCE ID", "fetch one item", runGet},
	{"create", "create RESOURCE --data JSON", "create an item", runCreate},
}

func findCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func runLogin(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("login", pflag.ContinueOnError)
	username := fs.StringP("username", "u", "", "account username")
	password := fs.StringP("password", "p", "", "account password (default: $INVCTL_PASSWORD, then stdin)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("--username is required")
	}
	if *password == "" {
		*password = os.Getenv("INVCTL_PASSWORD")
	}
	if *password == "" {
		line, err := readLine(os.Stdin)
		if err != nil {
			return err
		}
		*password = line
	}

	user, err := a.store.Login(ctx, *username, *password)
	if err != nil {
		return err
	}
	displayAppname(a.cfg.GetAppName())
	fmt.Printf("Logged in as %s\n", user.Username)
	return nil
}

func runLogout(ctx context.Context, a *app, _ []string) error {
	a.store.Logout(ctx)
	fmt.Println("Logged out")
	return nil
}

func runStatus(_ context.Context, a *app, _ []string) error {
	user := a.store.State().AuthUser
	if !user.LoggedIn {
		fmt.Println("Not logged in")
		return nil
	}
	fmt.Printf("Logged in as %s\n", user.Username)
	if exp := user.AccessExpiry(); !exp.IsZero() {
		fmt.Printf("Access token expires %s\n", exp.Local().Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runList(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("list", pflag.ContinueOnError)
	search := fs.StringP("search", "s", "", "filter by text")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := rawService(a, fs.Args())
	if err != nil {
		return err
	}

	var items []map[string]any
	if *search != "" {
		items, err = svc.Search(ctx, *search)
	} else {
		items, err = svc.List(ctx)
	}
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, items)
}

func runGet(ctx context.Context, a *app, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: get RESOURCE ID")
	}
	svc, err := rawService(a, args[:1])
	if err != nil {
		return err
	}
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("invalid id %q", args[1])
	}
	item, err := svc.Get(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, item)
}

func runCreate(ctx context.Context, a *app, args []string) error {
	fs := pflag.NewFlagSet("create", pflag.ContinueOnError)
	data := fs.StringP("data", "d", "", "item as a JSON object, - for stdin")
	if err := fs.Parse(args); err != nil {
		return err
	}
	svc, err := rawService(a, fs.Args())
	if err != nil {
		return err
	}

	raw := []byte(*data)
	if *data == "-" {
		if raw, err = io.ReadAll(os.Stdin); err != nil {
			return err
		}
	}
	item := map[string]any{}
	if err := json.Unmarshal(raw, &item); err != nil {
		return fmt.Errorf("--data: %w", err)
	}

	created, err := svc.Create(ctx, item)
	if err != nil {
		return err
	}
	return printJSON(os.Stdout, created)
}

func rawService(a *app, args []string) (*resources.Service[map[string]any], error) {
	if len(args) != 1 {
		return nil, fmt.Errorf("expected one resource, one of: %s", strings.Join(resources.Names(), ", "))
	}
	return resources.Raw(a.client, args[0])
}

func readLine(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
