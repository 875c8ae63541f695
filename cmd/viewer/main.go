// Command viewer opens one dashboard list view from the terminal: it fetches,
// filters and prints the rows, and can delete a record after confirmation.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"

	"github.com/example/shopdash/gateway"
	"github.com/example/shopdash/pkg/backend"
	"github.com/example/shopdash/pkg/config"
	"github.com/example/shopdash/pkg/filter"
	"github.com/example/shopdash/pkg/listview"
	"github.com/example/shopdash/pkg/logger"
	"github.com/example/shopdash/pkg/notify"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		view       = flag.String("view", listview.UserOrders, "view to open, one of: "+strings.Join(listview.Names(), ", "))
		token      = flag.String("token", os.Getenv("SHOPDASH_TOKEN"), "storefront bearer token")
		term       = flag.String("q", "", "search term")
		from       = flag.String("from", "", "only rows on or after this YYYY-MM-DD date")
		remove     = flag.String("delete", "", "id of a record to delete")
	)
	flag.Parse()

	if err := run(*configPath, *view, *token, *term, *from, *remove); err != nil {
		fmt.Fprintln(os.Stderr, "viewer:", err)
		os.Exit(1)
	}
}

func run(configPath, view, token, term, from, remove string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	cfg.Log.OutputPaths = []string{"stderr"}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return err
	}
	defer log.Sync()

	if token == "" {
		return errors.New("a token is required (-token or SHOPDASH_TOKEN)")
	}
	claims, err := gateway.ParseClaims(token, cfg.Gateway.JWTSecret)
	if err != nil {
		return err
	}
	loc := cfg.Views.Location()
	minDate, err := filter.ParseDate(from, loc)
	if err != nil {
		return fmt.Errorf("bad -from: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	system := actor.NewActorSystem()
	defer system.Shutdown()

	toasts, err := notify.NewDispatcher(system, log, notify.NotifierFunc(func(_ context.Context, t notify.Toast) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", t.Level, t.Message)
	}))
	if err != nil {
		return err
	}
	defer toasts.Stop()

	opts := listview.DefaultOptions("cli", loc, 0, cfg.Views.StaleOnFail)
	opts.Notifier = toasts
	opts.Logger = log

	client := backend.New(cfg.Backend, backend.WithLogger(log), backend.WithTokenSource(backend.StaticToken(token)))
	p := listview.Principal{UserID: claims.UserID, Role: claims.DashboardRole(), ShopID: claims.ShopID}
	store := listview.NewStore(client, p, opts, listview.Spawner(system, log, cfg.Backend.Timeout))
	defer store.CloseAll()

	v, err := store.Open(ctx, view)
	if v == nil {
		return err
	}
	if err != nil {
		log.Warn("Initial fetch failed", zap.String("view", view), zap.Error(err))
	}

	if remove != "" {
		// answered before the delete is queued, so a slow reply cannot run
		// into the command's deadline
		prompt, err := v.DeletePrompt(remove)
		if err != nil {
			return err
		}
		ok, err := ask(os.Stdin, os.Stderr, prompt)
		if err != nil {
			return err
		}
		if err := v.Delete(ctx, remove, listview.Answer(ok)); err != nil && !errors.Is(err, listview.ErrDeclined) {
			return err
		}
	}

	snap, err := v.Query(ctx, &filter.Criteria{Term: term, MinDate: minDate})
	if err != nil {
		return err
	}
	return printSnapshot(os.Stdout, snap)
}

func ask(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N] ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	}
	return false, nil
}

// printSnapshot prints rows as a table, id first and the other columns in
// name order.
func printSnapshot(w io.Writer, snap listview.Snapshot) error {
	data, err := json.Marshal(snap.Rows)
	if err != nil {
		return err
	}
	var rows []map[string]any
	if err := json.Unmarshal(data, &rows); err != nil {
		return err
	}

	fmt.Fprintf(w, "%s: %d of %d (%s)\n", snap.View, snap.Count, snap.Total, snap.State)
	if snap.Error != "" {
		fmt.Fprintln(w, "error:", snap.Error)
	}
	if len(rows) == 0 {
		return nil
	}

	cols := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		if k != "id" {
			cols = append(cols, k)
		}
	}
	sort.Strings(cols)
	cols = append([]string{"id"}, cols...)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(cols, "\t")))
	for _, r := range rows {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		parts := make([]string, len(x))
		for i, p := range x {
			parts[i] = cell(p)
		}
		return strings.Join(parts, ",")
	}
	return fmt.Sprint(v)
}
