// studentsctl is the command-line client of the students API. It talks
// to the same /api/students resource as the console and prints the
// results as a table followed by the console's statistics.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/docopt/docopt-go"

	"github.com/aanand-mishra/students-console/internal/client"
	"github.com/aanand-mishra/students-console/internal/logging"
	"github.com/aanand-mishra/students-console/internal/types"
	"github.com/aanand-mishra/students-console/internal/ui/i18n"
	"github.com/aanand-mishra/students-console/internal/ui/render"
)

const version = "1.1.0"

const usage = `Students control.

The api url defaults to $STUDENTS_API_URL, then http://localhost:8082.

Usage:
    studentsctl list [options]
    studentsctl search [options] <query>
    studentsctl filter [options] [--min=<age>] [--max=<age>]
    studentsctl show [options] <id>
    studentsctl create [options] --name=<name> --email=<email> --age=<age>
        [--address=<address>]
    studentsctl update [options] <id> --name=<name> --email=<email> --age=<age>
        [--address=<address>]
    studentsctl delete [options] <id>

Options:
    -h --help             Show this screen.
    --version             Show version.
    --api_url=<url>       Base url of the students API.
    --timeout=<duration>  Request timeout [default: 10s].
    --locale=<lang>       Message and month language [default: en].
    --verbose             Log every request to stderr.
    --name=<name>
    --email=<email>
    --age=<age>
    --address=<address>
    --min=<age>           Lowest age, inclusive.
    --max=<age>           Highest age, inclusive.`

func main() {
	opts, err := docopt.ParseArgs(usage, os.Args[1:], version)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	if err := run(context.Background(), opts, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts docopt.Opts, out io.Writer) error {
	timeout := 10 * time.Second
	if raw, _ := opts.String("--timeout"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid --timeout: %w", err)
		}
		timeout = d
	}

	logger := logging.Discard()
	if verbose, _ := opts.Bool("--verbose"); verbose {
		logger = logging.New("dev", os.Stderr)
	}

	bundle, err := i18n.Load(logger)
	if err != nil {
		return err
	}
	locale, _ := opts.String("--locale")

	cmd := &command{
		api:   client.New(apiURL(opts), timeout, logger),
		l:     bundle.Localizer(locale),
		out:   out,
		dates: render.NewDateFormatter(time.Local, bundle.Localizer(locale)),
	}

	switch {
	case flag(opts, "list"):
		return cmd.list(ctx)
	case flag(opts, "search"):
		query, _ := opts.String("<query>")
		return cmd.search(ctx, query)
	case flag(opts, "filter"):
		return cmd.filter(ctx, opts)
	case flag(opts, "show"):
		return cmd.show(ctx, opts)
	case flag(opts, "create"):
		return cmd.create(ctx, opts)
	case flag(opts, "update"):
		return cmd.update(ctx, opts)
	case flag(opts, "delete"):
		return cmd.delete(ctx, opts)
	}
	return nil
}

type command struct {
	api   *client.Client
	l     i18n.Localizer
	out   io.Writer
	dates render.DateFormatter
}

func (c *command) list(ctx context.Context) error {
	students, err := c.api.List(ctx)
	if err != nil {
		return fmt.Errorf("%s", c.l.Tf("msg.load_failed", err))
	}
	return c.table(students, false)
}

func (c *command) search(ctx context.Context, query string) error {
	students, err := c.api.Search(ctx, query)
	if err != nil {
		return fmt.Errorf("%s", c.l.Tf("msg.search_failed", err))
	}
	return c.table(students, true)
}

func (c *command) filter(ctx context.Context, opts docopt.Opts) error {
	minAge, err := optionalInt(opts, "--min")
	if err != nil {
		return err
	}
	maxAge, err := optionalInt(opts, "--max")
	if err != nil {
		return err
	}
	if minAge == nil && maxAge == nil {
		return c.list(ctx)
	}

	students, err := c.api.ByAgeRange(ctx, minAge, maxAge)
	if err != nil {
		return fmt.Errorf("%s", c.l.Tf("msg.filter_failed", err))
	}
	return c.table(students, true)
}

func (c *command) show(ctx context.Context, opts docopt.Opts) error {
	id, err := idArg(opts)
	if err != nil {
		return err
	}
	s, err := c.api.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.details(s)
}

func (c *command) create(ctx context.Context, opts docopt.Opts) error {
	draft, err := draftArgs(opts)
	if err != nil {
		return err
	}
	s, err := c.api.Create(ctx, draft)
	if err != nil {
		return c.writeFailure(err, "msg.create_failed")
	}
	fmt.Fprintln(c.out, c.l.T("msg.created"))
	return c.details(s)
}

func (c *command) update(ctx context.Context, opts docopt.Opts) error {
	id, err := idArg(opts)
	if err != nil {
		return err
	}
	draft, err := draftArgs(opts)
	if err != nil {
		return err
	}
	s, err := c.api.Update(ctx, id, draft)
	if err != nil {
		return c.writeFailure(err, "msg.update_failed")
	}
	fmt.Fprintln(c.out, c.l.T("msg.updated"))
	return c.details(s)
}

func (c *command) delete(ctx context.Context, opts docopt.Opts) error {
	id, err := idArg(opts)
	if err != nil {
		return err
	}
	if err := c.api.Delete(ctx, id); err != nil {
		reason, ok := client.ServerMessage(err)
		if !ok {
			reason = c.l.T("msg.delete_fallback")
		}
		return fmt.Errorf("%s", c.l.Tf("msg.delete_failed", reason))
	}
	fmt.Fprintln(c.out, c.l.T("msg.deleted"))
	return nil
}

func (c *command) writeFailure(err error, fallbackKey string) error {
	if msg, ok := client.ServerMessage(err); ok {
		return fmt.Errorf("%s", msg)
	}
	return fmt.Errorf("%s: %w", c.l.T(fallbackKey), err)
}

// table prints the records followed by the statistics line.
func (c *command) table(students []types.Student, filtered bool) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
		c.l.T("table.id"), c.l.T("table.name"), c.l.T("table.email"),
		c.l.T("table.age"), c.l.T("table.address"), c.l.T("table.created_at"))

	rows := render.Rows(students, c.dates)
	for _, r := range rows {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", r.ID, r.Name, r.Email, r.Age, r.Address, r.CreatedAt)
	}
	if len(rows) == 0 {
		key := "table.empty"
		if filtered {
			key = "table.no_results"
		}
		fmt.Fprintln(tw, c.l.T(key))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	stats := render.Statistics(students)
	_, err := fmt.Fprintf(c.out, "\n%s: %d  %s: %d\n",
		c.l.T("stats.total"), stats.Total, c.l.T("stats.avg_age"), stats.AverageAge)
	return err
}

func (c *command) details(s types.Student) error {
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\t%d\n", c.l.T("table.id"), s.ID)
	fmt.Fprintf(tw, "%s\t%s\n", c.l.T("table.name"), s.Name)
	fmt.Fprintf(tw, "%s\t%s\n", c.l.T("table.email"), s.Email)
	fmt.Fprintf(tw, "%s\t%d\n", c.l.T("table.age"), s.Age)
	fmt.Fprintf(tw, "%s\t%s\n", c.l.T("table.address"), s.AddressOr(c.l.T("details.address_missing")))
	fmt.Fprintf(tw, "%s\t%s\n", c.l.T("table.created_at"), c.dates.Format(s.CreatedAt))
	fmt.Fprintf(tw, "%s\t%s\n", c.l.T("details.updated_at"), c.dates.Format(s.UpdatedAt))
	return tw.Flush()
}

func apiURL(opts docopt.Opts) string {
	if url, _ := opts.String("--api_url"); url != "" {
		return url
	}
	if url := os.Getenv("STUDENTS_API_URL"); url != "" {
		return url
	}
	return "http://localhost:8082"
}

func flag(opts docopt.Opts, name string) bool {
	v, _ := opts.Bool(name)
	return v
}

func idArg(opts docopt.Opts) (int64, error) {
	raw, _ := opts.String("<id>")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be an integer", raw)
	}
	return id, nil
}

func optionalInt(opts docopt.Opts, key string) (*int, error) {
	raw, _ := opts.String(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q: must be an integer", key, raw)
	}
	return &v, nil
}

func draftArgs(opts docopt.Opts) (types.Draft, error) {
	name, _ := opts.String("--name")
	email, _ := opts.String("--email")
	address, _ := opts.String("--address")
	rawAge, _ := opts.String("--age")

	age, err := strconv.Atoi(rawAge)
	if err != nil {
		return types.Draft{}, fmt.Errorf("invalid --age %q: must be an integer", rawAge)
	}

	return types.Draft{Name: name, Email: email, Age: age, Address: address}.Normalize(), nil
}
