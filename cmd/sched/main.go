package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/scheddev/sched-go/internal/booking"
	appconfig "github.com/scheddev/sched-go/internal/config"
	"github.com/scheddev/sched-go/internal/demo"
	"github.com/scheddev/sched-go/internal/events"
	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/internal/schedclient"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/internal/slots"
	"github.com/scheddev/sched-go/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	opts, err := parseFlags(cfg, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := logging.NewWithWriter(cfg.LogLevel, os.Stderr)
	if err := run(ctx, cfg, opts, logger, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", scheduler.UserMessage(err))
		logger.Error("sched failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	date      string
	slot      int
	contact   scheduler.Contact
	now       func() time.Time
	listZones bool
}

// parseFlags applies command-line overrides on top of the environment.
func parseFlags(cfg *appconfig.Config, args []string) (options, error) {
	fs := flag.NewFlagSet("sched", flag.ContinueOnError)
	fs.StringVar(&cfg.ClientID, "client", cfg.ClientID, "scheduling client id")
	fs.StringVar(&cfg.ResourceID, "resource", cfg.ResourceID, "resource id (exclusive with -group)")
	fs.StringVar(&cfg.ResourceGroupID, "group", cfg.ResourceGroupID, "resource group id (exclusive with -resource)")
	fs.StringVar(&cfg.Environment, "env", cfg.Environment, "production, staging, dev or local")
	fs.BoolVar(&cfg.DemoMode, "demo", cfg.DemoMode, "use synthesized availability and bookings")
	fs.StringVar(&cfg.Timezone, "tz", cfg.Timezone, "display timezone (IANA name)")
	fs.StringVar(&cfg.RangePolicy, "range", cfg.RangePolicy, "availability range policy: month or day")

	var opts options
	fs.StringVar(&opts.date, "date", "", "date to show, YYYY-MM-DD (default today)")
	fs.IntVar(&opts.slot, "slot", -1, "index of the slot to book")
	fs.StringVar(&opts.contact.FirstName, "first", "", "first name for the booking")
	fs.StringVar(&opts.contact.LastName, "last", "", "last name for the booking")
	fs.StringVar(&opts.contact.Email, "email", "", "email for the booking")
	fs.BoolVar(&opts.listZones, "zones", false, "list selectable timezones with their current time and exit")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}
	return opts, nil
}

func run(ctx context.Context, cfg *appconfig.Config, opts options, logger *logging.Logger, out io.Writer) error {
	if opts.listZones {
		now := time.Now
		if opts.now != nil {
			now = opts.now
		}
		printZones(out, slots.ZoneOptions(now(), cfg.Timezone))
		return nil
	}
	schedCfg, err := cfg.SchedulerConfig()
	if err != nil {
		return err
	}
	loc, err := slots.LoadZone(cfg.Timezone)
	if err != nil {
		return err
	}
	policy, err := booking.ParseRangePolicy(cfg.RangePolicy)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	sm := metrics.NewSchedulerMetrics(reg)
	if cfg.MetricsAddr != "" {
		shutdown := serveMetrics(cfg.MetricsAddr, reg, logger)
		defer shutdown()
	}

	gw, err := newGateway(schedCfg, cfg.HTTPTimeout, logger, sm)
	if err != nil {
		return err
	}

	machineOpts := []booking.Option{
		booking.WithLogger(logger),
		booking.WithMetrics(sm),
		booking.WithLocation(loc),
		booking.WithRangePolicy(policy),
		booking.WithObserver(events.NewLogObserver(logger)),
	}
	if opts.now != nil {
		machineOpts = append(machineOpts, booking.WithClock(opts.now))
	}
	if opts.date != "" {
		d, err := slots.ParseDate(opts.date)
		if err != nil {
			return fmt.Errorf("%w: %v", scheduler.ErrConfig, err)
		}
		machineOpts = append(machineOpts, booking.WithInitialDate(d))
	}
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		pub := events.NewRedisPublisher(client, logger)
		logger.Info("publishing session snapshots", "channel", pub.Channel())
		machineOpts = append(machineOpts, booking.WithObserver(pub))
	}

	m := booking.New(schedCfg, gw, machineOpts...)
	defer m.Close()

	if err := m.Start(ctx); err != nil {
		return err
	}
	s := m.Snapshot()
	printAvailability(out, s)

	if opts.slot < 0 {
		return nil
	}
	if opts.slot >= len(s.Slots) {
		return fmt.Errorf("%w: slot %d out of range (%d slots)", scheduler.ErrNoSlotSelected, opts.slot, len(s.Slots))
	}
	if err := m.SelectSlot(s.Slots[opts.slot].CompoundKey); err != nil {
		return err
	}
	if err := m.Next(); err != nil {
		return err
	}
	details, err := m.BookingDetails()
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\n%s with %s\n%s at %s (%s)\n", details.Service, details.Resource, details.Date, details.Time, details.DurationLabel())

	if opts.contact == (scheduler.Contact{}) {
		return nil
	}
	if err := m.Submit(ctx, opts.contact); err != nil {
		return err
	}
	printConfirmation(out, m.Snapshot())
	return nil
}

// newGateway picks the demo or remote gateway once, at construction.
func newGateway(cfg scheduler.Config, timeout time.Duration, logger *logging.Logger, sm *metrics.SchedulerMetrics) (scheduler.Gateway, error) {
	if cfg.DemoMode {
		return demo.NewGateway(logger), nil
	}
	client, err := schedclient.New(schedclient.Config{
		BaseURL: cfg.BaseURL(),
		Timeout: timeout,
		Logger:  logger,
		Metrics: sm,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func serveMetrics(addr string, reg *prometheus.Registry, logger *logging.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func printAvailability(out io.Writer, s booking.Session) {
	fmt.Fprintf(out, "Timezone: %s\n", s.TimezoneName())
	if s.LastError != nil {
		fmt.Fprintf(out, "Warning: %s\n", scheduler.UserMessage(s.LastError))
	}
	days := s.ValidDays()
	fmt.Fprintf(out, "Days with availability: %d\n", len(days))
	for _, d := range days {
		fmt.Fprintf(out, "  %s\n", d)
	}
	fmt.Fprintf(out, "Slots on %s:\n", s.SelectedDate.Long())
	if len(s.Slots) == 0 {
		fmt.Fprintln(out, "  (none)")
	}
	for i, slot := range s.Slots {
		fmt.Fprintf(out, "  [%d] %s  %s\n", i, slot.DisplayLabel, slot.Resource.Name)
	}
}

func printZones(out io.Writer, zones []slots.ZoneOption) {
	for _, z := range zones {
		marker := " "
		if z.Selected {
			marker = "*"
		}
		fmt.Fprintf(out, "%s %s\n", marker, z.Label)
	}
}

func printConfirmation(out io.Writer, s booking.Session) {
	conf := s.LastBooking
	if conf == nil {
		return
	}
	start := conf.Start.In(s.Location)
	fmt.Fprintf(out, "\nBooking %s\n", conf.Status)
	if conf.ID != "" {
		fmt.Fprintf(out, "  id: %s\n", conf.ID)
	}
	fmt.Fprintf(out, "  %s at %s with %s\n", start.Format("Monday, January 2, 2006"), start.Format("3:04 PM MST"), conf.Resource.Name)
}
