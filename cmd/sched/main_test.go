package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	appconfig "github.com/scheddev/sched-go/internal/config"
	"github.com/scheddev/sched-go/internal/demo"
	"github.com/scheddev/sched-go/internal/schedclient"
	"github.com/scheddev/sched-go/internal/scheduler"
	"github.com/scheddev/sched-go/pkg/logging"
)

func demoConfig() *appconfig.Config {
	return &appconfig.Config{
		ClientID:    "client-1",
		ResourceID:  "demo-ada",
		Environment: "production",
		DemoMode:    true,
		Timezone:    "UTC",
		RangePolicy: "month",
	}
}

func TestParseFlagsOverridesEnvironment(t *testing.T) {
	cfg := demoConfig()
	opts, err := parseFlags(cfg, []string{"-group", "team", "-resource", "", "-tz", "Europe/Paris", "-slot", "2", "-email", "a@b.co"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.ResourceGroupID != "team" || cfg.ResourceID != "" || cfg.Timezone != "Europe/Paris" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if opts.slot != 2 || opts.contact.Email != "a@b.co" {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestRunDemoBooking(t *testing.T) {
	var out bytes.Buffer
	opts := options{
		date:    "2024-06-10",
		slot:    0,
		contact: scheduler.Contact{FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		now:     func() time.Time { return time.Date(2024, 6, 10, 7, 0, 0, 0, time.UTC) },
	}
	if err := run(context.Background(), demoConfig(), opts, logging.NewWithWriter("error", &out), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"Slots on June 10, 2024", "[0] 9:00 AM  Ada Lovelace", "Consultation with Ada Lovelace", "Booking requested", "Monday, June 10, 2024 at 9:00 AM UTC"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestRunListsZones(t *testing.T) {
	var out bytes.Buffer
	cfg := demoConfig()
	cfg.Timezone = "Asia/Tokyo"
	opts, err := parseFlags(cfg, []string{"-zones"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	opts.now = func() time.Time { return time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC) }
	if err := run(context.Background(), cfg, opts, logging.Default(), &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	got := out.String()
	for _, want := range []string{"* Asia/Tokyo (6:00 PM)", "  America/New_York (5:00 AM)"} {
		if !strings.Contains(got, want) {
			t.Fatalf("expected %q in output:\n%s", want, got)
		}
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := demoConfig()
	cfg.ResourceGroupID = "team"
	err := run(context.Background(), cfg, options{slot: -1}, logging.Default(), &bytes.Buffer{})
	if !errors.Is(err, scheduler.ErrConfig) {
		t.Fatalf("expected ErrConfig, got %v", err)
	}
}

func TestNewGatewaySelectsStrategy(t *testing.T) {
	cfg, err := scheduler.NewConfig(scheduler.ConfigInput{ClientID: "c", ResourceID: "r", DemoMode: true})
	if err != nil {
		t.Fatal(err)
	}
	gw, err := newGateway(cfg, time.Second, logging.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gw.(*demo.Gateway); !ok {
		t.Fatalf("expected demo gateway, got %T", gw)
	}

	cfg.DemoMode = false
	gw, err = newGateway(cfg, time.Second, logging.Default(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := gw.(*schedclient.Client); !ok {
		t.Fatalf("expected remote client, got %T", gw)
	}
}
