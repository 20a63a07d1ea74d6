// remind.go implements the "birthdaybot remind" command: a single reminder
// pass for external cron setups or manual runs. Notifications are printed
// instead of delivered, since no chat connections exist outside "serve".
package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ent0n29/birthdaybot/internal/config"
	"github.com/ent0n29/birthdaybot/internal/reminder"
	"github.com/ent0n29/birthdaybot/internal/store"
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Run one reminder pass and print the notifications",
	RunE:  runRemind,
}

type printSender struct{}

func (printSender) Send(_ context.Context, userID, text string) error {
	fmt.Printf("--- to %s ---\n%s\n", userID, text)
	return nil
}

func runRemind(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFlag)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("logger init failed: %w", err)
	}
	defer logger.Sync()

	ctx := context.Background()
	birthdayStore, err := store.NewStore(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("store init failed: %w", err)
	}
	defer birthdayStore.Close()

	loc := cfg.Location()
	scheduler := reminder.NewScheduler(birthdayStore, printSender{}, logger, nil, loc, cfg.ReminderHour, cfg.ReminderMinute)
	return scheduler.RunOnce(ctx, time.Now().In(loc))
}
