package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"timerdash/internal/countdown"
	"timerdash/internal/model"
)

// onceEntry is the printed form of one dashboard entry.
type onceEntry struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Recurrence string           `json:"recurrence,omitempty"`
	Expired    bool             `json:"expired"`
	IsActive   bool             `json:"isActive"`
	Target     *time.Time       `json:"target"`
	Remaining  model.Countdown  `json:"remaining"`
	Elapsed    *model.Countdown `json:"elapsed,omitempty"`
}

type onceOutput struct {
	At        time.Time   `json:"at"`
	Active    []onceEntry `json:"active"`
	Scheduled []onceEntry `json:"scheduled"`
	Past      []onceEntry `json:"past"`
}

func newOnceCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Evaluate every stored event once and print the dashboard as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			now := a.svc.Now()
			if at != "" {
				now, err = time.Parse(time.RFC3339, at)
				if err != nil {
					return errors.Wrap(err, "--at must be RFC3339")
				}
			}

			d, err := a.svc.Dashboard(ctx, now)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(onceOutput{
				At:        d.At,
				Active:    toOnceEntries(d.Active),
				Scheduled: toOnceEntries(d.Scheduled),
				Past:      toOnceEntries(d.Past),
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "Reference instant (RFC3339); defaults to now")
	cmd.SetOut(os.Stdout)
	return cmd
}

func toOnceEntries(entries []countdown.Entry) []onceEntry {
	out := make([]onceEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, onceEntry{
			ID:         e.Event.ID,
			Name:       e.Event.Name,
			Recurrence: e.Recurrence,
			Expired:    e.Status.Expired,
			IsActive:   e.Status.IsActive,
			Target:     e.Status.Target,
			Remaining:  e.Status.Countdown,
			Elapsed:    e.Elapsed,
		})
	}
	return out
}
