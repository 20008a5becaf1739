package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/md-rashed-zaman/carebook/services/booking-service/internal/availability"
	"github.com/spf13/cobra"
)

type inputs struct {
	hoursFile    string
	bookingsFile string
}

func newRootCmd() *cobra.Command {
	in := &inputs{}
	root := &cobra.Command{
		Use:           "slotcheck",
		Short:         "Compute provider availability from exported hours and bookings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&in.hoursFile, "hours", "", "JSON array of operating-hours records (required)")
	root.PersistentFlags().StringVar(&in.bookingsFile, "bookings", "", "JSON array of booking records")
	_ = root.MarkPersistentFlagRequired("hours")

	root.AddCommand(newSlotsCmd(in))
	root.AddCommand(newBookableCmd(in))
	return root
}

func newSlotsCmd(in *inputs) *cobra.Command {
	var (
		date     string
		duration int
	)
	c := &cobra.Command{
		Use:   "slots",
		Short: "List free slots for one date",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d, err := availability.ParseDate(date)
			if err != nil {
				return fmt.Errorf("invalid --date (want YYYY-MM-DD): %w", err)
			}
			week, booked, err := in.load()
			if err != nil {
				return err
			}
			slots, err := availability.Available(week, booked, d, duration)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintf(out, "no free slots on %s (%s)\n", d, d.Weekday())
				return nil
			}
			for _, s := range slots {
				fmt.Fprintf(out, "%s  %s - %s\n", s.Start, s.Start.Clock.Kitchen(), s.End.Clock.Kitchen())
			}
			return nil
		},
	}
	c.Flags().StringVar(&date, "date", "", "date to check, YYYY-MM-DD")
	c.Flags().IntVar(&duration, "duration", 30, "slot length in minutes")
	_ = c.MarkFlagRequired("date")
	return c
}

func newBookableCmd(in *inputs) *cobra.Command {
	var start, end string
	c := &cobra.Command{
		Use:   "bookable",
		Short: "Report whether an interval can be booked",
		RunE: func(cmd *cobra.Command, _ []string) error {
			candidate, err := availability.ParseInterval(start, end)
			if err != nil {
				return err
			}
			week, booked, err := in.load()
			if err != nil {
				return err
			}
			if availability.Bookable(week, booked, candidate) {
				fmt.Fprintf(cmd.OutOrStdout(), "bookable: %s\n", candidate)
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "not bookable: %s\n", candidate)
			return nil
		},
	}
	c.Flags().StringVar(&start, "start", "", "start datetime, YYYY-MM-DDTHH:MM:SS")
	c.Flags().StringVar(&end, "end", "", "end datetime, YYYY-MM-DDTHH:MM:SS")
	_ = c.MarkFlagRequired("start")
	_ = c.MarkFlagRequired("end")
	return c
}

func (in *inputs) load() (availability.Week, []availability.BookedInterval, error) {
	var hours []availability.HoursRecord
	if err := readJSON(in.hoursFile, &hours); err != nil {
		return availability.Week{}, nil, err
	}
	week, err := availability.ParseWeek(hours)
	if err != nil {
		return availability.Week{}, nil, err
	}

	var records []availability.BookingRecord
	if in.bookingsFile != "" {
		if err := readJSON(in.bookingsFile, &records); err != nil {
			return availability.Week{}, nil, err
		}
	}
	booked, err := availability.ParseBooked(records)
	if err != nil {
		return availability.Week{}, nil, err
	}
	return week, booked, nil
}

func readJSON(path string, v any) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
