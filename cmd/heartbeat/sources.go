//go:build linux

package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ja7ad/heartbeat/pkg/energy"
	"github.com/ja7ad/heartbeat/pkg/system/power"
)

func newSourcesCmd() *cobra.Command {
	var (
		powercapRoot string
		hwmonRoot    string
	)

	cmd := &cobra.Command{
		Use:   "sources",
		Short: "List energy sources available on this host",
		RunE: func(cmd *cobra.Command, _ []string) error {
			tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			defer tw.Flush()

			fmt.Fprintf(tw, "backends:\t%v\n\n", energy.Names())

			zones, err := power.DetectZones(powercapRoot)
			switch {
			case errors.Is(err, power.ErrNoZones), errors.Is(err, os.ErrNotExist):
				fmt.Fprintln(tw, "rapl:\tnone")
			case err != nil:
				return err
			default:
				fmt.Fprintln(tw, "RAPL ZONE\tPATH\tREADABLE\tENERGY")
				for _, z := range zones {
					e := "-"
					if z.Readable {
						if uj, err := z.Energy(); err == nil {
							e = uj.Joules().Humanized()
						}
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", z, z.Path, z.Readable, e)
				}
			}
			fmt.Fprintln(tw)

			sensors, err := power.DetectSensors(hwmonRoot)
			switch {
			case errors.Is(err, power.ErrNoSensors), errors.Is(err, os.ErrNotExist):
				fmt.Fprintln(tw, "hwmon:\tnone")
			case err != nil:
				return err
			default:
				fmt.Fprintln(tw, "HWMON SENSOR\tPATH\tREADABLE\tPOWER")
				for _, s := range sensors {
					p := "-"
					if s.Readable {
						if w, err := s.Power(); err == nil {
							p = w.Humanized()
						}
					}
					fmt.Fprintf(tw, "%s\t%s\t%t\t%s\n", s, s.Path, s.Readable, p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&powercapRoot, "powercap-root", power.DefaultPowercapRoot, "powercap sysfs root")
	cmd.Flags().StringVar(&hwmonRoot, "hwmon-root", power.DefaultHwmonRoot, "hwmon sysfs root")
	return cmd
}
