package main

import (
	"fmt"
	"strconv"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/pixelfederation/spot-finder/bench"
)

func newBenchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bench <digits>",
		Short: "Compute digits of pi to check the health of an instance",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return configErrorf("expected <digits>, got %d argument(s)", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			digits, err := strconv.Atoi(args[0])
			if err != nil || digits < 0 {
				return configErrorf("digits must be a non-negative integer, got '%s'", args[0])
			}

			result, err := bench.Run(digits)
			if err != nil {
				return configErrorf("%s", err)
			}
			log.Debugf("Computed %d digits of pi in %s", result.Digits, result.Elapsed)

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, result.Last3)
			fmt.Fprintf(out, "elapsed: %s\n", result.Elapsed)
			return nil
		},
	}
}
