package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tbourn/hoststand/internal/repo"
)

const defaultFloorPlan = "1:2:Window,2:2:Window,3:4:Main,4:4:Main,5:6:Main,6:8:Patio"

// tableSpec is one "number:capacity:location" item of a floor plan.
type tableSpec struct {
	Number   int
	Capacity int
	Location string
}

func newSeedCmd() *cobra.Command {
	var plan string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create tables from a floor plan; existing numbers are left alone",
		RunE: func(cmd *cobra.Command, args []string) error {
			specs, err := parseFloorPlan(plan)
			if err != nil {
				return err
			}
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			db, err := openStore(cfg, true)
			if err != nil {
				return err
			}
			defer closeStore(db)

			out := cmd.OutOrStdout()
			created := 0
			for _, s := range specs {
				_, err := repo.CreateTable(cmd.Context(), db, s.Number, s.Capacity, s.Location)
				switch {
				case errors.Is(err, repo.ErrDuplicate):
					fmt.Fprintf(out, "table %d exists, skipped\n", s.Number)
				case err != nil:
					return fmt.Errorf("table %d: %w", s.Number, err)
				default:
					created++
				}
			}
			fmt.Fprintf(out, "seeded %d of %d tables\n", created, len(specs))
			return nil
		},
	}
	cmd.Flags().StringVar(&plan, "tables", defaultFloorPlan, `floor plan as "number:capacity:location,..."`)
	return cmd
}

// parseFloorPlan reads "1:2:Window,2:4:Main". Location may be empty.
func parseFloorPlan(s string) ([]tableSpec, error) {
	var out []tableSpec
	seen := map[int]bool{}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, ":", 3)
		if len(parts) < 2 {
			return nil, fmt.Errorf("table %q: want number:capacity[:location]", item)
		}
		num, err := strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil || num < 1 {
			return nil, fmt.Errorf("table %q: number must be a positive integer", item)
		}
		capacity, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || capacity < 1 {
			return nil, fmt.Errorf("table %q: capacity must be a positive integer", item)
		}
		if seen[num] {
			return nil, fmt.Errorf("table %d listed twice", num)
		}
		seen[num] = true
		entry := tableSpec{Number: num, Capacity: capacity}
		if len(parts) == 3 {
			entry.Location = strings.TrimSpace(parts[2])
		}
		out = append(out, entry)
	}
	if len(out) == 0 {
		return nil, errors.New("floor plan is empty")
	}
	return out, nil
}
