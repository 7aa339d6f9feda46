package main

import (
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/Freeeeeet/tutor_slots/internal/app"
	"github.com/Freeeeeet/tutor_slots/internal/model"
	"github.com/Freeeeeet/tutor_slots/internal/service"
	"github.com/spf13/cobra"
)

type slotsFlags struct {
	subject string
	level   string
	date    string
	price   string
	query   string
	limit   int
	json    bool
}

func (f slotsFlags) filter() (service.Filter, error) {
	price, err := service.ParsePriceRange(f.price)
	if err != nil {
		return service.Filter{}, err
	}

	filter := service.Filter{
		Subject: f.subject,
		Level:   f.level,
		Price:   price,
		Query:   f.query,
	}

	if f.date != "" {
		d, err := model.ParseDate(f.date)
		if err != nil {
			return service.Filter{}, err
		}
		filter.Date = &d
	}

	return filter, nil
}

func newSlotsCmd() *cobra.Command {
	var flags slotsFlags

	cmd := &cobra.Command{
		Use:   "slots",
		Short: "List available public slots",
		Example: `  slotctl slots --subject english --price 20-50
  slotctl slots --date 2025-03-10 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := flags.filter()
			if err != nil {
				return err
			}

			store, err := app.OpenStore(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer store.Close()

			query := service.NewQueryService(store.Slots(), service.WithLocation(cfg.Location))
			seq := query.FindAvailable(cmd.Context(), filter)

			if flags.json {
				return writeListingsJSON(cmd.OutOrStdout(), seq, flags.limit)
			}
			_, err = writeListings(cmd.OutOrStdout(), seq, flags.limit)
			return err
		},
	}

	cmd.Flags().StringVar(&flags.subject, "subject", "", "subject, case insensitive")
	cmd.Flags().StringVar(&flags.level, "level", "", "level, case insensitive")
	cmd.Flags().StringVar(&flags.date, "date", "", "exact date YYYY-MM-DD")
	cmd.Flags().StringVar(&flags.price, "price", "", "price range: free, 0-20, 20-50, 50+")
	cmd.Flags().StringVarP(&flags.query, "q", "q", "", "substring of teacher name or subject")
	cmd.Flags().IntVar(&flags.limit, "limit", 50, "maximum number of rows, 0 for no limit")
	cmd.Flags().BoolVar(&flags.json, "json", false, "print JSON lines")

	return cmd
}

// writeListings печатает таблицу и возвращает число строк
func writeListings(w io.Writer, seq iter.Seq2[model.SlotListing, error], limit int) (int, error) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tSUBJECT\tLEVEL\tTEACHER\tSEATS\tPRICE")

	n := 0
	for listing, err := range seq {
		if err != nil {
			return n, err
		}

		s := listing.Slot
		price := "free"
		if s.Pricing.IsPaid {
			price = fmt.Sprintf("%.2f", float64(s.Pricing.Price)/100)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s-%s\t%s\t%s\t%s\t%d/%d\t%s\n",
			s.ID, s.Range.Date, s.Range.Start, s.Range.End,
			s.Metadata.Subject, s.Metadata.Level, listing.TeacherName,
			len(s.EnrolledStudents), s.MaxStudents, price,
		)

		n++
		if limit > 0 && n >= limit {
			break
		}
	}

	return n, tw.Flush()
}

func writeListingsJSON(w io.Writer, seq iter.Seq2[model.SlotListing, error], limit int) error {
	enc := json.NewEncoder(w)

	n := 0
	for listing, err := range seq {
		if err != nil {
			return err
		}

		if err := enc.Encode(struct {
			*model.Slot
			TeacherName string `json:"teacher_name"`
		}{listing.Slot, listing.TeacherName}); err != nil {
			return fmt.Errorf("encode slot: %w", err)
		}

		n++
		if limit > 0 && n >= limit {
			break
		}
	}

	return nil
}
