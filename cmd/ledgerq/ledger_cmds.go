package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kimhsiao/splitledger/client/internal/errors"
	"github.com/kimhsiao/splitledger/client/internal/ledger"
	"github.com/kimhsiao/splitledger/client/internal/models"
)

// parseShares parses "user=amount" pairs for an exact split.
func parseShares(shares []string) ([]models.ExactSplit, error) {
	out := make([]models.ExactSplit, 0, len(shares))
	for _, s := range shares {
		user, amount, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(user) == "" {
			return nil, errors.Newf(errors.ErrInvalid, "share %q must look like user=amount", s)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(amount), 64)
		if err != nil {
			return nil, errors.Wrap(errors.ErrInvalid, "invalid amount in share "+s, err)
		}
		out = append(out, models.ExactSplit{UserID: strings.TrimSpace(user), Amount: v})
	}
	return out, nil
}

func printOutcome(c *cli, cmd *cobra.Command, kind string, out *ledger.Outcome) error {
	if c.asJSON {
		return json.NewEncoder(cmd.OutOrStdout()).Encode(out)
	}
	if out.Queued != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Saved Locally: you are offline. The %s (%s) will sync when the connection returns.\n", kind, out.Queued.ID)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s recorded successfully!\n", strings.ToUpper(kind[:1])+kind[1:])
	return nil
}

func newExpenseCmd(c *cli) *cobra.Command {
	expenseCmd := &cobra.Command{
		Use:     "expense",
		GroupID: "ledger",
		Short:   "Record expenses",
	}

	var (
		e      models.Expense
		split  string
		with   []string
		shares []string
	)
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Record an expense, queueing it if the server is unreachable",
		Example: `  ledgerq expense add --amount 90 --description Dinner --paid-by u1 --with u1,u2,u3
  ledgerq expense add --amount 100 --category Travel --paid-by u1 --split exact --share u1=40 --share u2=60`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e.SplitType = models.SplitType(split)
			switch e.SplitType {
			case models.SplitEqual:
				e.SplitWith = with
			case models.SplitExact:
				parsed, err := parseShares(shares)
				if err != nil {
					return err
				}
				e.ExactSplits = parsed
			}

			a, err := c.open()
			if err != nil {
				return err
			}
			out, err := a.service.RecordExpense(cmd.Context(), e)
			if err != nil {
				return err
			}
			return printOutcome(c, cmd, "expense", out)
		},
	}
	addCmd.Flags().Float64Var(&e.Amount, "amount", 0, "total amount")
	addCmd.Flags().StringVar(&e.Description, "description", "", "description (defaults to the category)")
	addCmd.Flags().StringVar(&e.Category, "category", "", "category")
	addCmd.Flags().StringVar(&e.SubCategory, "sub-category", "", "sub-category")
	addCmd.Flags().StringVar(&e.Location, "location", "", "location")
	addCmd.Flags().StringVar(&e.LocationFrom, "from", "", "trip start")
	addCmd.Flags().StringVar(&e.LocationTo, "to", "", "trip destination")
	addCmd.Flags().StringVar(&e.PaidByUserID, "paid-by", "", "id of the user who paid")
	addCmd.Flags().StringVar(&split, "split", string(models.SplitEqual), "split type: equal or exact")
	addCmd.Flags().StringSliceVar(&with, "with", nil, "user ids sharing an equal split")
	addCmd.Flags().StringArrayVar(&shares, "share", nil, "user=amount share for an exact split (repeatable)")
	addCmd.MarkFlagRequired("amount")
	addCmd.MarkFlagRequired("paid-by")

	expenseCmd.AddCommand(addCmd)
	return expenseCmd
}

func newPaymentCmd(c *cli) *cobra.Command {
	paymentCmd := &cobra.Command{
		Use:     "payment",
		GroupID: "ledger",
		Short:   "Record settle-up payments",
	}

	var p models.Payment
	addCmd := &cobra.Command{
		Use:     "add",
		Short:   "Record a payment, queueing it if the server is unreachable",
		Example: `  ledgerq payment add --from u1 --to u2 --amount 50 --note rent`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.open()
			if err != nil {
				return err
			}
			out, err := a.service.RecordPayment(cmd.Context(), p)
			if err != nil {
				return err
			}
			return printOutcome(c, cmd, "payment", out)
		},
	}
	addCmd.Flags().StringVar(&p.FromUserID, "from", "", "id of the paying user")
	addCmd.Flags().StringVar(&p.ToUserID, "to", "", "id of the user being paid")
	addCmd.Flags().Float64Var(&p.Amount, "amount", 0, "amount paid")
	addCmd.Flags().StringVar(&p.Note, "note", "", "optional note")
	addCmd.MarkFlagRequired("from")
	addCmd.MarkFlagRequired("to")
	addCmd.MarkFlagRequired("amount")

	paymentCmd.AddCommand(addCmd)
	return paymentCmd
}
