package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/chronologos/ibgw/pkg/catalog"
	"github.com/chronologos/ibgw/pkg/codec"
	"github.com/chronologos/ibgw/pkg/dispatch"
	"github.com/chronologos/ibgw/pkg/model"
)

var (
	secType  string
	exchange string
	currency string
	expiry   string
	strike   string
	right    string
	timeout  time.Duration
)

func init() {
	cf := contractCmd.Flags()
	cf.StringVar(&secType, "sec-type", "STK", "security type")
	cf.StringVar(&exchange, "exchange", "SMART", "exchange")
	cf.StringVar(&currency, "currency", "USD", "currency")
	cf.StringVar(&expiry, "expiry", "", "last trade date or contract month")
	cf.StringVar(&strike, "strike", "", "option strike")
	cf.StringVar(&right, "right", "", "option right: C or P")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 15*time.Second, "request timeout")
	rootCmd.AddCommand(timeCmd, contractCmd)
}

var timeCmd = &cobra.Command{
	Use:   "time",
	Short: "Print the server's current time",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return query(cmd, codec.NewRequest(catalog.ReqCurrentTime), func(ev codec.Event) error {
			if ev.Kind == catalog.CurrentTime {
				fmt.Println(time.Unix(ev.Int("time"), 0).UTC().Format(time.RFC3339))
			}
			return nil
		})
	},
}

var contractCmd = &cobra.Command{
	Use:   "contract <symbol>",
	Short: "Look up contract details",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c := model.Contract{
			Symbol:        strings.ToUpper(args[0]),
			SecType:       secType,
			Exchange:      exchange,
			Currency:      currency,
			LastTradeDate: expiry,
			Right:         right,
		}
		if strike != "" {
			d, err := decimal.NewFromString(strike)
			if err != nil {
				return fmt.Errorf("strike %q: %w", strike, err)
			}
			c.Strike = d
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CONID\tCONTRACT\tLOCAL\tMIN TICK\tNAME")
		err := query(cmd, c.Apply(codec.NewRequest(catalog.ReqContractData)), func(ev codec.Event) error {
			if ev.Kind != catalog.ContractData {
				return nil
			}
			cd, err := model.NewContractDetails(&ev)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
				cd.Contract.ConID, cd.Contract, cd.Contract.LocalSymbol, cd.MinTick, cd.LongName)
			return nil
		})
		if ferr := w.Flush(); err == nil {
			err = ferr
		}
		return err
	},
}

// query connects, submits req and hands every response to fn until the
// request ends.
func query(cmd *cobra.Command, req *codec.Request, fn func(codec.Event) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := newLogger(cfg.Level())
	ctx, stop := signalContext()
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	s, err := openSession(ctx, cfg, logger, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	sub, err := s.Submit(ctx, req)
	if err != nil {
		return err
	}
	return drain(ctx, sub, fn)
}

func drain(ctx context.Context, sub *dispatch.Subscription, fn func(codec.Event) error) error {
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return sub.Err()
			}
			if ev.Kind == catalog.ErrMsg {
				continue
			}
			if err := fn(ev); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
