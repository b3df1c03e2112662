package commands

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kushtati/kushtati-immo-api/internal/app"
	"github.com/kushtati/kushtati-immo-api/internal/domain"
	"github.com/kushtati/kushtati-immo-api/internal/seed"
)

var skipMigrate bool

// migrateCmd applies the embedded schema
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Create the users, properties, contracts and payments tables when they do not exist.

Examples:
  kushtati migrate
  DATABASE_URL=postgres://... kushtati migrate`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()
		if e.storage.Migrate == nil {
			return fmt.Errorf("storage %q has no schema to apply", e.storage.Driver)
		}
		if err := e.storage.Migrate(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

// seedCmd loads the demonstration data set
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the demonstration data set",
	Long: `Insert two owners, three tenants, eight listings, three contracts and their
payments in one transaction. Nothing is inserted when the data set is already present.

Every seeded account uses the password "` + seed.DemoPassword + `".`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.storage.Migrate != nil && !skipMigrate {
			if err := e.storage.Migrate(ctx); err != nil {
				return err
			}
		}
		svc := app.NewServices(e.cfg, e.storage, nil, e.log)
		summary, err := svc.Seeder.Run(ctx)
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), summary, func(w io.Writer) {
			if summary.Skipped {
				fmt.Fprintln(w, "demo data already present, nothing inserted")
				return
			}
			fmt.Fprintf(w, "inserted %d users, %d properties, %d contracts, %d payments\n",
				summary.Users, summary.Properties, summary.Contracts, summary.Payments)
		})
	},
}

// checkCmd verifies connectivity
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify database and Redis connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		results := map[string]string{"database": "ok", "redis": "not configured"}
		failed := false
		if err := e.storage.Ping(ctx); err != nil {
			results["database"] = "error: " + err.Error()
			failed = true
		}
		rdb, err := app.OpenRedis(ctx, e.cfg, e.log)
		switch {
		case err != nil:
			results["redis"] = "error: " + err.Error()
			failed = true
		case rdb != nil:
			defer rdb.Close()
			results["redis"] = "ok"
		}

		if err := printResult(cmd.OutOrStdout(), results, func(w io.Writer) {
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DEPENDENCY\tSTATUS")
			fmt.Fprintf(tw, "database (%s)\t%s\n", e.storage.Driver, results["database"])
			fmt.Fprintf(tw, "redis\t%s\n", results["redis"])
			tw.Flush()
		}); err != nil {
			return err
		}
		if failed {
			return errors.New("one or more dependencies are unavailable")
		}
		return nil
	},
}

// expireCmd runs one contract expiry sweep
var expireCmd = &cobra.Command{
	Use:   "expire-contracts",
	Short: "Close active contracts whose end date has passed",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		e, err := openEnv(ctx)
		if err != nil {
			return err
		}
		defer e.Close()

		svc := app.NewServices(e.cfg, e.storage, nil, e.log)
		n, err := svc.Contracts.ExpireEnded(ctx, domain.Today())
		if err != nil {
			return err
		}
		return printResult(cmd.OutOrStdout(), map[string]int64{"expired": n}, func(w io.Writer) {
			fmt.Fprintf(w, "%d contract(s) expired\n", n)
		})
	},
}

func init() {
	seedCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not apply the schema before seeding")
}
