package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/logger"
)

// options are the global flags plus the wiring shared by every subcommand.
type options struct {
	apiURL string
	userID string
	stderr io.Writer
	dial   dialer
}

// withSession adapts run into a cobra RunE that opens a session for the
// configured user and closes it afterwards.
func (o *options) withSession(run func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if o.apiURL != "" {
			cfg.APIURL = o.apiURL
		}
		if o.userID != "" {
			cfg.UserID = o.userID
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Timeout)
		defer cancel()

		s := newSession(cfg, o.dial, logger.NewText(cfg.LogLevel, o.stderr))
		defer s.Close()

		return run(ctx, cmd, s, args)
	}
}

func newRootCmd(stdout, stderr io.Writer, dial dialer) *cobra.Command {
	o := &options{stderr: stderr, dial: dial}

	root := &cobra.Command{
		Use:   "cartctl",
		Short: "Inspect and edit a Pickle shopping cart",
		Long: `cartctl edits a user's cart against the cart service.

Configuration comes from the environment:
  PICKLE_API_URL  cart service base URL (default http://localhost:8003)
  PICKLE_USER_ID  user whose cart is edited
  CART_FLAT_SHIPPING, CART_FREE_SHIPPING_THRESHOLD, CART_TAX_RATE
                  pricing used for the totals shown`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&o.apiURL, "api-url", "", "cart service base URL (overrides PICKLE_API_URL)")
	root.PersistentFlags().StringVarP(&o.userID, "user", "u", "", "user ID (overrides PICKLE_USER_ID)")

	root.AddCommand(
		newShowCmd(o),
		newAddCmd(o),
		newUpdateCmd(o),
		newRemoveCmd(o),
		newClearCmd(o),
		newProductsCmd(o),
	)
	return root
}

func newShowCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the cart and its totals",
		Args:  cobra.NoArgs,
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if err := s.signIn(ctx); err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), s.cart.View())
			return nil
		}),
	}
}

func newAddCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "add <product> [quantity]",
		Short: "Add a product by ID or name",
		Long: `Add a product to the cart. <product> is a product ID or a name; names
match case- and accent-insensitively, e.g. "jalapeno" finds "Jalapeño Dill
Spears". Quantity defaults to 1 and merges with an existing line.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			quantity := 1
			if len(args) == 2 {
				q, err := strconv.Atoi(args[1])
				if err != nil || q < 1 {
					return fmt.Errorf("quantity must be a positive integer, got %q", args[1])
				}
				quantity = q
			}

			if err := s.loadCatalog(ctx); err != nil {
				return err
			}
			product, err := s.resolveProduct(args[0])
			if err != nil {
				return err
			}
			if err := s.signIn(ctx); err != nil {
				return err
			}

			if err := s.cart.AddToCart(ctx, product.ID, quantity); err != nil {
				return err
			}
			if err := s.writeErr(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d x %s\n", quantity, product.Name)
			printCart(cmd.OutOrStdout(), s.cart.View())
			return nil
		}),
	}
}

func newUpdateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "update <item> <quantity>",
		Short: "Set the quantity of a cart line; 0 removes it",
		Args:  cobra.ExactArgs(2),
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			quantity, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("quantity must be an integer, got %q", args[1])
			}

			if err := s.signIn(ctx); err != nil {
				return err
			}
			item, err := s.resolveItem(args[0])
			if err != nil {
				return err
			}

			s.cart.UpdateCartItem(ctx, item.ID, quantity)
			if err := s.writeErr(); err != nil {
				return err
			}
			printCart(cmd.OutOrStdout(), s.cart.View())
			return nil
		}),
	}
}

func newRemoveCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <item>",
		Aliases: []string{"rm"},
		Short:   "Remove a cart line",
		Args:    cobra.ExactArgs(1),
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, args []string) error {
			if err := s.signIn(ctx); err != nil {
				return err
			}
			item, err := s.resolveItem(args[0])
			if err != nil {
				return err
			}

			s.cart.RemoveCartItem(ctx, item.ID)
			if err := s.writeErr(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", item.Product.Name)
			printCart(cmd.OutOrStdout(), s.cart.View())
			return nil
		}),
	}
}

func newClearCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every line from the cart",
		Args:  cobra.NoArgs,
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if err := s.signIn(ctx); err != nil {
				return err
			}

			s.cart.EmptyCart(ctx)
			if err := s.writeErr(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "cart cleared")
			return nil
		}),
	}
}

func newProductsCmd(o *options) *cobra.Command {
	var query string

	cmd := &cobra.Command{
		Use:   "products",
		Short: "List the product catalog",
		Args:  cobra.NoArgs,
		RunE: o.withSession(func(ctx context.Context, cmd *cobra.Command, s *session, _ []string) error {
			if err := s.loadCatalog(ctx); err != nil {
				return err
			}
			printProducts(cmd.OutOrStdout(), s.catalog.Products(), query)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&query, "search", "s", "", "only list products whose name matches")
	return cmd
}
