package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart/facade"
	"github.com/Zchasse63/vercelpickle-sub006/pkg/slug"
)

func money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// shortID trims server IDs to a prefix that resolveItem accepts.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func printCart(w io.Writer, v facade.View) {
	if v.IsEmpty {
		fmt.Fprintln(w, "cart is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ITEM\tPRODUCT\tQTY\tPRICE\tLINE")
	for _, it := range v.Items {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
			shortID(it.ID), it.Product.Name, it.Quantity, money(it.Product.Price), money(it.LineTotal()))
	}
	_ = tw.Flush()

	printTotals(w, v.Totals)
}

func printTotals(w io.Writer, t cart.Totals) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "items\t%d\t\n", t.ItemCount)
	fmt.Fprintf(tw, "subtotal\t%s\t\n", money(t.Subtotal))
	fmt.Fprintf(tw, "shipping\t%s\t\n", money(t.Shipping))
	fmt.Fprintf(tw, "tax\t%s\t\n", money(t.Tax))
	fmt.Fprintf(tw, "total\t%s\t\n", money(t.Total))
	_ = tw.Flush()
}

func printProducts(w io.Writer, products []cart.Product, query string) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tUNIT\tSTOCK\tSELLER")
	for _, p := range products {
		if query != "" && !slug.Contains(p.Name, query) {
			continue
		}
		stock := fmt.Sprint(p.Inventory)
		if p.Inventory <= 0 {
			stock = "sold out"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", p.ID, p.Name, money(p.Price), p.Unit, stock, p.SellerName)
	}
	_ = tw.Flush()
}
