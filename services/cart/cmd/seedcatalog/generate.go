package main

import (
	"fmt"
	"math/rand/v2"

	"github.com/shopspring/decimal"

	"github.com/Zchasse63/vercelpickle-sub006/pkg/cart"
)

type seller struct {
	id, name string
}

var (
	sellers = []seller{
		{"seller-brine", "Brine & Co."},
		{"seller-heat", "Heat Seekers"},
		{"seller-ferment", "Ferment Lab"},
		{"seller-orchard", "Orchard Row Preserves"},
		{"seller-delta", "Delta Canning Works"},
		{"seller-nordic", "Nordisk Sylt"},
	}

	flavors = []string{
		"Classic", "Jalapeño", "Smoky", "Honey", "Habanero", "Lemon",
		"Fire-Roasted", "Curry", "Ginger", "Turmeric", "Sriracha", "Rosemary",
		"Crème de Dill", "Smørrebrød",
	}

	styles = []string{
		"Dill Spears", "Bread & Butter Chips", "Sweet Gherkins", "Garlic Dill Chips",
		"Cornichons", "Half Sours", "Pickled Okra", "Pickled Beets", "Kimchi",
		"Sauerkraut", "Giardiniera", "Pickled Red Onions", "Pickled Carrots", "Relish",
	}

	units = []string{"jar", "case", "pouch", "lb", "gallon"}
)

// generate returns n products. The same seed always yields the same catalog,
// so re-running the seed updates rows instead of adding new ones.
func generate(seed uint64, n int) []cart.Product {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)) // #nosec G404 -- test data

	products := make([]cart.Product, 0, n)
	for i := range n {
		s := sellers[rng.IntN(len(sellers))]
		id := fmt.Sprintf("seed-%05d", i)

		inventory := rng.IntN(500)
		if rng.IntN(10) == 0 {
			inventory = 0
		}

		products = append(products, cart.Product{
			ID:         id,
			Name:       fmt.Sprintf("%s %s, Lot %05d", flavors[rng.IntN(len(flavors))], styles[rng.IntN(len(styles))], i),
			Price:      decimal.New(int64(299+rng.IntN(4701)), -2),
			Images:     []string{fmt.Sprintf("https://cdn.pickle.test/%s.jpg", id)},
			SellerID:   s.id,
			SellerName: s.name,
			Inventory:  inventory,
			Unit:       units[rng.IntN(len(units))],
		})
	}
	return products
}
