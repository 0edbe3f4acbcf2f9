package catalog

import "strings"

// Fallback category when nothing matches.
const OtherCategory = "Other"

type keyword struct {
	phrase   string
	category string
}

// keywords is checked in order, so multi-word phrases come before the
// single words they contain ("cream cheese" before "cream").
var keywords = []keyword{
	{"ice cream", "Frozen"},
	{"frozen", "Frozen"},
	{"cream cheese", "Dairy & Eggs"},
	{"sour cream", "Dairy & Eggs"},
	{"heavy cream", "Dairy & Eggs"},
	{"half and half", "Dairy & Eggs"},
	{"coconut milk", "Pantry"},
	{"peanut butter", "Pantry"},
	{"olive oil", "Pantry"},
	{"soy sauce", "Pantry"},
	{"hot sauce", "Pantry"},
	{"ground beef", "Meat & Seafood"},
	{"ground turkey", "Meat & Seafood"},
	{"chili powder", "Spices & Seasonings"},
	{"black pepper", "Spices & Seasonings"},
	{"bell pepper", "Produce"},
	{"green onion", "Produce"},
	{"paper towel", "Household"},
	{"aluminum foil", "Household"},
	{"sparkling water", "Beverages"},

	{"milk", "Dairy & Eggs"},
	{"cheese", "Dairy & Eggs"},
	{"butter", "Dairy & Eggs"},
	{"yogurt", "Dairy & Eggs"},
	{"eggs", "Dairy & Eggs"},
	{"egg", "Dairy & Eggs"},
	{"cream", "Dairy & Eggs"},

	{"chicken", "Meat & Seafood"},
	{"beef", "Meat & Seafood"},
	{"pork", "Meat & Seafood"},
	{"lamb", "Meat & Seafood"},
	{"goat", "Meat & Seafood"},
	{"bacon", "Meat & Seafood"},
	{"sausage", "Meat & Seafood"},
	{"salmon", "Meat & Seafood"},
	{"shrimp", "Meat & Seafood"},
	{"tilapia", "Meat & Seafood"},
	{"fish", "Meat & Seafood"},

	{"bread", "Bakery"},
	{"tortillas", "Bakery"},
	{"tortilla", "Bakery"},
	{"pita", "Bakery"},
	{"naan", "Bakery"},
	{"rolls", "Bakery"},

	{"cumin", "Spices & Seasonings"},
	{"paprika", "Spices & Seasonings"},
	{"turmeric", "Spices & Seasonings"},
	{"cinnamon", "Spices & Seasonings"},
	{"oregano", "Spices & Seasonings"},
	{"salt", "Spices & Seasonings"},

	{"rice", "Pantry"},
	{"pasta", "Pantry"},
	{"flour", "Pantry"},
	{"sugar", "Pantry"},
	{"beans", "Pantry"},
	{"lentils", "Pantry"},
	{"oil", "Pantry"},
	{"vinegar", "Pantry"},
	{"broth", "Pantry"},
	{"sauce", "Pantry"},

	{"water", "Beverages"},
	{"juice", "Beverages"},
	{"soda", "Beverages"},
	{"coffee", "Beverages"},
	{"tea", "Beverages"},
	{"wine", "Beverages"},
	{"beer", "Beverages"},

	{"chips", "Snacks"},
	{"crackers", "Snacks"},
	{"cookies", "Snacks"},

	{"plates", "Household"},
	{"napkins", "Household"},
	{"cups", "Household"},

	{"onion", "Produce"},
	{"onions", "Produce"},
	{"garlic", "Produce"},
	{"tomato", "Produce"},
	{"tomatoes", "Produce"},
	{"potato", "Produce"},
	{"potatoes", "Produce"},
	{"cilantro", "Produce"},
	{"lime", "Produce"},
	{"limes", "Produce"},
	{"lemon", "Produce"},
	{"lemons", "Produce"},
	{"avocado", "Produce"},
	{"avocados", "Produce"},
	{"carrots", "Produce"},
	{"ginger", "Produce"},
	{"spinach", "Produce"},
	{"apple", "Produce"},
	{"apples", "Produce"},
	{"banana", "Produce"},
	{"bananas", "Produce"},
	{"plantains", "Produce"},
}

// Categorize guesses a catalog category from a product name by looking for
// known words and phrases. Matching is on whole words, case-insensitive.
func Categorize(name string) string {
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r > 127)
	})
	if len(words) == 0 {
		return OtherCategory
	}
	padded := " " + strings.Join(words, " ") + " "
	for _, k := range keywords {
		if strings.Contains(padded, " "+k.phrase+" ") {
			return k.category
		}
	}
	return OtherCategory
}
