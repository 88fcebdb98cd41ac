package fiscal

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// CategoryRule maps receipt keywords to a category name
type CategoryRule struct {
	Category string
	Keywords []string
}

// DefaultCategoryRules is checked in order and the first rule with a keyword
// found in an item name wins. Keywords are compared accent-folded and
// lower-cased against the name padded with spaces, so a leading or trailing
// space anchors a keyword to a word boundary.
var DefaultCategoryRules = []CategoryRule{
	{Category: "Limpeza", Keywords: []string{"detergente", "sabao", "amaciante", "desinfetante", "agua sanitaria", "alvejante", "esponja", "limpador", "multiuso", "saco de lixo", "lustra moveis"}},
	{Category: "Higiene Pessoal", Keywords: []string{"sabonete", "shampoo", "xampu", "condicionador", "creme dental", "desodorante", "papel hig", "fralda", "absorvente", "escova dent", "fio dental", "aparelho barbear"}},
	{Category: "Pet", Keywords: []string{"racao", "petisco", "areia higien", "areia sanitaria"}},
	{Category: "Congelados", Keywords: []string{"congelad", "sorvete", "pizza", "hamburguer", "nuggets", "lasanha"}},
	{Category: "Carnes", Keywords: []string{"carne", "frango", "bovin", "suin", "linguica", "salsicha", "presunto", "peixe", " file ", "patinho", "acem", "picanha", "bacon", "costela", "mortadela", "salame"}},
	{Category: "Laticínios", Keywords: []string{"leite", "queijo", "iogurte", "manteiga", "requeijao", "margarina", " nata ", "coalhada"}},
	{Category: "Bebidas", Keywords: []string{"refrig", "refri ", "suco", " agua ", "cerveja", "vinho", "cafe", " cha ", "guarana", "energetico", "coca cola", "coca-cola", "isotonico"}},
	{Category: "Padaria", Keywords: []string{" pao ", "paes", "bisnaguinha", " bolo ", "torrada", "croissant", "sonho "}},
	{Category: "Grãos e Cereais", Keywords: []string{"arroz", "feijao", "aveia", "granola", "milho", "lentilha", "grao de bico", "cereal", "farinha", "fuba"}},
	{Category: "Massas", Keywords: []string{"macarrao", "espaguete", "penne", "parafuso", "talharim", "massa "}},
	{Category: "Frutas", Keywords: []string{"banana", " maca ", " uva", "laranja", "limao", "mamao", "abacaxi", "morango", "melancia", "melao", "manga ", "pera "}},
	{Category: "Verduras e Legumes", Keywords: []string{"alface", "tomate", "cebola", "batata", "cenoura", " alho", "brocolis", "abobrinha", "pepino", "couve", "repolho", "pimentao", "chuchu"}},
	{Category: "Doces e Sobremesas", Keywords: []string{"chocolate", "biscoito", "bolacha", " doce ", " bala ", "gelatina", "achocolatado", "wafer", "pudim", "bombom"}},
	{Category: "Temperos e Condimentos", Keywords: []string{" sal ", "tempero", "oleo", "azeite", "vinagre", "ketchup", "maionese", "mostarda", "molho", "pimenta", "acucar", "caldo "}},
}

// DefaultBrands are matched by containment against item names, first match
// wins. Longer names come before brands whose name they contain.
var DefaultBrands = []string{
	"Coca-Cola",
	"Guaraná Antarctica",
	"Nestlé",
	"Sadia",
	"Perdigão",
	"Seara",
	"Friboi",
	"Aurora",
	"Ypê",
	"Omo",
	"Italac",
	"Piracanjuba",
	"Parmalat",
	"Danone",
	"Vigor",
	"Elegê",
	"Tio João",
	"Camil",
	"Kicaldo",
	"3 Corações",
	"Pilão",
	"Melitta",
	"Qualy",
	"Quaker",
	"Bauducco",
	"Piraquê",
	"Lacta",
	"Garoto",
	"Heinz",
	"Hellmann's",
	"Knorr",
	"Maggi",
	"Liza",
	"Soya",
	"Colgate",
	"Dove",
	"Nivea",
	"Veja",
	"Comfort",
	"Pepsi",
	"Fanta",
	"Skol",
	"Brahma",
	"Heineken",
	"Del Valle",
	"Wickbold",
	"Pullman",
	"Fini",
}

// foldKeyword lower-cases s and removes accents. A transformer chain holds
// state, so each call builds its own.
func foldKeyword(s string) string {
	folder := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(folder, strings.ToLower(s))
	if err != nil {
		return strings.ToLower(s)
	}
	return folded
}

// foldKey folds s, collapses its whitespace and pads it with spaces
func foldKey(s string) string {
	return " " + strings.Join(strings.Fields(foldKeyword(s)), " ") + " "
}

// Inferrer guesses the category and brand of a receipt line from its name
type Inferrer struct {
	rules  []CategoryRule
	brands []string
}

// NewInferrer builds an Inferrer. Nil tables use the defaults.
func NewInferrer(rules []CategoryRule, brands []string) *Inferrer {
	if rules == nil {
		rules = DefaultCategoryRules
	}
	if brands == nil {
		brands = DefaultBrands
	}
	return &Inferrer{rules: rules, brands: brands}
}

// Category returns the category of the first matching rule, or "" when no
// rule matches
func (i *Inferrer) Category(name string) string {
	key := foldKey(name)
	for _, rule := range i.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(key, foldKeyword(kw)) {
				return rule.Category
			}
		}
	}
	return ""
}

// Brand returns the first known brand contained in name, or "". The match
// must not continue into a letter on either side, so sizes and abbreviations
// glued to a brand ("NESTLE400G", "BISC.BAUDUCCO") still count.
func (i *Inferrer) Brand(name string) string {
	key := strings.Join(strings.Fields(foldKeyword(name)), " ")
	for _, brand := range i.brands {
		b := strings.Join(strings.Fields(foldKeyword(brand)), " ")
		if b != "" && containsBounded(key, b) {
			return brand
		}
	}
	return ""
}

// containsBounded reports whether s contains sub with no letter directly
// before or after it. Digits are a boundary too unless sub itself starts or
// ends with a digit.
func containsBounded(s, sub string) bool {
	first, _ := utf8.DecodeRuneInString(sub)
	last, _ := utf8.DecodeLastRuneInString(sub)
	for from := 0; from <= len(s)-len(sub); {
		idx := strings.Index(s[from:], sub)
		if idx == -1 {
			return false
		}
		start := from + idx
		end := start + len(sub)

		before, _ := utf8.DecodeLastRuneInString(s[:start])
		after, _ := utf8.DecodeRuneInString(s[end:])
		if (start == 0 || isBoundary(before, first)) && (end == len(s) || isBoundary(after, last)) {
			return true
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		from = start + size
	}
	return false
}

func isBoundary(r, edge rune) bool {
	if unicode.IsLetter(r) {
		return false
	}
	return !(unicode.IsDigit(edge) && unicode.IsDigit(r))
}
