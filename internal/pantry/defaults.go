package pantry

import "strings"

// NameKey is the comparison key used for find-or-create and dedup
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// AccentColors is the palette new categories draw their colour from
var AccentColors = []string{
	"#E57373", "#F06292", "#BA68C8", "#9575CD",
	"#7986CB", "#64B5F6", "#4FC3F7", "#4DD0E1",
	"#4DB6AC", "#81C784", "#AED581", "#DCE775",
	"#FFD54F", "#FFB74D", "#FF8A65", "#A1887F",
}

// DefaultCategories are inserted by SeedDefaults into an empty catalog
var DefaultCategories = []string{
	"Alimentos",
	"Bebidas",
	"Carnes",
	"Frutas",
	"Verduras e Legumes",
	"Laticínios",
	"Padaria",
	"Grãos e Cereais",
	"Massas",
	"Congelados",
	"Doces e Sobremesas",
	"Temperos e Condimentos",
	"Higiene Pessoal",
	"Limpeza",
	"Pet",
	"Outros",
}

// UnitDef is a unit name with its abbreviation
type UnitDef struct {
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
}

// DefaultUnits are inserted by SeedDefaults into an empty catalog
var DefaultUnits = []UnitDef{
	{Name: "Unidade", Abbreviation: "un"},
	{Name: "Quilograma", Abbreviation: "kg"},
	{Name: "Grama", Abbreviation: "g"},
	{Name: "Litro", Abbreviation: "l"},
	{Name: "Mililitro", Abbreviation: "ml"},
	{Name: "Pacote", Abbreviation: "pct"},
	{Name: "Caixa", Abbreviation: "cx"},
	{Name: "Dúzia", Abbreviation: "dz"},
	{Name: "Lata", Abbreviation: "lt"},
	{Name: "Garrafa", Abbreviation: "gf"},
}

// FallbackCategory holds products whose category could not be inferred
const FallbackCategory = "Outros"
