package scanning

import "fmt"

const systemPrompt = "Você é um assistente que ajuda a organizar a despensa de uma casa brasileira. Responda somente com o conteúdo pedido, sem explicações."

// qrReadPrompt asks the vision model for the raw QR payload of a receipt
const qrReadPrompt = `You are looking at a photo of a Brazilian fiscal receipt (NFC-e, NF-e or CF-e SAT).

Find the QR code and return the exact text it encodes. If the QR code is not readable but the 44-digit access key ("chave de acesso") is printed, return those 44 digits without spaces.

Return ONLY the QR text or the access key on a single line.
If neither can be read, return exactly: NONE
Do not use markdown code blocks.`

// CategoriesPrompt asks for household product category names
func CategoriesPrompt(limit int) Prompt {
	return Prompt{
		System: systemPrompt,
		User: fmt.Sprintf(`Liste %d categorias de produtos de supermercado para organizar uma despensa doméstica.
Responda em JSON no formato: ["Categoria 1", "Categoria 2"]`, limit),
	}
}

// BrandsPrompt asks for well-known grocery brand names
func BrandsPrompt(limit int) Prompt {
	return Prompt{
		System: systemPrompt,
		User: fmt.Sprintf(`Liste %d marcas de produtos de supermercado populares no Brasil.
Responda em JSON no formato: ["Marca 1", "Marca 2"]`, limit),
	}
}

// UnitsPrompt asks for measurement units with abbreviations
func UnitsPrompt(limit int) Prompt {
	return Prompt{
		System: systemPrompt,
		User: fmt.Sprintf(`Liste %d unidades de medida usadas em produtos de supermercado.
Responda em JSON no formato: [{"name": "Quilograma", "abbreviation": "kg"}]`, limit),
	}
}
