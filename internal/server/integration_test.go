package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"

	"github.com/zombor/pantry-manager/internal/fiscal"
	"github.com/zombor/pantry-manager/internal/pantry"
	"github.com/zombor/pantry-manager/internal/server"
)

const integrationKey = "35240211222333000181650010000045211000045210"

const authorityResponse = `{
	"status": "success",
	"data": {
		"emitente": {"razao_social": "SUPERMERCADO EXEMPLO LTDA", "nome_fantasia": "Mercado Exemplo", "cnpj": "11222333000181"},
		"nfce": {"numero": 4521, "serie": "1", "chave": "` + integrationKey + `", "valor_total": "17,82", "data_emissao": "2024-02-10T18:30:00-03:00"},
		"itens": [
			{"codigo": "7891000100103", "descricao": "LEITE UHT INTEGRAL ITALAC 1L", "quantidade": "2,000", "unidade": "UN", "valor_unitario": "4,99", "valor_total": "9,98"},
			{"codigo": 123, "descricao": "BANANA PRATA", "quantidade": 1.2, "unidade": "KG", "valor_unitario": 6.5, "valor_total": "7,80"}
		]
	}
}`

// integrationScanner reads the same code from every photo
type integrationScanner struct{}

func (integrationScanner) ReadQRCode(ctx context.Context, imageData []byte, contentType string) (string, error) {
	return integrationKey, nil
}

func (integrationScanner) Close() error {
	return nil
}

var _ = Describe("Integration", func() {
	var (
		tempDir     string
		db          *pantry.BoltDB
		storagePath string
		pantrySvc   *pantry.Service
		api         *server.Server
		authority   *ghttp.Server
		apiServer   *ghttp.Server
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "pantry-manager-test-*")
		Expect(err).NotTo(HaveOccurred())

		db, err = pantry.NewBoltDB(filepath.Join(tempDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		storagePath = filepath.Join(tempDir, "photos")
		storage, err := fiscal.NewLocalStorage(storagePath)
		Expect(err).NotTo(HaveOccurred())

		authority = ghttp.NewServer()
		authority.RouteToHandler(http.MethodPost, "/nfce/chave", ghttp.CombineHandlers(
			ghttp.VerifyHeaderKV("Authorization", "Bearer test-token"),
			ghttp.VerifyJSONRepresenting(map[string]string{"chave": integrationKey}),
			ghttp.RespondWith(http.StatusOK, authorityResponse),
		))

		lookup, err := fiscal.NewHTTPLookup(fiscal.HTTPLookupConfig{BaseURL: authority.URL(), Token: "test-token"})
		Expect(err).NotTo(HaveOccurred())

		pantrySvc = pantry.NewService(db, nil, nil)
		Expect(pantrySvc.SeedDefaults(context.Background())).To(Succeed())

		fiscalSvc := fiscal.NewService(fiscal.NewFetcher(lookup), pantrySvc, integrationScanner{}, storage, fiscal.ImporterConfig{AddToPantry: true})
		api = server.NewServer(server.Deps{Pantry: pantrySvc, Fiscal: fiscalSvc}, server.BasicAuth{})

		apiServer = ghttp.NewServer()
	})

	AfterEach(func() {
		if apiServer != nil {
			apiServer.Close()
		}
		if authority != nil {
			authority.Close()
		}
		if db != nil {
			db.Close()
		}
		if tempDir != "" {
			os.RemoveAll(tempDir)
		}
	})

	getJSON := func(path string, v any) {
		apiServer.AppendHandlers(api.ServeHTTP)
		resp, err := http.Get(apiServer.URL() + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(json.NewDecoder(resp.Body).Decode(v)).To(Succeed())
	}

	It("should scan a receipt photo, import its items and stock the pantry", func() {
		// --- Step 1: upload the photo ---
		apiServer.AppendHandlers(api.ServeHTTP)

		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		part, err := writer.CreateFormFile("file", "Cupom Fiscal.JPG")
		Expect(err).NotTo(HaveOccurred())
		_, err = part.Write([]byte("\xff\xd8\xff\xe0 fake jpeg"))
		Expect(err).NotTo(HaveOccurred())
		Expect(writer.WriteField("auto_import", "true")).To(Succeed())
		Expect(writer.Close()).To(Succeed())

		req, err := http.NewRequest(http.MethodPost, apiServer.URL()+"/api/qr/image", body)
		Expect(err).NotTo(HaveOccurred())
		req.Header.Set("Content-Type", writer.FormDataContentType())

		resp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))
		Expect(resp.Header.Get("Content-Type")).To(ContainSubstring("application/json"))

		respBody, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		var result fiscal.ScanResult
		Expect(json.Unmarshal(respBody, &result)).To(Succeed())

		Expect(result.Type).To(Equal(fiscal.QRAccessKey))
		Expect(result.Receipt.StoreName).To(Equal("Mercado Exemplo"))
		Expect(result.Receipt.StoreTaxID).To(Equal("11.222.333/0001-81"))
		Expect(result.Receipt.Number).To(Equal("1/4521"))
		Expect(result.Receipt.TotalAmount.String()).To(Equal("17.82"))
		Expect(result.Receipt.IsProcessed).To(BeTrue())
		Expect(result.Import.Imported).To(Equal(2))
		Expect(result.Import.Failed).To(BeZero())

		// The photo is kept next to the receipt
		Expect(result.Receipt.ImageFilename).To(HaveSuffix("_Cupom Fiscal.jpg"))
		_, err = os.Stat(filepath.Join(storagePath, result.Receipt.ImageFilename))
		Expect(err).NotTo(HaveOccurred())

		// --- Step 2: the catalog was filled from the receipt lines ---
		var products []*pantry.Product
		getJSON("/api/products", &products)
		Expect(products).To(HaveLen(2))

		var categories []*pantry.Category
		getJSON("/api/categories", &categories)
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		Expect(names).To(ContainElements("Laticínios", "Frutas"))

		var brands []*pantry.Brand
		getJSON("/api/brands", &brands)
		Expect(brands).To(ContainElement(HaveField("Name", "Italac")))

		// --- Step 3: the pantry holds the purchased quantities ---
		var items []*pantry.PantryItem
		getJSON("/api/pantry", &items)
		Expect(items).To(HaveLen(2))

		// --- Step 4: importing again adds nothing ---
		apiServer.AppendHandlers(api.ServeHTTP)
		importResp, err := http.Post(apiServer.URL()+"/api/receipts/"+result.Receipt.ID+"/import", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		defer importResp.Body.Close()
		Expect(importResp.StatusCode).To(Equal(http.StatusOK))
		var again fiscal.ImportResult
		Expect(json.NewDecoder(importResp.Body).Decode(&again)).To(Succeed())
		Expect(again.Imported).To(BeZero())

		Expect(authority.ReceivedRequests()).To(HaveLen(1))
	})
})
