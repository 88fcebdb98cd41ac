package pantry

import (
	"errors"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("BoltDB", func() {
	var db *BoltDB

	BeforeEach(func() {
		var err error
		db, err = NewBoltDB(filepath.Join(GinkgoT().TempDir(), "test.db"))
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if db != nil {
			db.Close()
		}
	})

	Describe("products", func() {
		BeforeEach(func() {
			Expect(db.SaveProduct(&Product{ID: "b", UserID: "alice", Name: "Feijão", Price: decimal.RequireFromString("8.49")})).To(Succeed())
			Expect(db.SaveProduct(&Product{ID: "a", UserID: "alice", Name: "Arroz"})).To(Succeed())
			Expect(db.SaveProduct(&Product{ID: "c", UserID: "bob", Name: "Café"})).To(Succeed())
		})

		It("should round-trip a product", func() {
			p, err := db.GetProduct("b")
			Expect(err).NotTo(HaveOccurred())
			Expect(p.Name).To(Equal("Feijão"))
			Expect(p.Price.Equal(decimal.RequireFromString("8.49"))).To(BeTrue())
		})

		It("should list a user's products in ID order", func() {
			products, err := db.ListProducts("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(products).To(HaveLen(2))
			Expect(products[0].ID).To(Equal("a"))
			Expect(products[1].ID).To(Equal("b"))
		})

		It("should list every product", func() {
			products, err := db.ListAllProducts()
			Expect(err).NotTo(HaveOccurred())
			Expect(products).To(HaveLen(3))
		})

		It("should delete a product", func() {
			Expect(db.DeleteProduct("a")).To(Succeed())
			_, err := db.GetProduct("a")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("lookup tables", func() {
		It("should store categories, brands and units", func() {
			Expect(db.SaveCategory(&Category{ID: "1", Name: "Bebidas", Color: "#FF0000"})).To(Succeed())
			Expect(db.SaveBrand(&Brand{ID: "1", Name: "Ypê"})).To(Succeed())
			Expect(db.SaveUnit(&MeasurementUnit{ID: "1", Name: "Litro", Abbreviation: "l"})).To(Succeed())

			categories, err := db.ListCategories()
			Expect(err).NotTo(HaveOccurred())
			Expect(categories).To(HaveLen(1))
			Expect(categories[0].Color).To(Equal("#FF0000"))

			brand, err := db.GetBrand("1")
			Expect(err).NotTo(HaveOccurred())
			Expect(brand.Name).To(Equal("Ypê"))

			unit, err := db.GetUnit("1")
			Expect(err).NotTo(HaveOccurred())
			Expect(unit.Abbreviation).To(Equal("l"))
		})

		It("returns ErrNotFound for a missing category", func() {
			_, err := db.GetCategory("missing")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("fiscal receipts", func() {
		It("should keep the items and their import state", func() {
			purchased := time.Date(2024, 2, 10, 18, 30, 0, 0, time.UTC)
			Expect(db.SaveFiscalReceipt(&FiscalReceipt{
				ID:          "r1",
				UserID:      "alice",
				StoreName:   "Supermercado Exemplo",
				TotalAmount: decimal.RequireFromString("25.90"),
				PurchasedAt: purchased,
				Items: []FiscalReceiptItem{
					{Name: "LEITE UHT", Quantity: decimal.NewFromInt(2), IsImported: true, ImportedProductID: "p1"},
				},
				IsProcessed: true,
			})).To(Succeed())

			r, err := db.GetFiscalReceipt("r1")
			Expect(err).NotTo(HaveOccurred())
			Expect(r.PurchasedAt.Equal(purchased)).To(BeTrue())
			Expect(r.Items).To(HaveLen(1))
			Expect(r.Items[0].ImportedProductID).To(Equal("p1"))
			Expect(r.IsProcessed).To(BeTrue())

			others, err := db.ListFiscalReceipts("bob")
			Expect(err).NotTo(HaveOccurred())
			Expect(others).To(BeEmpty())
		})
	})

	Describe("pantry items", func() {
		It("should filter by user", func() {
			Expect(db.SavePantryItem(&PantryItem{ID: "1", UserID: "alice", ProductID: "p", Quantity: decimal.NewFromInt(1)})).To(Succeed())
			Expect(db.SavePantryItem(&PantryItem{ID: "2", UserID: "bob", ProductID: "p", Quantity: decimal.NewFromInt(1)})).To(Succeed())

			items, err := db.ListPantryItems("alice")
			Expect(err).NotTo(HaveOccurred())
			Expect(items).To(HaveLen(1))

			Expect(db.DeletePantryItem("1")).To(Succeed())
			_, err = db.GetPantryItem("1")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})
})
