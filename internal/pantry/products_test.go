package pantry

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Products", func() {
	var (
		db      *mockDB
		service *Service
		ctx     context.Context
		input   ProductInput
	)

	BeforeEach(func() {
		db = newMockDB()
		ctx = context.Background()
		service = NewServiceWithDeps(db, nil, nil, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, firstColor{})

		db.categories["cat"] = &Category{ID: "cat", Name: "Bebidas"}
		db.units["un"] = &MeasurementUnit{ID: "un", Name: "Unidade", Abbreviation: "un"}
		db.brands["br"] = &Brand{ID: "br", Name: "Coca-Cola"}

		input = ProductInput{
			Barcode:    "7894900011517",
			Name:       " Refrigerante Coca-Cola 2L ",
			CategoryID: "cat",
			UnitID:     "un",
			BrandID:    "br",
			Price:      decimal.RequireFromString("9.99"),
		}
	})

	Describe("CreateProduct", func() {
		var (
			product *Product
			err     error
		)

		JustBeforeEach(func() {
			product, err = service.CreateProduct(ctx, "alice", input)
		})

		When("the input is valid", func() {
			It("should store the product for the user", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(product.Name).To(Equal("Refrigerante Coca-Cola 2L"))
				Expect(product.UserID).To(Equal("alice"))
				Expect(db.products).To(HaveKey(product.ID))
			})
		})

		When("the category does not exist", func() {
			BeforeEach(func() {
				input.CategoryID = "nope"
			})

			It("returns a validation error on category_id", func() {
				var verr *ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Field).To(Equal("category_id"))
			})
		})

		When("the unit is missing", func() {
			BeforeEach(func() {
				input.UnitID = ""
			})

			It("returns a validation error on unit_id", func() {
				var verr *ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Field).To(Equal("unit_id"))
				Expect(verr.Message).To(Equal("is required"))
			})
		})

		When("the price is negative", func() {
			BeforeEach(func() {
				input.Price = decimal.NewFromInt(-1)
			})

			It("returns a validation error", func() {
				Expect(errors.Is(err, ErrValidation)).To(BeTrue())
			})
		})

		When("the user already has the barcode", func() {
			BeforeEach(func() {
				db.products["p0"] = &Product{ID: "p0", UserID: "alice", Barcode: "7894900011517", Name: "Outro"}
			})

			It("returns a validation error on barcode", func() {
				var verr *ValidationError
				Expect(errors.As(err, &verr)).To(BeTrue())
				Expect(verr.Field).To(Equal("barcode"))
			})
		})

		When("another user has the barcode", func() {
			BeforeEach(func() {
				db.products["p0"] = &Product{ID: "p0", UserID: "bob", Barcode: "7894900011517", Name: "Outro"}
			})

			It("should allow it", func() {
				Expect(err).NotTo(HaveOccurred())
			})
		})
	})

	Describe("UpdateProduct", func() {
		var existing *Product

		BeforeEach(func() {
			var err error
			existing, err = service.CreateProduct(ctx, "alice", input)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep its own barcode", func() {
			input.Name = "Coca-Cola 2 litros"
			updated, err := service.UpdateProduct(ctx, "alice", existing.ID, input)
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Name).To(Equal("Coca-Cola 2 litros"))
			Expect(updated.Barcode).To(Equal("7894900011517"))
		})

		It("returns ErrNotFound for another user", func() {
			_, err := service.UpdateProduct(ctx, "bob", existing.ID, input)
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("DeleteProduct", func() {
		It("should remove the pantry stock of the product", func() {
			product, err := service.CreateProduct(ctx, "alice", input)
			Expect(err).NotTo(HaveOccurred())
			_, err = service.AddPantryItem(ctx, "alice", PantryItemInput{ProductID: product.ID, Quantity: decimal.NewFromInt(2)})
			Expect(err).NotTo(HaveOccurred())

			Expect(service.DeleteProduct(ctx, "alice", product.ID)).To(Succeed())
			Expect(db.products).To(BeEmpty())
			Expect(db.items).To(BeEmpty())
		})
	})

	Describe("FindProductByBarcode", func() {
		It("returns ErrNotFound when nothing matches", func() {
			_, err := service.FindProductByBarcode(ctx, "alice", "123")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("FindOrCreateProduct", func() {
		It("should create once and then find by name", func() {
			first, created, err := service.FindOrCreateProduct(ctx, "alice", input)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeTrue())

			input.Barcode = ""
			input.Name = "REFRIGERANTE COCA-COLA 2L"
			second, created, err := service.FindOrCreateProduct(ctx, "alice", input)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(second.ID).To(Equal(first.ID))
			Expect(db.products).To(HaveLen(1))
		})

		It("should prefer the barcode over the name", func() {
			db.products["p1"] = &Product{ID: "p1", UserID: "alice", Name: "Refrigerante Coca-Cola 2L"}
			db.products["p2"] = &Product{ID: "p2", UserID: "alice", Barcode: "7894900011517", Name: "Coca 2L"}

			product, created, err := service.FindOrCreateProduct(ctx, "alice", input)
			Expect(err).NotTo(HaveOccurred())
			Expect(created).To(BeFalse())
			Expect(product.ID).To(Equal("p2"))
		})
	})
})
