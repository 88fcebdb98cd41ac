package pantry

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/pantry-manager/internal/scanning"
)

var _ = Describe("Dedup", func() {
	var (
		db      *mockDB
		mirror  *mockMirror
		service *Service
		ctx     context.Context
	)

	BeforeEach(func() {
		db = newMockDB()
		mirror = newMockMirror()
		ctx = context.Background()
		service = NewServiceWithDeps(db, nil, mirror, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, firstColor{})
	})

	Describe("DedupCategories", func() {
		BeforeEach(func() {
			db.categories["a"] = &Category{ID: "a", Name: "Bebidas"}
			db.categories["b"] = &Category{ID: "b", Name: " bebidas"}
			db.categories["c"] = &Category{ID: "c", Name: "BEBIDAS "}
			db.categories["d"] = &Category{ID: "d", Name: "Limpeza"}
			db.products["p"] = &Product{ID: "p", UserID: "alice", Name: "Suco", CategoryID: "c"}
		})

		It("should keep the lowest ID of each group", func() {
			removed, err := service.DedupCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(2))
			Expect(db.categories).To(HaveKey("a"))
			Expect(db.categories).To(HaveKey("d"))
			Expect(db.categories).To(HaveLen(2))
		})

		It("should re-point products to the kept row", func() {
			_, err := service.DedupCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(db.products["p"].CategoryID).To(Equal("a"))
		})

		It("should mirror the removals", func() {
			_, err := service.DedupCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(mirror.removed).To(ConsistOf("categories/b", "categories/c"))
		})

		It("should be idempotent", func() {
			_, err := service.DedupCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			removed, err := service.DedupCategories(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeZero())
		})

		When("deleting one duplicate fails", func() {
			BeforeEach(func() {
				db.deleteErr["b"] = errBoom
			})

			It("should skip it and continue", func() {
				removed, err := service.DedupCategories(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(removed).To(Equal(1))
				Expect(db.categories).To(HaveKey("b"))
				Expect(db.categories).NotTo(HaveKey("c"))
			})
		})

		When("listing fails", func() {
			BeforeEach(func() {
				db.listErr = errBoom
			})

			It("returns the error", func() {
				_, err := service.DedupCategories(ctx)
				Expect(err).To(HaveOccurred())
			})
		})
	})

	Describe("DedupBrands", func() {
		It("should remove case-insensitive repeats", func() {
			db.brands["1"] = &Brand{ID: "1", Name: "Nestlé"}
			db.brands["2"] = &Brand{ID: "2", Name: "nestlé"}
			db.products["p"] = &Product{ID: "p", BrandID: "2"}

			removed, err := service.Dedup(ctx, KindBrands)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
			Expect(db.products["p"].BrandID).To(Equal("1"))
		})
	})

	Describe("DedupUnits", func() {
		It("should remove repeated unit names", func() {
			db.units["1"] = &MeasurementUnit{ID: "1", Name: "Litro", Abbreviation: "l"}
			db.units["2"] = &MeasurementUnit{ID: "2", Name: "litro", Abbreviation: "L"}
			db.units["3"] = &MeasurementUnit{ID: "3", Name: "Mililitro", Abbreviation: "ml"}

			removed, err := service.Dedup(ctx, KindUnits)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(Equal(1))
			Expect(db.units).To(HaveLen(2))
		})
	})

	It("rejects an unknown kind", func() {
		_, err := service.Dedup(ctx, Kind("products"))
		Expect(errors.Is(err, ErrValidation)).To(BeTrue())
	})
})

var _ = Describe("Populate", func() {
	var (
		db        *mockDB
		generator *mockGenerator
		service   *Service
		ctx       context.Context
	)

	BeforeEach(func() {
		db = newMockDB()
		generator = &mockGenerator{}
		ctx = context.Background()
		service = NewServiceWithDeps(db, generator, nil, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, firstColor{})
	})

	Describe("PopulateBrands", func() {
		var (
			inserted int
			err      error
		)

		JustBeforeEach(func() {
			inserted, err = service.PopulateBrands(ctx)
		})

		When("the model answers with a numbered list", func() {
			BeforeEach(func() {
				db.brands["x"] = &Brand{ID: "x", Name: "nestlé"}
				generator.completions = []string{"1. Nestlé\n2. Coca-Cola\n\nAlgumas marcas:"}
			})

			It("should insert only the missing names", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(inserted).To(Equal(1))
				Expect(db.brands).To(HaveLen(2))
			})

			It("should send the configured sampling parameters", func() {
				Expect(generator.prompts).To(HaveLen(1))
				Expect(generator.prompts[0].MaxTokens).To(Equal(DefaultPopulateOptions.MaxTokens))
				Expect(generator.prompts[0].Temperature).To(Equal(DefaultPopulateOptions.Temperature))
			})
		})

		When("several completions repeat a name", func() {
			BeforeEach(func() {
				generator.completions = []string{`["Sadia", "Ypê"]`, `["sadia", "Piracanjuba"]`}
			})

			It("should insert it once", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(inserted).To(Equal(3))
			})
		})

		When("the response cannot be parsed", func() {
			BeforeEach(func() {
				generator.completions = []string{"Desculpe:"}
			})

			It("should insert nothing without error", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(inserted).To(BeZero())
			})
		})

		When("the generator fails", func() {
			BeforeEach(func() {
				generator.err = errBoom
			})

			It("returns the error", func() {
				Expect(err).To(MatchError(ContainSubstring("boom")))
			})
		})
	})

	Describe("PopulateUnits", func() {
		It("should store abbreviations", func() {
			generator.completions = []string{`[{"name": "Quilograma", "abbreviation": "kg"}, {"name": "Litro", "abbreviation": "l"}]`}
			inserted, err := service.Populate(ctx, KindUnits)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal(2))
			Expect(db.units["id-001"].Abbreviation).To(Equal("kg"))
		})
	})

	Describe("PopulateCategories", func() {
		It("should use the categories prompt", func() {
			generator.completions = []string{`["Bebidas"]`}
			inserted, err := service.Populate(ctx, KindCategories)
			Expect(err).NotTo(HaveOccurred())
			Expect(inserted).To(Equal(1))
			Expect(generator.prompts[0].User).To(Equal(scanning.CategoriesPrompt(DefaultPopulateOptions.Limit).User))
		})
	})

	When("no generator is configured", func() {
		BeforeEach(func() {
			service = NewServiceWithDeps(db, nil, nil, &mockIDGenerator{}, &mockTimeSource{}, firstColor{})
		})

		It("returns ErrNoGenerator", func() {
			_, err := service.PopulateCategories(ctx)
			Expect(errors.Is(err, ErrNoGenerator)).To(BeTrue())
		})
	})
})
