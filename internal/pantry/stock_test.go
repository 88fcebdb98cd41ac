package pantry

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

var _ = Describe("Pantry stock", func() {
	var (
		db      *mockDB
		service *Service
		ctx     context.Context
	)

	BeforeEach(func() {
		db = newMockDB()
		ctx = context.Background()
		service = NewServiceWithDeps(db, nil, nil, &mockIDGenerator{}, &mockTimeSource{now: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}, firstColor{})
		db.products["p1"] = &Product{ID: "p1", UserID: "alice", Name: "Arroz"}
	})

	Describe("AddPantryItem", func() {
		It("should reject a zero quantity", func() {
			_, err := service.AddPantryItem(ctx, "alice", PantryItemInput{ProductID: "p1"})
			var verr *ValidationError
			Expect(errors.As(err, &verr)).To(BeTrue())
			Expect(verr.Field).To(Equal("quantity"))
		})

		It("should reject another user's product", func() {
			_, err := service.AddPantryItem(ctx, "bob", PantryItemInput{ProductID: "p1", Quantity: decimal.NewFromInt(1)})
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})

	Describe("AdjustPantryQuantity", func() {
		var item *PantryItem

		BeforeEach(func() {
			var err error
			item, err = service.AddPantryItem(ctx, "alice", PantryItemInput{ProductID: "p1", Quantity: decimal.NewFromInt(3)})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should add the delta", func() {
			updated, err := service.AdjustPantryQuantity(ctx, "alice", item.ID, decimal.RequireFromString("-1.5"))
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Quantity.String()).To(Equal("1.5"))
		})

		It("should remove the item when it runs out", func() {
			updated, err := service.AdjustPantryQuantity(ctx, "alice", item.ID, decimal.NewFromInt(-3))
			Expect(err).NotTo(HaveOccurred())
			Expect(updated).To(BeNil())
			Expect(db.items).To(BeEmpty())
		})
	})

	Describe("AddStock", func() {
		It("should reuse the existing entry for the product", func() {
			_, err := service.AddStock(ctx, "alice", "p1", decimal.NewFromInt(2))
			Expect(err).NotTo(HaveOccurred())
			item, err := service.AddStock(ctx, "alice", "p1", decimal.NewFromInt(1))
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Quantity.String()).To(Equal("3"))
			Expect(db.items).To(HaveLen(1))
		})
	})

	Describe("DeletePantryItem", func() {
		It("returns ErrNotFound for a missing item", func() {
			err := service.DeletePantryItem(ctx, "alice", "nope")
			Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
		})
	})
})

var _ = Describe("Fiscal receipts", func() {
	var (
		db      *mockDB
		service *Service
		ctx     context.Context
		now     time.Time
	)

	BeforeEach(func() {
		db = newMockDB()
		ctx = context.Background()
		now = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		service = NewServiceWithDeps(db, nil, nil, &mockIDGenerator{}, &mockTimeSource{now: now}, firstColor{})
	})

	It("should assign an ID and timestamps to a new receipt", func() {
		receipt := &FiscalReceipt{UserID: "alice", StoreName: "Mercado", AccessKey: "123"}
		Expect(service.SaveFiscalReceipt(ctx, receipt)).To(Succeed())
		Expect(receipt.ID).To(Equal("id-001"))
		Expect(receipt.CreatedAt).To(Equal(now))
		Expect(receipt.Items).NotTo(BeNil())
	})

	It("should find a receipt by access key for its owner only", func() {
		receipt := &FiscalReceipt{UserID: "alice", AccessKey: "123"}
		Expect(service.SaveFiscalReceipt(ctx, receipt)).To(Succeed())

		found, err := service.FindReceiptByAccessKey(ctx, "alice", "123")
		Expect(err).NotTo(HaveOccurred())
		Expect(found.ID).To(Equal(receipt.ID))

		_, err = service.FindReceiptByAccessKey(ctx, "bob", "123")
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})

	It("should find a receipt by scanned code for its owner only", func() {
		receipt := &FiscalReceipt{UserID: "alice", SourceCode: "123456|12345678000190|20240310120000|1500"}
		Expect(service.SaveFiscalReceipt(ctx, receipt)).To(Succeed())

		found, err := service.FindReceiptBySourceCode(ctx, "alice", receipt.SourceCode)
		Expect(err).NotTo(HaveOccurred())
		Expect(found.ID).To(Equal(receipt.ID))

		_, err = service.FindReceiptBySourceCode(ctx, "bob", receipt.SourceCode)
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())

		_, err = service.FindReceiptBySourceCode(ctx, "alice", "")
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})

	It("should delete a receipt", func() {
		receipt := &FiscalReceipt{UserID: "alice"}
		Expect(service.SaveFiscalReceipt(ctx, receipt)).To(Succeed())
		Expect(service.DeleteFiscalReceipt(ctx, "alice", receipt.ID)).To(Succeed())
		Expect(db.receipts).To(BeEmpty())
	})

	It("should hide other users' receipts", func() {
		receipt := &FiscalReceipt{UserID: "alice"}
		Expect(service.SaveFiscalReceipt(ctx, receipt)).To(Succeed())
		_, err := service.GetFiscalReceipt(ctx, "bob", receipt.ID)
		Expect(errors.Is(err, ErrNotFound)).To(BeTrue())
	})
})
